package customers

import (
	"context"
	"strings"

	mdshared "github.com/truckops/truckops/internal/masterdata/shared"
	"github.com/truckops/truckops/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

// All returns every customer regardless of status, for ledger summaries.
func (s *Service) All(ctx context.Context) ([]Customer, error) {
	items, _, err := s.repo.List(ctx, mdshared.ListFilters{})
	return items, err
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, mdshared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form Form) (Customer, error) {
	form = normalize(form)
	if err := shared.ValidateStruct(form); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, Customer{
		CompanyName:        form.CompanyName,
		RepresentativeName: form.RepresentativeName,
		Phone:              form.Phone,
		Address:            form.Address,
		Status:             StatusActive,
	})
}

func (s *Service) Update(ctx context.Context, id int64, form Form) (Customer, error) {
	if id <= 0 {
		return Customer{}, mdshared.ErrInvalidID
	}
	form = normalize(form)
	if err := shared.ValidateStruct(form); err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, id, Customer{
		CompanyName:        form.CompanyName,
		RepresentativeName: form.RepresentativeName,
		Phone:              form.Phone,
		Address:            form.Address,
	})
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return mdshared.ErrInvalidID
	}
	return s.repo.SetStatus(ctx, id, StatusInactive)
}

func normalize(f Form) Form {
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.RepresentativeName = strings.TrimSpace(f.RepresentativeName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	return f
}
