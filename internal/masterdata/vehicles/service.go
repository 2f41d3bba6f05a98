package vehicles

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

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Vehicle, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Vehicle, error) {
	if id <= 0 {
		return Vehicle{}, mdshared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form Form) (Vehicle, error) {
	form = normalize(form)
	if err := shared.ValidateStruct(form); err != nil {
		return Vehicle{}, err
	}
	return s.repo.Create(ctx, Vehicle{LicensePlate: form.LicensePlate, Description: form.Description, Status: StatusActive})
}

func (s *Service) Update(ctx context.Context, id int64, form Form) (Vehicle, error) {
	if id <= 0 {
		return Vehicle{}, mdshared.ErrInvalidID
	}
	form = normalize(form)
	if err := shared.ValidateStruct(form); err != nil {
		return Vehicle{}, err
	}
	return s.repo.Update(ctx, id, Vehicle{LicensePlate: form.LicensePlate, Description: form.Description})
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return mdshared.ErrInvalidID
	}
	return s.repo.SetStatus(ctx, id, StatusInactive)
}

// Plates are stored upper-case without surrounding spaces so lookups match.
func normalize(f Form) Form {
	f.LicensePlate = strings.ToUpper(strings.TrimSpace(f.LicensePlate))
	f.Description = strings.TrimSpace(f.Description)
	return f
}
