package staff

import (
	"context"
	"errors"

	mdshared "github.com/truckops/truckops/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Staff, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Staff, error) {
	if id <= 0 {
		return Staff{}, mdshared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// GetByShortName resolves a staff member by the natural key.
func (s *Service) GetByShortName(ctx context.Context, shortName string) (Staff, error) {
	if shortName == "" {
		return Staff{}, ErrStaffNotFound
	}
	return s.repo.GetByShortName(ctx, shortName)
}

func (s *Service) Create(ctx context.Context, form Form) (Staff, error) {
	form = normalize(form)
	if err := s.validate(form); err != nil {
		return Staff{}, err
	}
	if err := s.ensureShortNameFree(ctx, form.ShortName, 0); err != nil {
		return Staff{}, err
	}
	return s.repo.Create(ctx, Staff{
		FullName:  form.FullName,
		ShortName: form.ShortName,
		Phone:     form.Phone,
		Status:    StatusActive,
	})
}

func (s *Service) Update(ctx context.Context, id int64, form Form) (Staff, error) {
	if id <= 0 {
		return Staff{}, mdshared.ErrInvalidID
	}
	form = normalize(form)
	if err := s.validate(form); err != nil {
		return Staff{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Staff{}, err
	}
	if err := s.ensureShortNameFree(ctx, form.ShortName, id); err != nil {
		return Staff{}, err
	}
	return s.repo.Update(ctx, id, Staff{FullName: form.FullName, ShortName: form.ShortName, Phone: form.Phone})
}

// Deactivate soft-deletes a staff member; trips and expenses keep referencing it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return mdshared.ErrInvalidID
	}
	return s.repo.SetStatus(ctx, id, StatusInactive)
}

func (s *Service) ensureShortNameFree(ctx context.Context, shortName string, selfID int64) error {
	existing, err := s.repo.GetByShortName(ctx, shortName)
	switch {
	case errors.Is(err, ErrStaffNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return ErrShortNameTaken
	}
	return nil
}
