package wage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/shared"
)

// StaffLookup confirms a staff member exists.
type StaffLookup interface {
	Get(ctx context.Context, id int64) (staff.Staff, error)
}

// Service persists trip wages and reports monthly salaries.
type Service struct {
	repo  Repository
	calc  Calculator
	staff StaffLookup
}

// NewService constructs the wage service.
func NewService(repo Repository, calc Calculator, staffLookup StaffLookup) *Service {
	return &Service{repo: repo, calc: calc, staff: staffLookup}
}

// Calculator exposes the configured rates.
func (s *Service) Calculator() Calculator {
	return s.calc
}

// SaveTripWages upserts the driver and assistant wage rows of a priced trip
// and removes rows of staff no longer on it. Unpriced trips are left alone.
func (s *Service) SaveTripWages(ctx context.Context, trip TripRecord) ([]Record, error) {
	if !trip.Priced {
		return nil, nil
	}
	type slot struct {
		staffID int64
		role    Role
	}
	slots := []slot{}
	if trip.DriverID > 0 {
		slots = append(slots, slot{trip.DriverID, RoleDriver})
	}
	if trip.AssistantID != nil && *trip.AssistantID > 0 && *trip.AssistantID != trip.DriverID {
		slots = append(slots, slot{*trip.AssistantID, RoleAssistant})
	}

	saved := make([]Record, 0, len(slots))
	keep := make([]int64, 0, len(slots))
	for _, sl := range slots {
		rate := s.calc.Rate(sl.role)
		rec, err := s.repo.UpsertWage(ctx, Record{
			TripID:  trip.ID,
			StaffID: sl.staffID,
			Role:    sl.role,
			Amount:  s.calc.Wage(trip, sl.role),
			Notes:   fmt.Sprintf("Calculated as %s%% of staff price: %s", rate.Mul(decimal.NewFromInt(100)).String(), shared.FormatVND(trip.PriceForStaff)),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert %s wage: %w", sl.role, err)
		}
		saved = append(saved, rec)
		keep = append(keep, sl.staffID)
	}
	if err := s.repo.DeleteTripWagesExcept(ctx, trip.ID, keep); err != nil {
		return nil, fmt.Errorf("prune trip wages: %w", err)
	}
	return saved, nil
}

// StaffTrips lists the staff member's trips newest first, each with the
// role held and the wage earned.
func (s *Service) StaffTrips(ctx context.Context, staffID int64) ([]TripRecord, error) {
	if err := s.ensureStaff(ctx, staffID); err != nil {
		return nil, err
	}
	trips, err := s.repo.StaffTrips(ctx, staffID)
	if err != nil {
		return nil, err
	}
	out := make([]TripRecord, 0, len(trips))
	for _, t := range trips {
		role, ok := t.RoleOf(staffID)
		if !ok {
			continue
		}
		t.Role = role
		t.Salary = s.calc.Wage(t, role)
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].TripDate, out[j].TripDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return out, nil
}

// MonthlySummary aggregates the staff member's wages per month.
func (s *Service) MonthlySummary(ctx context.Context, staffID int64) ([]MonthSummary, error) {
	trips, adjustments, err := s.inputs(ctx, staffID)
	if err != nil {
		return nil, err
	}
	return s.calc.MonthlyAggregate(staffID, trips, adjustments), nil
}

// TotalSalary sums every trip wage and adjustment of the staff member.
func (s *Service) TotalSalary(ctx context.Context, staffID int64) (decimal.Decimal, error) {
	trips, adjustments, err := s.inputs(ctx, staffID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.calc.Total(staffID, trips, adjustments), nil
}

func (s *Service) inputs(ctx context.Context, staffID int64) ([]TripRecord, []Adjustment, error) {
	if err := s.ensureStaff(ctx, staffID); err != nil {
		return nil, nil, err
	}
	trips, err := s.repo.StaffTrips(ctx, staffID)
	if err != nil {
		return nil, nil, err
	}
	adjustments, err := s.repo.ListAdjustments(ctx, staffID)
	if err != nil {
		return nil, nil, err
	}
	return trips, adjustments, nil
}

// WagesForStaff returns the persisted wage rows of the staff member.
func (s *Service) WagesForStaff(ctx context.Context, staffID int64) ([]Record, error) {
	if err := s.ensureStaff(ctx, staffID); err != nil {
		return nil, err
	}
	return s.repo.ListForStaff(ctx, staffID)
}

// WagesForTrip returns the persisted wage rows of a trip.
func (s *Service) WagesForTrip(ctx context.Context, tripID int64) ([]Record, error) {
	return s.repo.ListForTrip(ctx, tripID)
}

// SaveAdjustment creates or replaces the adjustment of (staff, year, month).
func (s *Service) SaveAdjustment(ctx context.Context, in AdjustmentInput) (Adjustment, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := shared.ValidateStruct(in); err != nil {
		return Adjustment{}, err
	}
	if err := s.ensureStaff(ctx, in.StaffID); err != nil {
		return Adjustment{}, err
	}
	return s.repo.UpsertAdjustment(ctx, Adjustment{
		StaffID: in.StaffID,
		Year:    in.Year,
		Month:   in.Month,
		Amount:  shared.RoundDong(in.Amount),
		Reason:  in.Reason,
	})
}

func (s *Service) GetAdjustment(ctx context.Context, staffID int64, year, month int) (Adjustment, error) {
	if staffID <= 0 {
		return Adjustment{}, ErrInvalidStaff
	}
	return s.repo.GetAdjustment(ctx, staffID, year, month)
}

func (s *Service) ListAdjustments(ctx context.Context, staffID int64) ([]Adjustment, error) {
	if err := s.ensureStaff(ctx, staffID); err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, staffID)
}

// RecalculateStaffWages recomputes the wage rows of every priced trip the
// staff member worked on and returns how many trips were processed.
func (s *Service) RecalculateStaffWages(ctx context.Context, staffID int64) (int, error) {
	if err := s.ensureStaff(ctx, staffID); err != nil {
		return 0, err
	}
	trips, err := s.repo.StaffTrips(ctx, staffID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range trips {
		if !t.Priced {
			continue
		}
		if _, err := s.SaveTripWages(ctx, t); err != nil {
			return n, fmt.Errorf("trip %d: %w", t.ID, err)
		}
		n++
	}
	return n, nil
}

func (s *Service) ensureStaff(ctx context.Context, staffID int64) error {
	if staffID <= 0 {
		return ErrInvalidStaff
	}
	_, err := s.staff.Get(ctx, staffID)
	return err
}
