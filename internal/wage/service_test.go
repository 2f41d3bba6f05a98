package wage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/ledgertest"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/wage"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestCalculatorWage(t *testing.T) {
	calc := wage.NewCalculator(d("0.10"), d("0.05"))
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		trip wage.TripRecord
		role wage.Role
		want string
	}{
		{"driver", wage.TripRecord{TripDate: &date, Priced: true, PriceForStaff: d("1000000")}, wage.RoleDriver, "100000"},
		{"assistant", wage.TripRecord{TripDate: &date, Priced: true, PriceForStaff: d("1000000")}, wage.RoleAssistant, "50000"},
		{"rounds to dong", wage.TripRecord{TripDate: &date, Priced: true, PriceForStaff: d("1234567")}, wage.RoleDriver, "123457"},
		{"unpriced", wage.TripRecord{TripDate: &date, PriceForStaff: d("1000000")}, wage.RoleDriver, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Wage(tc.trip, tc.role)
			require.Truef(t, got.Equal(d(tc.want)), "got %s", got)
		})
	}
}

func TestMonthlyAggregate(t *testing.T) {
	calc := wage.NewCalculator(d("0.10"), d("0.05"))
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	helper := int64(2)

	trips := []wage.TripRecord{
		{ID: 1, TripDate: &jan, Priced: true, PriceForStaff: d("1000000"), DriverID: 1},
		{ID: 2, TripDate: &jan2, Priced: true, PriceForStaff: d("2000000"), DriverID: 3, AssistantID: &helper},
		{ID: 3, TripDate: &mar, Priced: true, PriceForStaff: d("500000"), DriverID: 1},
		{ID: 4, TripDate: nil, Priced: true, PriceForStaff: d("500000"), DriverID: 1},
	}
	adjustments := []wage.Adjustment{
		{StaffID: 1, Year: 2024, Month: 3, Amount: d("-20000"), Reason: "Phạt trễ"},
		{StaffID: 1, Year: 2024, Month: 5, Amount: d("30000"), Reason: "Thưởng"},
	}

	months := calc.MonthlyAggregate(1, trips, adjustments)
	require.Len(t, months, 3)

	require.Equal(t, 5, months[0].Month)
	require.Empty(t, months[0].Trips)
	require.True(t, months[0].FinalSalary.Equal(d("30000")))

	require.Equal(t, 3, months[1].Month)
	require.Equal(t, "03/2024", months[1].DisplayName)
	require.True(t, months[1].TotalSalary.Equal(d("50000")))
	require.True(t, months[1].FinalSalary.Equal(d("30000")))
	require.Equal(t, "Phạt trễ", months[1].AdjustmentReason)

	require.Equal(t, 1, months[2].Month)
	require.Len(t, months[2].Trips, 1)
	require.Equal(t, wage.RoleDriver, months[2].Trips[0].Role)
	require.True(t, months[2].Trips[0].Salary.Equal(d("100000")))

	require.True(t, calc.Total(1, trips, adjustments).Equal(d("210000")))
	require.True(t, calc.Total(2, trips, nil).Equal(d("100000")))
}

func pricedTrip(t *testing.T, withAssistant bool) (context.Context, *ledgertest.System, ledgertest.Fixture, int64) {
	t.Helper()
	sys := ledgertest.NewSystem(ledgertest.Options{})
	ctx := shared.ContextWithUserID(context.Background(), 1)
	f, err := sys.Seed(ctx)
	require.NoError(t, err)

	in := f.TripInput(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), 0)
	if withAssistant {
		in.AssistantID = &f.Assistant.ID
	}
	created, err := sys.Trips.Create(ctx, in)
	require.NoError(t, err)
	_, err = sys.Trips.Approve(ctx, created.ID)
	require.NoError(t, err)
	_, err = sys.Trips.SetPrice(ctx, created.ID, d("2000000"), nil)
	require.NoError(t, err)
	return ctx, sys, f, created.ID
}

func TestStaffTripsAndSummary(t *testing.T) {
	ctx, sys, f, tripID := pricedTrip(t, true)

	trips, err := sys.Wages.StaffTrips(ctx, f.Assistant.ID)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	require.Equal(t, tripID, trips[0].ID)
	require.Equal(t, wage.RoleAssistant, trips[0].Role)
	require.True(t, trips[0].Salary.Equal(d("100000")))

	_, err = sys.Wages.SaveAdjustment(ctx, wage.AdjustmentInput{StaffID: f.Driver.ID, Year: 2024, Month: 4, Amount: d("-50000"), Reason: " Tạm ứng "})
	require.NoError(t, err)

	months, err := sys.Wages.MonthlySummary(ctx, f.Driver.ID)
	require.NoError(t, err)
	require.Len(t, months, 1)
	require.True(t, months[0].TotalSalary.Equal(d("200000")))
	require.True(t, months[0].FinalSalary.Equal(d("150000")))
	require.Equal(t, "Tạm ứng", months[0].AdjustmentReason)

	total, err := sys.Wages.TotalSalary(ctx, f.Driver.ID)
	require.NoError(t, err)
	require.True(t, total.Equal(d("150000")))

	rows, err := sys.Wages.WagesForTrip(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Contains(t, rows[0].Notes+rows[1].Notes, "Calculated as")
}

func TestAdjustmentUpsertAndValidation(t *testing.T) {
	ctx, sys, f, _ := pricedTrip(t, false)

	_, err := sys.Wages.SaveAdjustment(ctx, wage.AdjustmentInput{StaffID: f.Driver.ID, Year: 2024, Month: 13})
	require.Error(t, err)

	_, err = sys.Wages.SaveAdjustment(ctx, wage.AdjustmentInput{StaffID: f.Driver.ID, Year: 2024, Month: 4, Amount: d("10000")})
	require.NoError(t, err)
	_, err = sys.Wages.SaveAdjustment(ctx, wage.AdjustmentInput{StaffID: f.Driver.ID, Year: 2024, Month: 4, Amount: d("25000")})
	require.NoError(t, err)

	adj, err := sys.Wages.GetAdjustment(ctx, f.Driver.ID, 2024, 4)
	require.NoError(t, err)
	require.True(t, adj.Amount.Equal(d("25000")))

	list, err := sys.Wages.ListAdjustments(ctx, f.Driver.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = sys.Wages.GetAdjustment(ctx, f.Driver.ID, 2024, 5)
	require.ErrorIs(t, err, wage.ErrAdjustmentNotFound)

	_, err = sys.Wages.GetAdjustment(ctx, 0, 2024, 4)
	require.ErrorIs(t, err, wage.ErrInvalidStaff)
}

func TestRecalculateWithNewRates(t *testing.T) {
	ctx, sys, f, tripID := pricedTrip(t, false)

	raised := wage.NewService(sys.Store.WageRepo(), wage.NewCalculator(d("0.12"), d("0.06")), sys.Staff)
	n, err := raised.RecalculateStaffWages(ctx, f.Driver.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rows, err := raised.WagesForTrip(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Amount.Equal(d("240000")))

	_, err = raised.RecalculateStaffWages(ctx, -1)
	require.ErrorIs(t, err, wage.ErrInvalidStaff)
}

func TestUnpricedTripsHaveNoWages(t *testing.T) {
	calc := wage.NewCalculator(d("0.10"), d("0.05"))
	sys := ledgertest.NewSystem(ledgertest.Options{})
	svc := wage.NewService(sys.Store.WageRepo(), calc, sys.Staff)

	saved, err := svc.SaveTripWages(context.Background(), wage.TripRecord{ID: 1, DriverID: 1})
	require.NoError(t, err)
	require.Empty(t, saved)
	require.Empty(t, sys.Store.Wages())
}
