package wage

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/shared"
)

// Calculator derives per-trip wages from the price paid to staff.
type Calculator struct {
	DriverRate    decimal.Decimal
	AssistantRate decimal.Decimal
}

// NewCalculator returns a calculator with the given rates.
func NewCalculator(driverRate, assistantRate decimal.Decimal) Calculator {
	return Calculator{DriverRate: driverRate, AssistantRate: assistantRate}
}

// Rate returns the share of the staff price paid to role.
func (c Calculator) Rate(role Role) decimal.Decimal {
	if role == RoleDriver {
		return c.DriverRate
	}
	return c.AssistantRate
}

// Wage is rate × staff price rounded to whole đồng, or zero when the trip is
// not priced yet.
func (c Calculator) Wage(trip TripRecord, role Role) decimal.Decimal {
	if !trip.Priced || !trip.PriceForStaff.IsPositive() {
		return decimal.Zero
	}
	return shared.RoundDong(trip.PriceForStaff.Mul(c.Rate(role)))
}

type monthKey struct {
	year, month int
}

// MonthlyAggregate groups staffID's trips by the month of the trip date and
// adds that month's adjustment. Months that only carry an adjustment are
// still reported. Results are newest first.
func (c Calculator) MonthlyAggregate(staffID int64, trips []TripRecord, adjustments []Adjustment) []MonthSummary {
	months := map[monthKey]*MonthSummary{}
	get := func(year, month int) *MonthSummary {
		k := monthKey{year, month}
		m, ok := months[k]
		if !ok {
			m = &MonthSummary{
				Year:        year,
				Month:       month,
				Trips:       []TripRecord{},
				TotalSalary: decimal.Zero,
				Adjustment:  decimal.Zero,
				DisplayName: monthLabel(year, month),
			}
			months[k] = m
		}
		return m
	}

	for _, trip := range trips {
		if trip.TripDate == nil {
			continue
		}
		role, ok := trip.RoleOf(staffID)
		if !ok {
			continue
		}
		trip.Role = role
		trip.Salary = c.Wage(trip, role)
		m := get(trip.TripDate.Year(), int(trip.TripDate.Month()))
		m.Trips = append(m.Trips, trip)
		m.TotalSalary = m.TotalSalary.Add(trip.Salary)
	}
	for _, adj := range adjustments {
		if adj.StaffID != 0 && adj.StaffID != staffID {
			continue
		}
		m := get(adj.Year, adj.Month)
		m.Adjustment = adj.Amount
		m.AdjustmentReason = adj.Reason
	}

	out := make([]MonthSummary, 0, len(months))
	for _, m := range months {
		m.FinalSalary = m.TotalSalary.Add(m.Adjustment)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

// Total sums every trip wage and adjustment of staffID.
func (c Calculator) Total(staffID int64, trips []TripRecord, adjustments []Adjustment) decimal.Decimal {
	total := decimal.Zero
	for _, trip := range trips {
		if role, ok := trip.RoleOf(staffID); ok {
			total = total.Add(c.Wage(trip, role))
		}
	}
	for _, adj := range adjustments {
		total = total.Add(adj.Amount)
	}
	return total
}
