package wage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the position a staff member held on a trip.
type Role string

const (
	RoleDriver    Role = "driver"
	RoleAssistant Role = "assistant"
)

// TripRecord is the slice of a trip the wage rules read.
type TripRecord struct {
	ID               int64           `json:"id"`
	TripDate         *time.Time      `json:"trip_date"`
	Priced           bool            `json:"priced"`
	PriceForCustomer decimal.Decimal `json:"price_for_customer"`
	PriceForStaff    decimal.Decimal `json:"price_for_staff"`
	DriverID         int64           `json:"driver_id"`
	AssistantID      *int64          `json:"assistant_id,omitempty"`
	CustomerID       int64           `json:"customer_id"`
	StartPoint       string          `json:"start_point"`
	EndPoint         string          `json:"end_point"`

	// Filled when listing the trips of one staff member.
	Role   Role            `json:"role,omitempty"`
	Salary decimal.Decimal `json:"salary"`
}

// RoleOf returns the role staffID held on the trip.
func (t TripRecord) RoleOf(staffID int64) (Role, bool) {
	switch {
	case t.DriverID == staffID:
		return RoleDriver, true
	case t.AssistantID != nil && *t.AssistantID == staffID:
		return RoleAssistant, true
	}
	return "", false
}

// Record is a persisted per-trip wage row, unique on (TripID, StaffID).
type Record struct {
	ID        int64           `json:"id"`
	TripID    int64           `json:"trip_id"`
	StaffID   int64           `json:"staff_id"`
	Role      Role            `json:"role"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Adjustment is a manual correction to one staff member's monthly wage.
type Adjustment struct {
	ID        int64           `json:"id"`
	StaffID   int64           `json:"staff_id"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AdjustmentInput carries SaveAdjustment requests.
type AdjustmentInput struct {
	StaffID int64           `json:"staff_id" validate:"required,gt=0"`
	Year    int             `json:"year" validate:"required,gte=2000,lte=2100"`
	Month   int             `json:"month" validate:"required,gte=1,lte=12"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason" validate:"max=500"`
}

// MonthSummary is one month of a staff member's wages.
type MonthSummary struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	Trips            []TripRecord    `json:"trips"`
	TotalSalary      decimal.Decimal `json:"total_salary"`
	Adjustment       decimal.Decimal `json:"adjustment"`
	AdjustmentReason string          `json:"adjustment_reason,omitempty"`
	FinalSalary      decimal.Decimal `json:"final_salary"`
	DisplayName      string          `json:"display_name"`
}

func monthLabel(year, month int) string {
	return fmt.Sprintf("%02d/%d", month, year)
}
