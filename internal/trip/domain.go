package trip

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/wage"
)

// Status is the lifecycle state of a trip. Transitions only move forward.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusWaitingForPrice Status = "WAITING_FOR_PRICE"
	StatusPriced          Status = "PRICED"
)

// statusApprovedAlias is accepted on input for WAITING_FOR_PRICE.
const statusApprovedAlias = "APPROVED"

// ParseStatus accepts the canonical names and the APPROVED alias.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusWaitingForPrice), statusApprovedAlias:
		return StatusWaitingForPrice, nil
	case string(StatusPriced):
		return StatusPriced, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusWaitingForPrice:
		return 1
	case StatusPriced:
		return 2
	}
	return -1
}

// CanApprove reports whether approval is allowed from s.
func (s Status) CanApprove() bool {
	return s == StatusPending
}

// CanPrice reports whether prices can be set from s.
func (s Status) CanPrice() bool {
	return s == StatusWaitingForPrice || s == StatusPriced
}

// CanMoveTo reports whether next is s or a later state.
func (s Status) CanMoveTo(next Status) bool {
	return next.rank() >= s.rank() && next.rank() >= 0
}

// Source tells who submitted the trip.
type Source string

const (
	SourceInternal Source = "internal"
	SourcePublic   Source = "public"
)

// Expenses is the fixed fee breakdown a driver pays during a trip.
type Expenses struct {
	PoliceFee   decimal.Decimal `json:"police_fee"`
	TollFee     decimal.Decimal `json:"toll_fee"`
	FoodFee     decimal.Decimal `json:"food_fee"`
	GasMoney    decimal.Decimal `json:"gas_money"`
	MechanicFee decimal.Decimal `json:"mechanic_fee"`
}

// Total sums every category.
func (e Expenses) Total() decimal.Decimal {
	return e.PoliceFee.Add(e.TollFee).Add(e.FoodFee).Add(e.GasMoney).Add(e.MechanicFee)
}

// Validate rejects negative categories.
func (e Expenses) Validate() error {
	categories := []struct {
		name  string
		value decimal.Decimal
	}{
		{"police_fee", e.PoliceFee},
		{"toll_fee", e.TollFee},
		{"food_fee", e.FoodFee},
		{"gas_money", e.GasMoney},
		{"mechanic_fee", e.MechanicFee},
	}
	for _, c := range categories {
		if c.value.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeExpense, c.name)
		}
	}
	return nil
}

// DebtContribution is what this trip has added to a customer's debt so far.
type DebtContribution struct {
	CustomerID int64           `json:"customer_id,omitempty"`
	Year       int             `json:"year,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

// Recorded reports whether the trip has contributed to any debt bucket.
func (d DebtContribution) Recorded() bool {
	return d.CustomerID > 0 && !d.Amount.IsZero()
}

// Trip is one haul for a customer. Price fields only carry meaning once the
// trip is PRICED.
type Trip struct {
	ID               int64            `json:"id"`
	TripDate         time.Time        `json:"trip_date"`
	StartPoint       string           `json:"start_point"`
	EndPoint         string           `json:"end_point"`
	Distance         decimal.Decimal  `json:"distance"`
	CustomerID       int64            `json:"customer_id"`
	VehicleID        int64            `json:"vehicle_id"`
	DriverID         int64            `json:"driver_id"`
	AssistantID      *int64           `json:"assistant_id,omitempty"`
	Status           Status           `json:"status"`
	PriceForCustomer decimal.Decimal  `json:"price_for_customer"`
	PriceForStaff    decimal.Decimal  `json:"price_for_staff"`
	Expenses         Expenses         `json:"expenses"`
	Source           Source           `json:"source"`
	Notes            string           `json:"notes,omitempty"`
	ApprovedAt       *time.Time       `json:"approved_at,omitempty"`
	ApprovedBy       *int64           `json:"approved_by,omitempty"`
	PricedAt         *time.Time       `json:"priced_at,omitempty"`
	PricedBy         *int64           `json:"priced_by,omitempty"`
	Debt             DebtContribution `json:"debt_recorded"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// WageRecord projects the trip onto the wage rules.
func (t Trip) WageRecord() wage.TripRecord {
	date := t.TripDate
	return wage.TripRecord{
		ID:               t.ID,
		TripDate:         &date,
		Priced:           t.Status == StatusPriced,
		PriceForCustomer: t.PriceForCustomer,
		PriceForStaff:    t.PriceForStaff,
		DriverID:         t.DriverID,
		AssistantID:      t.AssistantID,
		CustomerID:       t.CustomerID,
		StartPoint:       t.StartPoint,
		EndPoint:         t.EndPoint,
	}
}

// CreateInput carries a new trip.
type CreateInput struct {
	TripDate    *time.Time      `json:"trip_date" validate:"required"`
	StartPoint  string          `json:"start_point" validate:"required,max=200"`
	EndPoint    string          `json:"end_point" validate:"required,max=200"`
	Distance    decimal.Decimal `json:"distance"`
	CustomerID  int64           `json:"customer_id" validate:"required,gt=0"`
	VehicleID   int64           `json:"vehicle_id" validate:"required,gt=0"`
	DriverID    int64           `json:"driver_id" validate:"required,gt=0"`
	AssistantID *int64          `json:"assistant_id" validate:"omitempty,gt=0"`
	Expenses    Expenses        `json:"expenses"`
	Notes       string          `json:"notes" validate:"max=2000"`
	Source      Source          `json:"-"`
}

// Patch is a partial trip update. Nil fields are left unchanged.
type Patch struct {
	TripDate         *time.Time       `json:"trip_date"`
	StartPoint       *string          `json:"start_point"`
	EndPoint         *string          `json:"end_point"`
	Distance         *decimal.Decimal `json:"distance"`
	CustomerID       *int64           `json:"customer_id"`
	VehicleID        *int64           `json:"vehicle_id"`
	DriverID         *int64           `json:"driver_id"`
	AssistantID      *int64           `json:"assistant_id"`
	RemoveAssistant  bool             `json:"remove_assistant"`
	Status           *string          `json:"status"`
	PriceForCustomer *decimal.Decimal `json:"price_for_customer"`
	PriceForStaff    *decimal.Decimal `json:"price_for_staff"`
	Expenses         *Expenses        `json:"expenses"`
	Notes            *string          `json:"notes"`
}

// Mode groups statuses the way the back office lists trips.
type Mode string

const (
	ModeAll        Mode = ""
	ModePending    Mode = "PENDING"
	ModeNonPending Mode = "NON_PENDING"
)

// Filter narrows List.
type Filter struct {
	Mode        Mode
	Status      Status
	DriverID    *int64
	AssistantID *int64
	CustomerID  *int64
	VehicleID   *int64
	From        *time.Time
	To          *time.Time
	Page        int
	PerPage     int
}
