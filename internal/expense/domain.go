package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripExpenseReason is the reason recorded on expenses generated from a trip's fee breakdown.
const TripExpenseReason = "Chi phí chuyến đi"

// RecentLimit is how many expenses SummaryByStaff keeps per staff member.
const RecentLimit = 3

// Expense is money a staff member spent. Amount is always positive.
// BalanceUpdated reports whether the amount has been debited from the staff balance.
type Expense struct {
	ID             int64           `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	Description    string          `json:"description,omitempty"`
	StaffID        int64           `json:"staff_id"`
	StaffShortName string          `json:"staff_short_name"`
	TripID         *int64          `json:"trip_id,omitempty"`
	Date           *time.Time      `json:"date"`
	BalanceUpdated bool            `json:"balance_updated"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Settled reports whether the expense has reached the balance ledger.
func (e Expense) Settled() bool {
	return e.BalanceUpdated
}

// Input carries create and update requests.
type Input struct {
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason" validate:"required,max=200"`
	Description string          `json:"description" validate:"omitempty,max=1000"`
	StaffID     int64           `json:"staff_id" validate:"required,gt=0"`
	TripID      *int64          `json:"trip_id"`
	Date        *time.Time      `json:"date"`
}

// Filter narrows List.
type Filter struct {
	TripID         *int64
	StaffShortName string
}

// StaffSummary aggregates the expenses of one staff member.
type StaffSummary struct {
	StaffShortName string          `json:"staff_short_name"`
	Count          int             `json:"count"`
	Total          decimal.Decimal `json:"total"`
	Recent         []Expense       `json:"recent"`
}
