package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a journal entry.
type EntryKind string

const (
	EntryCredit     EntryKind = "CREDIT"
	EntryDebit      EntryKind = "DEBIT"
	EntryAdjustment EntryKind = "ADJUSTMENT"
)

// Balance is the running balance of one staff member, keyed by short name.
type Balance struct {
	StaffShortName string          `json:"staff_short_name"`
	Amount         decimal.Decimal `json:"balance"`
	UpdatedAt      *time.Time      `json:"date_modified"`
}

// Entry is one append-only movement of a balance. Delta is signed:
// credits are positive, debits negative.
type Entry struct {
	ID             int64           `json:"id"`
	StaffShortName string          `json:"staff_short_name"`
	Kind           EntryKind       `json:"kind"`
	Delta          decimal.Decimal `json:"delta"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Reason         string          `json:"reason"`
	Date           time.Time       `json:"date"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HistoryItem is an expense as seen from the balance ledger.
type HistoryItem struct {
	ExpenseID      int64           `json:"expense_id"`
	StaffShortName string          `json:"staff_short_name"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	Description    string          `json:"description,omitempty"`
	Date           *time.Time      `json:"date"`
	TripID         *int64          `json:"trip_id,omitempty"`
	BalanceUpdated bool            `json:"balance_updated"`
}

// StaffBalance is a balance with the staff member's full expense history.
type StaffBalance struct {
	Balance
	History []HistoryItem `json:"history"`
}

// DashboardRow joins a staff member with balance and recent expenses.
type DashboardRow struct {
	StaffID        int64           `json:"staff_id"`
	FullName       string          `json:"full_name"`
	StaffShortName string          `json:"staff_short_name"`
	Amount         decimal.Decimal `json:"balance"`
	UpdatedAt      *time.Time      `json:"date_modified"`
	ExpenseCount   int             `json:"expense_count"`
	Recent         []HistoryItem   `json:"recent_expenses"`
}

// RecentExpenseLimit is how many expenses the dashboard shows per staff member.
const RecentExpenseLimit = 3
