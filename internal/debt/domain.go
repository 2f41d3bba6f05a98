package debt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Debt is what a customer owes for one calendar year, keyed by (CustomerID, Year).
type Debt struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Payment is an append-only customer payment attributed to a year.
type Payment struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"payment_date"`
	Year       int             `json:"year"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PaymentInput carries RecordPayment requests. Year defaults to the year of Date.
type PaymentInput struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount"`
	Date       *time.Time      `json:"payment_date"`
	Year       *int            `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Notes      string          `json:"notes" validate:"max=1000"`
}

// YearSummary is the debt position of one customer in one year.
type YearSummary struct {
	Year      int             `json:"year"`
	Debt      decimal.Decimal `json:"debt"`
	Payments  decimal.Decimal `json:"payments"`
	Remaining decimal.Decimal `json:"remaining"`
}

// CustomerSummary rolls a customer's debts and payments up by year.
type CustomerSummary struct {
	CustomerID         int64           `json:"customer_id"`
	CompanyName        string          `json:"company_name,omitempty"`
	RepresentativeName string          `json:"representative_name,omitempty"`
	DisplayName        string          `json:"display_name"`
	TotalDebt          decimal.Decimal `json:"total_debt"`
	TotalPayments      decimal.Decimal `json:"total_payments"`
	Remaining          decimal.Decimal `json:"remaining_debt"`
	Years              []YearSummary   `json:"years"`
}

// Summary is the debt position of every customer.
type Summary struct {
	Customers     []CustomerSummary `json:"customers"`
	TotalDebt     decimal.Decimal   `json:"total_debt"`
	TotalPayments decimal.Decimal   `json:"total_payments"`
	Remaining     decimal.Decimal   `json:"remaining_debt"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// CustomerDetail is one customer's summary with the underlying rows.
type CustomerDetail struct {
	CustomerSummary
	Debts    []Debt    `json:"debts"`
	Payments []Payment `json:"payments"`
}
