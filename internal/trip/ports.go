package trip

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/wage"
)

// Repository persists trips.
type Repository interface {
	Create(ctx context.Context, t Trip) (Trip, error)
	Get(ctx context.Context, id int64) (Trip, error)
	// Update writes every mutable column of t.
	Update(ctx context.Context, t Trip) (Trip, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter Filter) ([]Trip, int, error)
}

// ExpenseRecorder is the expense side of trip settlement.
type ExpenseRecorder interface {
	CreateDeferred(ctx context.Context, in expense.Input) (expense.Expense, error)
	UpdateAmountAndSettle(ctx context.Context, id int64, in expense.Input) (expense.Expense, error)
	GetForTrip(ctx context.Context, tripID int64) (expense.Expense, error)
	Delete(ctx context.Context, id int64) error
	DeleteForTrip(ctx context.Context, tripID int64) error
	SettleTrip(ctx context.Context, tripID int64) (int, error)
}

// WageCalculator persists per-trip wages.
type WageCalculator interface {
	SaveTripWages(ctx context.Context, trip wage.TripRecord) ([]wage.Record, error)
}

// DebtLedger accumulates customer debt per year.
type DebtLedger interface {
	Accumulate(ctx context.Context, customerID int64, year int, amount decimal.Decimal) (debt.Debt, error)
	Adjust(ctx context.Context, customerID int64, year int, delta decimal.Decimal) (debt.Debt, error)
}

type StaffGetter interface {
	Get(ctx context.Context, id int64) (staff.Staff, error)
}

type CustomerGetter interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
}

type VehicleGetter interface {
	Get(ctx context.Context, id int64) (vehicles.Vehicle, error)
}

// ActorResolver identifies the signed-in user performing an action.
type ActorResolver interface {
	CurrentUserID(ctx context.Context) (int64, bool)
}

// KeyLocker serialises work on one key across processes.
type KeyLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// TransitionRecorder counts status transitions.
type TransitionRecorder interface {
	TripTransition(to string)
}

// AuditRecorder keeps the trail of who approved, priced or deleted a trip.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Dependencies wires the collaborators of the trip service.
type Dependencies struct {
	Repo      Repository
	Expenses  ExpenseRecorder
	Wages     WageCalculator
	Debts     DebtLedger
	Staff     StaffGetter
	Customers CustomerGetter
	Vehicles  VehicleGetter
	Actors    ActorResolver
	Locker    KeyLocker
	Metrics   TransitionRecorder
	Audit     AuditRecorder
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Debt edit policies.
const (
	DebtPolicyDelta    = "delta"
	DebtPolicyAdditive = "additive"
)

// Config holds the business settings of the trip service.
type Config struct {
	DefaultStatus       Status
	PublicDefaultStatus Status
	DebtPolicy          string
	LockTTL             time.Duration
}

type unlocked struct{}

func (unlocked) WithLock(ctx context.Context, _ string, _ time.Duration, fn func(context.Context) error) error {
	return fn(ctx)
}

type noMetrics struct{}

func (noMetrics) TripTransition(string) {}

type noAudit struct{}

func (noAudit) Record(context.Context, shared.AuditLog) error { return nil }
