package ledgertest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/platform/cache"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/trip"
	"github.com/truckops/truckops/internal/wage"
)

// Actor is a fixed acting user; zero means anonymous.
type Actor int64

func (a Actor) CurrentUserID(context.Context) (int64, bool) {
	return int64(a), a > 0
}

// ContextActor resolves the actor from the request context.
type ContextActor struct{}

func (ContextActor) CurrentUserID(ctx context.Context) (int64, bool) {
	return shared.UserIDFromContext(ctx)
}

// AuditTrail keeps audit records in memory.
type AuditTrail struct {
	mu      sync.Mutex
	records []shared.AuditLog
}

func (a *AuditTrail) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, log)
	return nil
}

// Actions lists the recorded actions in order.
func (a *AuditTrail) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r.Action)
	}
	return out
}

// Records returns a copy of every record.
func (a *AuditTrail) Records() []shared.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]shared.AuditLog(nil), a.records...)
}

// System wires every service over one in-memory Store.
type System struct {
	Store     *Store
	Staff     *staff.Service
	Vehicles  *vehicles.Service
	Customers *customers.Service
	Balances  *balance.Service
	Expenses  *expense.Service
	Wages     *wage.Service
	Debts     *debt.Service
	DebtFiles *debt.FileService
	Trips     *trip.Service
}

// Options tunes NewSystem. Zero values pick the production defaults.
type Options struct {
	Trip        trip.Config
	DriverRate  decimal.Decimal
	AssistRate  decimal.Decimal
	Actors      trip.ActorResolver
	Cache       *cache.Cache
	Locker      trip.KeyLocker
	Observer    expense.SettlementObserver
	Transitions trip.TransitionRecorder
	Audit       trip.AuditRecorder
}

// NewSystem builds the services. Logging is discarded.
func NewSystem(opts Options) *System {
	store := NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if opts.DriverRate.IsZero() {
		opts.DriverRate = decimal.RequireFromString("0.10")
	}
	if opts.AssistRate.IsZero() {
		opts.AssistRate = decimal.RequireFromString("0.05")
	}
	if opts.Actors == nil {
		opts.Actors = ContextActor{}
	}

	staffSvc := staff.NewService(store.StaffRepo())
	vehicleSvc := vehicles.NewService(store.VehicleRepo())
	customerSvc := customers.NewService(store.CustomerRepo())
	expenseRepo := store.ExpenseRepo()
	balances := balance.NewService(store.BalanceRepo(), staffSvc, expense.NewHistorySource(expenseRepo))
	expenses := expense.NewService(expenseRepo, balances, staffSvc, opts.Observer, logger).WithTransactor(store.Transactor())
	wages := wage.NewService(store.WageRepo(), wage.NewCalculator(opts.DriverRate, opts.AssistRate), staffSvc)
	debts := debt.NewService(store.DebtRepo(), customerSvc, opts.Cache, logger)
	trips := trip.NewService(trip.Dependencies{
		Repo:      store.TripRepo(),
		Expenses:  expenses,
		Wages:     wages,
		Debts:     debts,
		Staff:     staffSvc,
		Customers: customerSvc,
		Vehicles:  vehicleSvc,
		Actors:    opts.Actors,
		Locker:    opts.Locker,
		Metrics:   opts.Transitions,
		Audit:     opts.Audit,
		Logger:    logger,
	}, opts.Trip)

	return &System{
		Store:     store,
		Staff:     staffSvc,
		Vehicles:  vehicleSvc,
		Customers: customerSvc,
		Balances:  balances,
		Expenses:  expenses,
		Wages:     wages,
		Debts:     debts,
		DebtFiles: debt.NewFileService(store.FileRepo(), customerSvc, logger),
		Trips:     trips,
	}
}

// Fixture is a minimal set of master data for trip scenarios.
type Fixture struct {
	Driver    staff.Staff
	Assistant staff.Staff
	Customer  customers.Customer
	Vehicle   vehicles.Vehicle
}

// Seed creates a driver, an assistant, a customer and a vehicle.
func (s *System) Seed(ctx context.Context) (Fixture, error) {
	var (
		f   Fixture
		err error
	)
	if f.Driver, err = s.Staff.Create(ctx, staff.Form{FullName: "Nguyễn Văn An", ShortName: "An"}); err != nil {
		return f, err
	}
	if f.Assistant, err = s.Staff.Create(ctx, staff.Form{FullName: "Trần Văn Bình", ShortName: "Bình"}); err != nil {
		return f, err
	}
	if f.Customer, err = s.Customers.Create(ctx, customers.Form{CompanyName: "Công ty Hòa Phát"}); err != nil {
		return f, err
	}
	if f.Vehicle, err = s.Vehicles.Create(ctx, vehicles.Form{LicensePlate: "51C-123.45"}); err != nil {
		return f, err
	}
	return f, nil
}

// TripInput returns a valid trip for f dated date with the given fee total
// booked as toll.
func (f Fixture) TripInput(date time.Time, tollFee int64) trip.CreateInput {
	return trip.CreateInput{
		TripDate:   &date,
		StartPoint: "Hà Nội",
		EndPoint:   "Hải Phòng",
		Distance:   decimal.NewFromInt(120),
		CustomerID: f.Customer.ID,
		VehicleID:  f.Vehicle.ID,
		DriverID:   f.Driver.ID,
		Expenses:   trip.Expenses{TollFee: decimal.NewFromInt(tollFee)},
	}
}
