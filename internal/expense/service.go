package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/shared"
)

// Ledger is the part of the balance ledger expenses move money through.
type Ledger interface {
	Credit(ctx context.Context, shortName string, amount decimal.Decimal, reason string, date time.Time) (balance.Balance, error)
	Debit(ctx context.Context, shortName string, amount decimal.Decimal, reason string, date time.Time) (balance.Balance, error)
}

// StaffLookup resolves the staff member an expense belongs to.
type StaffLookup interface {
	Get(ctx context.Context, id int64) (staff.Staff, error)
}

// SettlementObserver is notified after a trip's expenses reach the ledger.
type SettlementObserver interface {
	ExpensesSettled(n int)
}

// Transactor runs fn atomically. Repositories taking part read the
// transaction from the context fn receives.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Service records expenses and keeps staff balances in step with them.
type Service struct {
	repo     Repository
	ledger   Ledger
	staff    StaffLookup
	observer SettlementObserver
	tx       Transactor
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService constructs the expense service. observer and logger may be nil.
func NewService(repo Repository, ledger Ledger, staffLookup StaffLookup, observer SettlementObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		ledger:   ledger,
		staff:    staffLookup,
		observer: observer,
		tx:       noTx{},
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithTransactor makes SettleTrip claim and debit in one transaction.
func (s *Service) WithTransactor(tx Transactor) *Service {
	if tx != nil {
		s.tx = tx
	}
	return s
}

// CreateDeferred stores an expense without touching the balance. It is
// debited later by SettleTrip.
func (s *Service) CreateDeferred(ctx context.Context, in Input) (Expense, error) {
	e, err := s.prepare(ctx, in)
	if err != nil {
		return Expense{}, err
	}
	e.BalanceUpdated = false
	return s.repo.Create(ctx, e)
}

// CreateImmediate debits the staff balance and stores the expense as settled.
func (s *Service) CreateImmediate(ctx context.Context, in Input) (Expense, error) {
	e, err := s.prepare(ctx, in)
	if err != nil {
		return Expense{}, err
	}
	if _, err := s.ledger.Debit(ctx, e.StaffShortName, e.Amount, e.Reason, *e.Date); err != nil {
		return Expense{}, fmt.Errorf("debit balance: %w", err)
	}
	e.BalanceUpdated = true
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		if _, cerr := s.ledger.Credit(ctx, e.StaffShortName, e.Amount, e.Reason, *e.Date); cerr != nil {
			s.logger.Error("revert expense debit failed",
				slog.String("staff", e.StaffShortName), slog.String("amount", e.Amount.String()), slog.Any("error", cerr))
		}
		return Expense{}, err
	}
	return created, nil
}

// UpdateAmountAndSettle rewrites an expense. When the stored expense has
// already been settled the balance moves by the difference; otherwise only
// the stored amount changes and settlement later debits the new amount once.
func (s *Service) UpdateAmountAndSettle(ctx context.Context, id int64, in Input) (Expense, error) {
	next, err := s.prepare(ctx, in)
	if err != nil {
		return Expense{}, err
	}
	previous, err := s.repo.Replace(ctx, id, next)
	if err != nil {
		return Expense{}, err
	}
	next.ID = previous.ID
	next.BalanceUpdated = previous.BalanceUpdated
	next.CreatedAt = previous.CreatedAt
	next.UpdatedAt = s.clock()

	if !previous.BalanceUpdated {
		return next, nil
	}
	date := *next.Date
	if previous.StaffShortName != next.StaffShortName {
		// The expense moved to another staff member: reverse it in full.
		if _, err := s.ledger.Credit(ctx, previous.StaffShortName, previous.Amount, next.Reason, date); err != nil {
			return Expense{}, fmt.Errorf("credit previous staff: %w", err)
		}
		if _, err := s.ledger.Debit(ctx, next.StaffShortName, next.Amount, next.Reason, date); err != nil {
			return Expense{}, fmt.Errorf("debit new staff: %w", err)
		}
		return next, nil
	}
	delta := next.Amount.Sub(previous.Amount)
	switch delta.Sign() {
	case 1:
		_, err = s.ledger.Debit(ctx, next.StaffShortName, delta, next.Reason, date)
	case -1:
		_, err = s.ledger.Credit(ctx, next.StaffShortName, delta.Abs(), next.Reason, date)
	}
	if err != nil {
		return Expense{}, fmt.Errorf("apply expense delta: %w", err)
	}
	return next, nil
}

// SettleTrip debits every unsettled expense of the trip exactly once and
// returns how many were settled. The claim and the debits share one
// transaction: a failed debit leaves every expense unsettled and the
// balances untouched. Calling it again settles nothing.
func (s *Service) SettleTrip(ctx context.Context, tripID int64) (int, error) {
	if tripID <= 0 {
		return 0, ErrInvalidTrip
	}
	settled := 0
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		claimed, err := s.repo.ClaimUnsettled(ctx, tripID)
		if err != nil {
			return err
		}
		for _, e := range claimed {
			date := s.clock()
			if e.Date != nil {
				date = *e.Date
			}
			if _, err := s.ledger.Debit(ctx, e.StaffShortName, e.Amount, e.Reason, date); err != nil {
				return fmt.Errorf("settle expense %d: %w", e.ID, err)
			}
		}
		settled = len(claimed)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.record(settled)
	return settled, nil
}

func (s *Service) record(n int) {
	if s.observer != nil && n > 0 {
		s.observer.ExpensesSettled(n)
	}
}

// Delete removes an expense, crediting the amount back when it was settled.
func (s *Service) Delete(ctx context.Context, id int64) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed.BalanceUpdated {
		return nil
	}
	date := s.clock()
	if removed.Date != nil {
		date = *removed.Date
	}
	if _, err := s.ledger.Credit(ctx, removed.StaffShortName, removed.Amount, removed.Reason, date); err != nil {
		return fmt.Errorf("credit deleted expense: %w", err)
	}
	return nil
}

// DeleteForTrip removes the trip's expense rows and leaves balances untouched.
func (s *Service) DeleteForTrip(ctx context.Context, tripID int64) error {
	_, err := s.repo.DeleteForTrip(ctx, tripID)
	return err
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

// GetForTrip returns the trip's generated expense.
func (s *Service) GetForTrip(ctx context.Context, tripID int64) (Expense, error) {
	return s.repo.GetForTrip(ctx, tripID)
}

func (s *Service) ForTrip(ctx context.Context, tripID int64) ([]Expense, error) {
	return s.repo.List(ctx, Filter{TripID: &tripID})
}

func (s *Service) ForStaff(ctx context.Context, shortName string) ([]Expense, error) {
	shortName = strings.TrimSpace(shortName)
	if shortName == "" {
		return nil, balance.ErrStaffRequired
	}
	return s.repo.List(ctx, Filter{StaffShortName: shortName})
}

func (s *Service) All(ctx context.Context) ([]Expense, error) {
	return s.repo.List(ctx, Filter{})
}

// SummaryByStaff counts expenses per staff member and keeps the latest few.
func (s *Service) SummaryByStaff(ctx context.Context) ([]StaffSummary, error) {
	items, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	sortExpenses(items)
	index := map[string]int{}
	var out []StaffSummary
	for _, e := range items {
		i, ok := index[e.StaffShortName]
		if !ok {
			i = len(out)
			index[e.StaffShortName] = i
			out = append(out, StaffSummary{StaffShortName: e.StaffShortName, Total: decimal.Zero, Recent: []Expense{}})
		}
		sum := &out[i]
		sum.Count++
		sum.Total = sum.Total.Add(e.Amount)
		if len(sum.Recent) < RecentLimit {
			sum.Recent = append(sum.Recent, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffShortName < out[j].StaffShortName })
	return out, nil
}

func (s *Service) prepare(ctx context.Context, in Input) (Expense, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Description = strings.TrimSpace(in.Description)
	if err := shared.ValidateStruct(in); err != nil {
		return Expense{}, err
	}
	amount := shared.RoundDong(in.Amount.Abs())
	if amount.IsZero() {
		return Expense{}, ErrInvalidAmount
	}
	if in.TripID != nil && *in.TripID <= 0 {
		return Expense{}, ErrInvalidTrip
	}
	member, err := s.staff.Get(ctx, in.StaffID)
	if err != nil {
		if errors.Is(err, staff.ErrStaffNotFound) {
			return Expense{}, err
		}
		return Expense{}, fmt.Errorf("resolve staff: %w", err)
	}
	date := s.clock()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	return Expense{
		Amount:         amount,
		Reason:         in.Reason,
		Description:    in.Description,
		StaffID:        member.ID,
		StaffShortName: member.ShortName,
		TripID:         in.TripID,
		Date:           &date,
	}, nil
}

func sortExpenses(items []Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Date, items[j].Date
		switch {
		case a == nil && b == nil:
			return items[i].ID > items[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return items[i].ID > items[j].ID
		}
		return a.After(*b)
	})
}
