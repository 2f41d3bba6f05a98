package balance

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/truckops/truckops/internal/masterdata/staff"
	mdshared "github.com/truckops/truckops/internal/masterdata/shared"
)

// StaffLookup resolves staff members by their natural key.
type StaffLookup interface {
	GetByShortName(ctx context.Context, shortName string) (staff.Staff, error)
	List(ctx context.Context, filters mdshared.ListFilters) ([]staff.Staff, int, error)
}

// ExpenseHistory exposes the expenses that feed the ledger.
type ExpenseHistory interface {
	HistoryForStaff(ctx context.Context, shortName string) ([]HistoryItem, error)
	History(ctx context.Context) ([]HistoryItem, error)
}

// Service maintains one running balance per staff member.
type Service struct {
	repo    Repository
	staff   StaffLookup
	history ExpenseHistory
	clock   func() time.Time
}

// NewService constructs a balance Service.
func NewService(repo Repository, staffLookup StaffLookup, history ExpenseHistory) *Service {
	return &Service{
		repo:    repo,
		staff:   staffLookup,
		history: history,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Credit raises the balance by |amount|.
func (s *Service) Credit(ctx context.Context, shortName string, amount decimal.Decimal, reason string, date time.Time) (Balance, error) {
	return s.apply(ctx, shortName, amount.Abs(), EntryCredit, reason, date)
}

// Debit lowers the balance by |amount|.
func (s *Service) Debit(ctx context.Context, shortName string, amount decimal.Decimal, reason string, date time.Time) (Balance, error) {
	return s.apply(ctx, shortName, amount.Abs().Neg(), EntryDebit, reason, date)
}

func (s *Service) apply(ctx context.Context, shortName string, delta decimal.Decimal, kind EntryKind, reason string, date time.Time) (Balance, error) {
	shortName, reason, err := s.checkInput(ctx, shortName, reason)
	if err != nil {
		return Balance{}, err
	}
	if delta.IsZero() {
		return Balance{}, ErrInvalidAmount
	}
	return s.repo.Apply(ctx, shortName, delta, Entry{
		StaffShortName: shortName,
		Kind:           kind,
		Reason:         reason,
		Date:           s.dateOrNow(date),
	})
}

// Set overwrites the balance with an absolute value, journaling the difference.
func (s *Service) Set(ctx context.Context, shortName string, value decimal.Decimal, reason string, date time.Time) (Balance, error) {
	shortName, reason, err := s.checkInput(ctx, shortName, reason)
	if err != nil {
		return Balance{}, err
	}
	return s.repo.Set(ctx, shortName, value, Entry{
		StaffShortName: shortName,
		Kind:           EntryAdjustment,
		Reason:         reason,
		Date:           s.dateOrNow(date),
	})
}

// Get returns the balance and full expense history of one staff member.
// Staff without a balance row report zero.
func (s *Service) Get(ctx context.Context, shortName string) (StaffBalance, error) {
	shortName = strings.TrimSpace(shortName)
	if shortName == "" {
		return StaffBalance{}, ErrStaffRequired
	}
	if _, err := s.staff.GetByShortName(ctx, shortName); err != nil {
		return StaffBalance{}, err
	}
	bal, err := s.repo.Get(ctx, shortName)
	switch {
	case err == nil:
	case isNotFound(err):
		bal = Balance{StaffShortName: shortName, Amount: decimal.Zero}
	default:
		return StaffBalance{}, err
	}
	history, err := s.history.HistoryForStaff(ctx, shortName)
	if err != nil {
		return StaffBalance{}, err
	}
	SortHistory(history)
	if history == nil {
		history = []HistoryItem{}
	}
	return StaffBalance{Balance: bal, History: history}, nil
}

// All joins every staff member with their balance and latest expenses.
func (s *Service) All(ctx context.Context) ([]DashboardRow, error) {
	var (
		members  []staff.Staff
		balances []Balance
		history  []HistoryItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, _, err = s.staff.List(gctx, mdshared.ListFilters{})
		return err
	})
	g.Go(func() error {
		var err error
		balances, err = s.repo.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.history.History(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := make(map[string]Balance, len(balances))
	for _, b := range balances {
		byName[b.StaffShortName] = b
	}
	SortHistory(history)
	perStaff := make(map[string][]HistoryItem)
	for _, item := range history {
		perStaff[item.StaffShortName] = append(perStaff[item.StaffShortName], item)
	}

	rows := make([]DashboardRow, 0, len(members))
	for _, m := range members {
		row := DashboardRow{
			StaffID:        m.ID,
			FullName:       m.FullName,
			StaffShortName: m.ShortName,
			Amount:         decimal.Zero,
			Recent:         []HistoryItem{},
		}
		if b, ok := byName[m.ShortName]; ok {
			row.Amount = b.Amount
			row.UpdatedAt = b.UpdatedAt
		}
		items := perStaff[m.ShortName]
		row.ExpenseCount = len(items)
		if len(items) > RecentExpenseLimit {
			items = items[:RecentExpenseLimit]
		}
		row.Recent = append(row.Recent, items...)
		rows = append(rows, row)
	}
	return rows, nil
}

// Entries returns the journal of one staff member, newest first.
func (s *Service) Entries(ctx context.Context, shortName string) ([]Entry, error) {
	shortName = strings.TrimSpace(shortName)
	if shortName == "" {
		return nil, ErrStaffRequired
	}
	return s.repo.Entries(ctx, shortName)
}

func (s *Service) checkInput(ctx context.Context, shortName, reason string) (string, string, error) {
	shortName = strings.TrimSpace(shortName)
	reason = strings.TrimSpace(reason)
	if shortName == "" {
		return "", "", ErrStaffRequired
	}
	if reason == "" {
		return "", "", ErrReasonRequired
	}
	if _, err := s.staff.GetByShortName(ctx, shortName); err != nil {
		return "", "", err
	}
	return shortName, reason, nil
}

func (s *Service) dateOrNow(date time.Time) time.Time {
	if date.IsZero() {
		return s.clock()
	}
	return date
}

// SortHistory orders expenses by date descending with undated entries last.
func SortHistory(items []HistoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Date, items[j].Date
		switch {
		case a == nil && b == nil:
			return items[i].ExpenseID > items[j].ExpenseID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return items[i].ExpenseID > items[j].ExpenseID
		}
		return a.After(*b)
	})
}
