package debt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/platform/cache"
	"github.com/truckops/truckops/internal/shared"
)

// CustomerLookup resolves customers for validation and reporting.
type CustomerLookup interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
	All(ctx context.Context) ([]customers.Customer, error)
}

const summaryCacheKey = "summary"

// Service owns customer debts and payments.
type Service struct {
	repo      Repository
	customers CustomerLookup
	cache     *cache.Cache
	group     singleflight.Group
	logger    *slog.Logger
	clock     func() time.Time
}

// NewService constructs the debt service. A nil cache computes every summary.
func NewService(repo Repository, customerLookup CustomerLookup, summaryCache *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		customers: customerLookup,
		cache:     summaryCache,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Accumulate adds a positive amount to the customer's debt for year.
func (s *Service) Accumulate(ctx context.Context, customerID int64, year int, amount decimal.Decimal) (Debt, error) {
	if !amount.IsPositive() {
		return Debt{}, ErrInvalidAmount
	}
	return s.add(ctx, customerID, year, amount)
}

// Adjust moves the customer's debt for year by a signed delta. A zero delta
// changes nothing.
func (s *Service) Adjust(ctx context.Context, customerID int64, year int, delta decimal.Decimal) (Debt, error) {
	if delta.IsZero() {
		if err := s.checkKey(ctx, customerID, year); err != nil {
			return Debt{}, err
		}
		return Debt{CustomerID: customerID, Year: year}, nil
	}
	return s.add(ctx, customerID, year, delta)
}

func (s *Service) add(ctx context.Context, customerID int64, year int, delta decimal.Decimal) (Debt, error) {
	if err := s.checkKey(ctx, customerID, year); err != nil {
		return Debt{}, err
	}
	d, err := s.repo.Add(ctx, customerID, year, shared.RoundDong(delta))
	if err != nil {
		return Debt{}, err
	}
	s.invalidate(ctx)
	return d, nil
}

func (s *Service) checkKey(ctx context.Context, customerID int64, year int) error {
	if customerID <= 0 {
		return ErrInvalidCustomer
	}
	if year < 2000 || year > 2100 {
		return ErrInvalidYear
	}
	_, err := s.customers.Get(ctx, customerID)
	return err
}

// RecordPayment appends a payment. Debts are never modified by payments.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	in.Notes = strings.TrimSpace(in.Notes)
	if err := shared.ValidateStruct(in); err != nil {
		return Payment{}, err
	}
	if !in.Amount.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}
	date := s.clock()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	year := date.Year()
	if in.Year != nil {
		year = *in.Year
	}
	if err := s.checkKey(ctx, in.CustomerID, year); err != nil {
		return Payment{}, err
	}
	p, err := s.repo.CreatePayment(ctx, Payment{
		CustomerID: in.CustomerID,
		Amount:     shared.RoundDong(in.Amount),
		Date:       date,
		Year:       year,
		Notes:      in.Notes,
	})
	if err != nil {
		return Payment{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// DeletePayment removes a payment.
func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrPaymentNotFound
	}
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RemainingDebt is debt minus payments for the customer, restricted to year
// when given. A year without a debt row reports zero.
func (s *Service) RemainingDebt(ctx context.Context, customerID int64, year *int) (decimal.Decimal, error) {
	if customerID <= 0 {
		return decimal.Zero, ErrInvalidCustomer
	}
	debts, err := s.repo.ListDebts(ctx, &customerID)
	if err != nil {
		return decimal.Zero, err
	}
	payments, err := s.repo.ListPayments(ctx, &customerID)
	if err != nil {
		return decimal.Zero, err
	}
	if year != nil {
		found := false
		for _, d := range debts {
			if d.Year == *year {
				found = true
				break
			}
		}
		if !found {
			return decimal.Zero, nil
		}
	}
	remaining := decimal.Zero
	for _, d := range debts {
		if year == nil || d.Year == *year {
			remaining = remaining.Add(d.Amount)
		}
	}
	for _, p := range payments {
		if year == nil || p.Year == *year {
			remaining = remaining.Sub(p.Amount)
		}
	}
	return remaining, nil
}

// Summary reports every customer's debt position. Results are cached until
// the next debt or payment write and concurrent misses share one build.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, summaryCacheKey)
	if err != nil {
		s.logger.Warn("debt summary cache unavailable", slog.Any("error", err))
		return s.buildSummary(ctx)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var out Summary
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.buildSummary(ctx)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// RefreshSummary drops the cached summary and rebuilds it.
func (s *Service) RefreshSummary(ctx context.Context) (Summary, error) {
	if err := s.cache.Bump(ctx); err != nil {
		return Summary{}, fmt.Errorf("bump debt cache: %w", err)
	}
	return s.Summary(ctx)
}

// Customer returns one customer's summary with its debts and payments.
func (s *Service) Customer(ctx context.Context, customerID int64) (CustomerDetail, error) {
	if customerID <= 0 {
		return CustomerDetail{}, ErrInvalidCustomer
	}
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return CustomerDetail{}, err
	}
	debts, err := s.repo.ListDebts(ctx, &customerID)
	if err != nil {
		return CustomerDetail{}, err
	}
	payments, err := s.repo.ListPayments(ctx, &customerID)
	if err != nil {
		return CustomerDetail{}, err
	}
	if debts == nil {
		debts = []Debt{}
	}
	if payments == nil {
		payments = []Payment{}
	}
	return CustomerDetail{
		CustomerSummary: summarize(c, debts, payments),
		Debts:           debts,
		Payments:        payments,
	}, nil
}

func (s *Service) buildSummary(ctx context.Context) (Summary, error) {
	all, err := s.customers.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	debts, err := s.repo.ListDebts(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	payments, err := s.repo.ListPayments(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	debtsBy := map[int64][]Debt{}
	for _, d := range debts {
		debtsBy[d.CustomerID] = append(debtsBy[d.CustomerID], d)
	}
	paymentsBy := map[int64][]Payment{}
	for _, p := range payments {
		paymentsBy[p.CustomerID] = append(paymentsBy[p.CustomerID], p)
	}

	out := Summary{
		Customers:     make([]CustomerSummary, 0, len(all)),
		TotalDebt:     decimal.Zero,
		TotalPayments: decimal.Zero,
		Remaining:     decimal.Zero,
		GeneratedAt:   s.clock(),
	}
	for _, c := range all {
		cs := summarize(c, debtsBy[c.ID], paymentsBy[c.ID])
		out.Customers = append(out.Customers, cs)
		out.TotalDebt = out.TotalDebt.Add(cs.TotalDebt)
		out.TotalPayments = out.TotalPayments.Add(cs.TotalPayments)
	}
	out.Remaining = out.TotalDebt.Sub(out.TotalPayments)
	return out, nil
}

func summarize(c customers.Customer, debts []Debt, payments []Payment) CustomerSummary {
	years := map[int]*YearSummary{}
	year := func(y int) *YearSummary {
		ys, ok := years[y]
		if !ok {
			ys = &YearSummary{Year: y, Debt: decimal.Zero, Payments: decimal.Zero}
			years[y] = ys
		}
		return ys
	}
	cs := CustomerSummary{
		CustomerID:         c.ID,
		CompanyName:        c.CompanyName,
		RepresentativeName: c.RepresentativeName,
		DisplayName:        c.DisplayName(),
		TotalDebt:          decimal.Zero,
		TotalPayments:      decimal.Zero,
	}
	for _, d := range debts {
		ys := year(d.Year)
		ys.Debt = ys.Debt.Add(d.Amount)
		cs.TotalDebt = cs.TotalDebt.Add(d.Amount)
	}
	for _, p := range payments {
		ys := year(p.Year)
		ys.Payments = ys.Payments.Add(p.Amount)
		cs.TotalPayments = cs.TotalPayments.Add(p.Amount)
	}
	cs.Remaining = cs.TotalDebt.Sub(cs.TotalPayments)
	cs.Years = make([]YearSummary, 0, len(years))
	for _, ys := range years {
		ys.Remaining = ys.Debt.Sub(ys.Payments)
		cs.Years = append(cs.Years, *ys)
	}
	sort.Slice(cs.Years, func(i, j int) bool { return cs.Years[i].Year > cs.Years[j].Year })
	return cs
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invalidate debt summary failed", slog.Any("error", err))
	}
}
