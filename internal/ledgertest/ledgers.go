package ledgertest

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/trip"
	"github.com/truckops/truckops/internal/wage"
)

// Balance repository.

type BalanceRepo struct{ s *Store }

func (s *Store) BalanceRepo() *BalanceRepo { return &BalanceRepo{s: s} }

func (r *BalanceRepo) injected(shortName string) bool {
	if n := r.s.failApply[shortName]; n > 0 {
		r.s.failApply[shortName] = n - 1
		return true
	}
	return false
}

func (r *BalanceRepo) Apply(ctx context.Context, shortName string, delta decimal.Decimal, entry balance.Entry) (balance.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.injected(shortName) {
		return balance.Balance{}, ErrInjected
	}
	b := r.s.balances[shortName]
	b.StaffShortName = shortName
	b.Amount = b.Amount.Add(delta)
	at := entry.Date
	b.UpdatedAt = &at
	r.s.balances[shortName] = b
	id := r.journal(shortName, delta, b.Amount, entry)
	onRollback(ctx, func() { r.revert(shortName, delta, id) })
	return b, nil
}

// revert backs out one journaled movement. The caller holds the store lock.
func (r *BalanceRepo) revert(shortName string, delta decimal.Decimal, entryID int64) {
	b := r.s.balances[shortName]
	b.Amount = b.Amount.Sub(delta)
	r.s.balances[shortName] = b
	for i, e := range r.s.entries {
		if e.ID == entryID {
			r.s.entries = append(r.s.entries[:i], r.s.entries[i+1:]...)
			break
		}
	}
}

func (r *BalanceRepo) Set(_ context.Context, shortName string, value decimal.Decimal, entry balance.Entry) (balance.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.injected(shortName) {
		return balance.Balance{}, ErrInjected
	}
	b := r.s.balances[shortName]
	previous := b.Amount
	b.StaffShortName = shortName
	b.Amount = value
	at := entry.Date
	b.UpdatedAt = &at
	r.s.balances[shortName] = b
	r.journal(shortName, value.Sub(previous), value, entry)
	return b, nil
}

func (r *BalanceRepo) journal(shortName string, delta, after decimal.Decimal, e balance.Entry) int64 {
	e.ID = r.s.id()
	e.StaffShortName = shortName
	e.Delta = delta
	e.BalanceAfter = after
	e.CreatedAt = r.s.now()
	r.s.entries = append(r.s.entries, e)
	return e.ID
}

func (r *BalanceRepo) Get(_ context.Context, shortName string) (balance.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.balances[shortName]; ok {
		return b, nil
	}
	return balance.Balance{}, balance.ErrBalanceNotFound
}

func (r *BalanceRepo) List(context.Context) ([]balance.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]balance.Balance, 0, len(r.s.balances))
	for _, b := range r.s.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffShortName < out[j].StaffShortName })
	return out, nil
}

func (r *BalanceRepo) Entries(_ context.Context, shortName string) ([]balance.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []balance.Entry
	for _, e := range r.s.entries {
		if e.StaffShortName == shortName {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Expense repository.

type ExpenseRepo struct{ s *Store }

func (s *Store) ExpenseRepo() *ExpenseRepo { return &ExpenseRepo{s: s} }

func (r *ExpenseRepo) Create(_ context.Context, e expense.Expense) (expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	e.CreatedAt, e.UpdatedAt = r.s.now(), r.s.now()
	r.s.expenses[e.ID] = e
	return e, nil
}

func (r *ExpenseRepo) Get(_ context.Context, id int64) (expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.expenses[id]; ok {
		return e, nil
	}
	return expense.Expense{}, expense.ErrExpenseNotFound
}

func (r *ExpenseRepo) GetForTrip(_ context.Context, tripID int64) (expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var (
		found expense.Expense
		ok    bool
	)
	for _, e := range r.s.expenses {
		if e.TripID != nil && *e.TripID == tripID && (!ok || e.ID < found.ID) {
			found, ok = e, true
		}
	}
	if !ok {
		return expense.Expense{}, expense.ErrExpenseNotFound
	}
	return found, nil
}

func (r *ExpenseRepo) Replace(_ context.Context, id int64, next expense.Expense) (expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.expenses[id]
	if !ok {
		return expense.Expense{}, expense.ErrExpenseNotFound
	}
	cur := prev
	cur.Amount, cur.Reason, cur.Description = next.Amount, next.Reason, next.Description
	cur.StaffID, cur.StaffShortName = next.StaffID, next.StaffShortName
	cur.TripID, cur.Date = next.TripID, next.Date
	cur.UpdatedAt = r.s.now()
	r.s.expenses[id] = cur
	return prev, nil
}

func (r *ExpenseRepo) Delete(_ context.Context, id int64) (expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.expenses[id]
	if !ok {
		return expense.Expense{}, expense.ErrExpenseNotFound
	}
	delete(r.s.expenses, id)
	return e, nil
}

func (r *ExpenseRepo) DeleteForTrip(_ context.Context, tripID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.expenses {
		if e.TripID != nil && *e.TripID == tripID {
			delete(r.s.expenses, id)
			n++
		}
	}
	return n, nil
}

func (r *ExpenseRepo) ClaimUnsettled(ctx context.Context, tripID int64) ([]expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []expense.Expense
	for id, e := range r.s.expenses {
		if e.TripID != nil && *e.TripID == tripID && !e.BalanceUpdated {
			e.BalanceUpdated = true
			r.s.expenses[id] = e
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	onRollback(ctx, func() {
		for _, c := range out {
			if e, ok := r.s.expenses[c.ID]; ok {
				e.BalanceUpdated = false
				r.s.expenses[c.ID] = e
			}
		}
	})
	return out, nil
}

func (r *ExpenseRepo) List(_ context.Context, f expense.Filter) ([]expense.Expense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []expense.Expense
	for _, e := range r.s.expenses {
		if f.TripID != nil && (e.TripID == nil || *e.TripID != *f.TripID) {
			continue
		}
		if f.StaffShortName != "" && e.StaffShortName != f.StaffShortName {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Date == nil && b.Date == nil:
		case a.Date == nil:
			return false
		case b.Date == nil:
			return true
		case !a.Date.Equal(*b.Date):
			return a.Date.After(*b.Date)
		}
		return a.ID > b.ID
	})
	return out, nil
}

// Wage repository.

type WageRepo struct{ s *Store }

func (s *Store) WageRepo() *WageRepo { return &WageRepo{s: s} }

func (r *WageRepo) UpsertWage(_ context.Context, rec wage.Record) (wage.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.wages {
		if cur.TripID == rec.TripID && cur.StaffID == rec.StaffID {
			cur.Role, cur.Amount, cur.Notes, cur.UpdatedAt = rec.Role, rec.Amount, rec.Notes, r.s.now()
			r.s.wages[id] = cur
			return cur, nil
		}
	}
	rec.ID = r.s.id()
	rec.CreatedAt, rec.UpdatedAt = r.s.now(), r.s.now()
	r.s.wages[rec.ID] = rec
	return rec, nil
}

func (r *WageRepo) DeleteTripWagesExcept(_ context.Context, tripID int64, keep []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, rec := range r.s.wages {
		if rec.TripID != tripID {
			continue
		}
		kept := false
		for _, k := range keep {
			if k == rec.StaffID {
				kept = true
			}
		}
		if !kept {
			delete(r.s.wages, id)
		}
	}
	return nil
}

func (r *WageRepo) list(match func(wage.Record) bool) []wage.Record {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []wage.Record
	for _, rec := range r.s.wages {
		if match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *WageRepo) ListForStaff(_ context.Context, staffID int64) ([]wage.Record, error) {
	return r.list(func(rec wage.Record) bool { return rec.StaffID == staffID }), nil
}

func (r *WageRepo) ListForTrip(_ context.Context, tripID int64) ([]wage.Record, error) {
	return r.list(func(rec wage.Record) bool { return rec.TripID == tripID }), nil
}

func (r *WageRepo) StaffTrips(_ context.Context, staffID int64) ([]wage.TripRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []wage.TripRecord
	for _, t := range r.s.trips {
		rec := t.WageRecord()
		if _, ok := rec.RoleOf(staffID); ok {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TripDate.Equal(*out[j].TripDate) {
			return out[i].TripDate.After(*out[j].TripDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *WageRepo) UpsertAdjustment(_ context.Context, adj wage.Adjustment) (wage.Adjustment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, cur := range r.s.adjustments {
		if cur.StaffID == adj.StaffID && cur.Year == adj.Year && cur.Month == adj.Month {
			cur.Amount, cur.Reason, cur.UpdatedAt = adj.Amount, adj.Reason, r.s.now()
			r.s.adjustments[id] = cur
			return cur, nil
		}
	}
	adj.ID = r.s.id()
	adj.CreatedAt, adj.UpdatedAt = r.s.now(), r.s.now()
	r.s.adjustments[adj.ID] = adj
	return adj, nil
}

func (r *WageRepo) GetAdjustment(_ context.Context, staffID int64, year, month int) (wage.Adjustment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, adj := range r.s.adjustments {
		if adj.StaffID == staffID && adj.Year == year && adj.Month == month {
			return adj, nil
		}
	}
	return wage.Adjustment{}, wage.ErrAdjustmentNotFound
}

func (r *WageRepo) ListAdjustments(_ context.Context, staffID int64) ([]wage.Adjustment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []wage.Adjustment
	for _, adj := range r.s.adjustments {
		if adj.StaffID == staffID {
			out = append(out, adj)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// Debt repository.

type DebtRepo struct{ s *Store }

func (s *Store) DebtRepo() *DebtRepo { return &DebtRepo{s: s} }

func (r *DebtRepo) Add(_ context.Context, customerID int64, year int, delta decimal.Decimal) (debt.Debt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n := r.s.failDebt[customerID]; n > 0 {
		r.s.failDebt[customerID] = n - 1
		return debt.Debt{}, ErrInjected
	}
	for id, d := range r.s.debts {
		if d.CustomerID == customerID && d.Year == year {
			d.Amount = d.Amount.Add(delta)
			d.UpdatedAt = r.s.now()
			r.s.debts[id] = d
			return d, nil
		}
	}
	d := debt.Debt{ID: r.s.id(), CustomerID: customerID, Year: year, Amount: delta, CreatedAt: r.s.now(), UpdatedAt: r.s.now()}
	r.s.debts[d.ID] = d
	return d, nil
}

func (r *DebtRepo) ListDebts(_ context.Context, customerID *int64) ([]debt.Debt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []debt.Debt
	for _, d := range r.s.debts {
		if customerID == nil || d.CustomerID == *customerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].Year > out[j].Year
	})
	return out, nil
}

func (r *DebtRepo) CreatePayment(_ context.Context, p debt.Payment) (debt.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	p.CreatedAt = r.s.now()
	r.s.payments[p.ID] = p
	return p, nil
}

func (r *DebtRepo) DeletePayment(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[id]; !ok {
		return debt.ErrPaymentNotFound
	}
	delete(r.s.payments, id)
	return nil
}

func (r *DebtRepo) ListPayments(_ context.Context, customerID *int64) ([]debt.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []debt.Payment
	for _, p := range r.s.payments {
		if customerID == nil || p.CustomerID == *customerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Trip repository.

type TripRepo struct{ s *Store }

func (s *Store) TripRepo() *TripRepo { return &TripRepo{s: s} }

func (r *TripRepo) Create(_ context.Context, t trip.Trip) (trip.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt, t.UpdatedAt = r.s.now(), r.s.now()
	r.s.trips[t.ID] = t
	return t, nil
}

func (r *TripRepo) Get(_ context.Context, id int64) (trip.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.trips[id]; ok {
		return t, nil
	}
	return trip.Trip{}, trip.ErrTripNotFound
}

func (r *TripRepo) Update(_ context.Context, t trip.Trip) (trip.Trip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.trips[t.ID]
	if !ok {
		return trip.Trip{}, trip.ErrTripNotFound
	}
	t.Source, t.CreatedAt = cur.Source, cur.CreatedAt
	t.UpdatedAt = r.s.now()
	if t.Debt.CustomerID <= 0 {
		t.Debt = trip.DebtContribution{Amount: decimal.Zero}
	}
	r.s.trips[t.ID] = t
	return t, nil
}

// Delete cascades to wage rows like the staff_wages FK.
func (r *TripRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.trips[id]; !ok {
		return trip.ErrTripNotFound
	}
	delete(r.s.trips, id)
	for wid, rec := range r.s.wages {
		if rec.TripID == id {
			delete(r.s.wages, wid)
		}
	}
	return nil
}

func (r *TripRepo) List(_ context.Context, f trip.Filter) ([]trip.Trip, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []trip.Trip
	for _, t := range r.s.trips {
		if !matches(t, f) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TripDate.Equal(out[j].TripDate) {
			return out[i].TripDate.After(out[j].TripDate)
		}
		return out[i].ID > out[j].ID
	})
	total := len(out)
	start := (f.Page - 1) * f.PerPage
	if f.PerPage <= 0 || start < 0 {
		return out, total, nil
	}
	if start >= total {
		return nil, total, nil
	}
	end := start + f.PerPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func matches(t trip.Trip, f trip.Filter) bool {
	switch f.Mode {
	case trip.ModePending:
		if t.Status != trip.StatusPending {
			return false
		}
	case trip.ModeNonPending:
		if t.Status == trip.StatusPending {
			return false
		}
	}
	eq := func(want *int64, got int64) bool { return want == nil || *want == got }
	switch {
	case f.Status != "" && t.Status != f.Status:
		return false
	case !eq(f.DriverID, t.DriverID), !eq(f.CustomerID, t.CustomerID), !eq(f.VehicleID, t.VehicleID):
		return false
	case f.AssistantID != nil && (t.AssistantID == nil || *t.AssistantID != *f.AssistantID):
		return false
	case f.From != nil && t.TripDate.Before(*f.From):
		return false
	case f.To != nil && t.TripDate.After(endOfDay(*f.To)):
		return false
	}
	return true
}

func endOfDay(d time.Time) time.Time {
	return d.Add(24*time.Hour - time.Nanosecond)
}

// Debt attachments.

type storedFile struct {
	file    debt.File
	content []byte
}

type FileRepo struct{ s *Store }

func (s *Store) FileRepo() *FileRepo { return &FileRepo{s: s} }

func (r *FileRepo) CreateFile(_ context.Context, f debt.File, content []byte) (debt.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.ID = r.s.id()
	f.UploadedAt = r.s.now()
	r.s.files[f.ID] = storedFile{file: f, content: append([]byte(nil), content...)}
	return f, nil
}

func (r *FileRepo) ListFiles(_ context.Context, customerID int64, year *int) ([]debt.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []debt.File
	for _, sf := range r.s.files {
		if sf.file.CustomerID != customerID || (year != nil && sf.file.Year != *year) {
			continue
		}
		out = append(out, sf.file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *FileRepo) GetFile(_ context.Context, id int64) (debt.File, []byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sf, ok := r.s.files[id]
	if !ok {
		return debt.File{}, nil, debt.ErrFileNotFound
	}
	return sf.file, append([]byte(nil), sf.content...), nil
}

func (r *FileRepo) DeleteFile(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.files[id]; !ok {
		return debt.ErrFileNotFound
	}
	delete(r.s.files, id)
	return nil
}
