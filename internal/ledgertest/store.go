// Package ledgertest is test support: in-memory repositories for every
// ledger domain, sharing one store so cross-domain reads (wage trips, short
// name cascades) behave like the PostgreSQL schema. Only _test.go files
// import it; the binaries never do.
package ledgertest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/masterdata/customers"
	mdshared "github.com/truckops/truckops/internal/masterdata/shared"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/trip"
	"github.com/truckops/truckops/internal/wage"
)

// ErrInjected is returned by writes configured to fail.
var ErrInjected = errors.New("ledgertest: injected failure")

// Store holds every table in memory.
type Store struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	staff       map[int64]staff.Staff
	vehicles    map[int64]vehicles.Vehicle
	customers   map[int64]customers.Customer
	trips       map[int64]trip.Trip
	expenses    map[int64]expense.Expense
	balances    map[string]balance.Balance
	entries     []balance.Entry
	wages       map[int64]wage.Record
	adjustments map[int64]wage.Adjustment
	debts       map[int64]debt.Debt
	payments    map[int64]debt.Payment
	files       map[int64]storedFile

	failApply map[string]int
	failDebt  map[int64]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		staff:       map[int64]staff.Staff{},
		vehicles:    map[int64]vehicles.Vehicle{},
		customers:   map[int64]customers.Customer{},
		trips:       map[int64]trip.Trip{},
		expenses:    map[int64]expense.Expense{},
		balances:    map[string]balance.Balance{},
		wages:       map[int64]wage.Record{},
		adjustments: map[int64]wage.Adjustment{},
		debts:       map[int64]debt.Debt{},
		payments:    map[int64]debt.Payment{},
		files:       map[int64]storedFile{},
		failApply:   map[string]int{},
		failDebt:    map[int64]int{},
	}
}

// FailBalanceWrites makes the next n balance writes for shortName fail.
func (s *Store) FailBalanceWrites(shortName string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failApply[shortName] = n
}

// FailDebtWrites makes the next n debt writes for customerID fail.
func (s *Store) FailDebtWrites(customerID int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDebt[customerID] = n
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// BalanceOf returns the stored balance of shortName, zero when missing.
func (s *Store) BalanceOf(shortName string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[shortName]; ok {
		return b.Amount
	}
	return decimal.Zero
}

// DebtOf returns the stored debt bucket, zero when missing.
func (s *Store) DebtOf(customerID int64, year int) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.debts {
		if d.CustomerID == customerID && d.Year == year {
			return d.Amount
		}
	}
	return decimal.Zero
}

// EntryCount returns how many balance journal rows exist.
func (s *Store) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Expenses returns every stored expense ordered by id.
func (s *Store) Expenses() []expense.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]expense.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wages returns every stored wage row ordered by id.
func (s *Store) Wages() []wage.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wage.Record, 0, len(s.wages))
	for _, w := range s.wages {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Staff repository.

type StaffRepo struct{ s *Store }

func (s *Store) StaffRepo() *StaffRepo { return &StaffRepo{s: s} }

func (r *StaffRepo) List(_ context.Context, f mdshared.ListFilters) ([]staff.Staff, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []staff.Staff
	for _, m := range r.s.staff {
		if f.Status != "" && string(m.Status) != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(m.FullName+" "+m.ShortName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return page(out, f), len(out), nil
}

func (r *StaffRepo) Get(_ context.Context, id int64) (staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.staff[id]; ok {
		return m, nil
	}
	return staff.Staff{}, staff.ErrStaffNotFound
}

func (r *StaffRepo) GetByShortName(_ context.Context, shortName string) (staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.staff {
		if m.ShortName == shortName {
			return m, nil
		}
	}
	return staff.Staff{}, staff.ErrStaffNotFound
}

func (r *StaffRepo) Create(_ context.Context, m staff.Staff) (staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.staff {
		if other.ShortName == m.ShortName {
			return staff.Staff{}, staff.ErrShortNameTaken
		}
	}
	m.ID = r.s.id()
	m.CreatedAt, m.UpdatedAt = r.s.now(), r.s.now()
	r.s.staff[m.ID] = m
	return m, nil
}

// Update renames cascade into balances and expenses like the FK does.
func (r *StaffRepo) Update(_ context.Context, id int64, m staff.Staff) (staff.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.staff[id]
	if !ok {
		return staff.Staff{}, staff.ErrStaffNotFound
	}
	if cur.ShortName != m.ShortName {
		if b, ok := r.s.balances[cur.ShortName]; ok {
			delete(r.s.balances, cur.ShortName)
			b.StaffShortName = m.ShortName
			r.s.balances[m.ShortName] = b
		}
		for id, e := range r.s.expenses {
			if e.StaffShortName == cur.ShortName {
				e.StaffShortName = m.ShortName
				r.s.expenses[id] = e
			}
		}
		for i := range r.s.entries {
			if r.s.entries[i].StaffShortName == cur.ShortName {
				r.s.entries[i].StaffShortName = m.ShortName
			}
		}
	}
	cur.FullName, cur.ShortName, cur.Phone = m.FullName, m.ShortName, m.Phone
	cur.UpdatedAt = r.s.now()
	r.s.staff[id] = cur
	return cur, nil
}

func (r *StaffRepo) SetStatus(_ context.Context, id int64, status staff.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.staff[id]
	if !ok {
		return staff.ErrStaffNotFound
	}
	m.Status = status
	r.s.staff[id] = m
	return nil
}

// Vehicle repository.

type VehicleRepo struct{ s *Store }

func (s *Store) VehicleRepo() *VehicleRepo { return &VehicleRepo{s: s} }

func (r *VehicleRepo) List(_ context.Context, f mdshared.ListFilters) ([]vehicles.Vehicle, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []vehicles.Vehicle
	for _, v := range r.s.vehicles {
		if f.Status != "" && string(v.Status) != f.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return page(out, f), len(out), nil
}

func (r *VehicleRepo) Get(_ context.Context, id int64) (vehicles.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v, ok := r.s.vehicles[id]; ok {
		return v, nil
	}
	return vehicles.Vehicle{}, vehicles.ErrVehicleNotFound
}

func (r *VehicleRepo) Create(_ context.Context, v vehicles.Vehicle) (vehicles.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.vehicles {
		if strings.EqualFold(other.LicensePlate, v.LicensePlate) {
			return vehicles.Vehicle{}, vehicles.ErrPlateTaken
		}
	}
	v.ID = r.s.id()
	v.CreatedAt, v.UpdatedAt = r.s.now(), r.s.now()
	r.s.vehicles[v.ID] = v
	return v, nil
}

func (r *VehicleRepo) Update(_ context.Context, id int64, v vehicles.Vehicle) (vehicles.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.vehicles[id]
	if !ok {
		return vehicles.Vehicle{}, vehicles.ErrVehicleNotFound
	}
	cur.LicensePlate, cur.Description = v.LicensePlate, v.Description
	cur.UpdatedAt = r.s.now()
	r.s.vehicles[id] = cur
	return cur, nil
}

func (r *VehicleRepo) SetStatus(_ context.Context, id int64, status vehicles.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return vehicles.ErrVehicleNotFound
	}
	v.Status = status
	r.s.vehicles[id] = v
	return nil
}

// Customer repository.

type CustomerRepo struct{ s *Store }

func (s *Store) CustomerRepo() *CustomerRepo { return &CustomerRepo{s: s} }

func (r *CustomerRepo) List(_ context.Context, f mdshared.ListFilters) ([]customers.Customer, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []customers.Customer
	for _, c := range r.s.customers {
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return page(out, f), len(out), nil
}

func (r *CustomerRepo) Get(_ context.Context, id int64) (customers.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.customers[id]; ok {
		return c, nil
	}
	return customers.Customer{}, customers.ErrCustomerNotFound
}

func (r *CustomerRepo) Create(_ context.Context, c customers.Customer) (customers.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.CreatedAt, c.UpdatedAt = r.s.now(), r.s.now()
	r.s.customers[c.ID] = c
	return c, nil
}

func (r *CustomerRepo) Update(_ context.Context, id int64, c customers.Customer) (customers.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.customers[id]
	if !ok {
		return customers.Customer{}, customers.ErrCustomerNotFound
	}
	cur.CompanyName, cur.RepresentativeName, cur.Phone, cur.Address = c.CompanyName, c.RepresentativeName, c.Phone, c.Address
	cur.UpdatedAt = r.s.now()
	r.s.customers[id] = cur
	return cur, nil
}

func (r *CustomerRepo) SetStatus(_ context.Context, id int64, status customers.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return customers.ErrCustomerNotFound
	}
	c.Status = status
	r.s.customers[id] = c
	return nil
}

func page[T any](items []T, f mdshared.ListFilters) []T {
	if f.Limit <= 0 {
		return items
	}
	start := f.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + f.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
