package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

// Service drives trips through PENDING → WAITING_FOR_PRICE → PRICED and
// fans each transition out to expenses, balances, wages and debts.
//
// Operations are report-only: a failed step returns its error and leaves
// whatever earlier steps wrote. Steps are ordered so that retrying the same
// operation completes the work without applying money twice.
type Service struct {
	deps   Dependencies
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time
}

// NewService constructs the trip service, filling optional collaborators.
func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Locker == nil {
		deps.Locker = unlocked{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noMetrics{}
	}
	if deps.Audit == nil {
		deps.Audit = noAudit{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	cfg.DefaultStatus = creationStatus(cfg.DefaultStatus)
	cfg.PublicDefaultStatus = creationStatus(cfg.PublicDefaultStatus)
	if cfg.DebtPolicy != DebtPolicyAdditive {
		cfg.DebtPolicy = DebtPolicyDelta
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Service{deps: deps, cfg: cfg, logger: logger, clock: clock}
}

func creationStatus(s Status) Status {
	if s == StatusWaitingForPrice {
		return s
	}
	return StatusPending
}

// Create validates and stores a new trip. A positive fee breakdown becomes a
// deferred expense for the driver. Trips created straight into
// WAITING_FOR_PRICE are settled immediately.
func (s *Service) Create(ctx context.Context, in CreateInput) (Trip, error) {
	in.StartPoint = strings.TrimSpace(in.StartPoint)
	in.EndPoint = strings.TrimSpace(in.EndPoint)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := shared.ValidateStruct(in); err != nil {
		return Trip{}, err
	}
	if !in.Distance.IsPositive() {
		return Trip{}, ErrInvalidDistance
	}
	if err := in.Expenses.Validate(); err != nil {
		return Trip{}, err
	}
	if in.AssistantID != nil && *in.AssistantID == in.DriverID {
		return Trip{}, ErrSameStaff
	}
	if _, err := s.customer(ctx, in.CustomerID); err != nil {
		return Trip{}, err
	}
	if _, err := s.vehicle(ctx, in.VehicleID); err != nil {
		return Trip{}, err
	}
	if _, err := s.staffMember(ctx, in.DriverID); err != nil {
		return Trip{}, err
	}
	if in.AssistantID != nil {
		if _, err := s.staffMember(ctx, *in.AssistantID); err != nil {
			return Trip{}, err
		}
	}

	source := in.Source
	if source == "" {
		source = SourceInternal
	}
	status := s.cfg.DefaultStatus
	if source == SourcePublic {
		status = s.cfg.PublicDefaultStatus
	}
	t := Trip{
		TripDate:         *in.TripDate,
		StartPoint:       in.StartPoint,
		EndPoint:         in.EndPoint,
		Distance:         in.Distance,
		CustomerID:       in.CustomerID,
		VehicleID:        in.VehicleID,
		DriverID:         in.DriverID,
		AssistantID:      in.AssistantID,
		Status:           StatusPending,
		PriceForCustomer: decimal.Zero,
		PriceForStaff:    decimal.Zero,
		Expenses:         roundExpenses(in.Expenses),
		Source:           source,
		Notes:            in.Notes,
		Debt:             DebtContribution{Amount: decimal.Zero},
	}
	created, err := s.deps.Repo.Create(ctx, t)
	if err != nil {
		return Trip{}, err
	}
	s.deps.Metrics.TripTransition(string(StatusPending))

	if created.Expenses.Total().IsPositive() {
		if _, err := s.deps.Expenses.CreateDeferred(ctx, s.expenseInput(ctx, created)); err != nil {
			return created, fmt.Errorf("create trip expense: %w", err)
		}
	}
	if status == StatusWaitingForPrice {
		actor, _ := s.actor(ctx)
		return s.approve(ctx, created, actor)
	}
	return created, nil
}

// Approve moves a PENDING trip to WAITING_FOR_PRICE and settles its
// expenses. The caller must be signed in.
func (s *Service) Approve(ctx context.Context, id int64) (Trip, error) {
	actor, ok := s.actor(ctx)
	if !ok {
		return Trip{}, shared.ErrUnauthenticated
	}
	var out Trip
	err := s.withTripLock(ctx, id, func(ctx context.Context) error {
		t, err := s.deps.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanApprove() {
			return fmt.Errorf("%w: approve needs %s, trip is %s", ErrInvalidTransition, StatusPending, t.Status)
		}
		out, err = s.approve(ctx, t, actor)
		return err
	})
	return out, err
}

// approve settles before flipping the status so a failed settlement leaves
// the trip PENDING and a retry picks up the unsettled rest.
func (s *Service) approve(ctx context.Context, t Trip, actor int64) (Trip, error) {
	if t.DriverID <= 0 {
		return t, ErrDriverRequired
	}
	if err := s.ensureTripExpense(ctx, t); err != nil {
		return t, err
	}
	if err := s.settle(ctx, t.ID); err != nil {
		return t, err
	}
	now := s.clock()
	t.Status = StatusWaitingForPrice
	t.ApprovedAt = &now
	t.ApprovedBy = nil
	if actor > 0 {
		t.ApprovedBy = &actor
	}
	updated, err := s.deps.Repo.Update(ctx, t)
	if err != nil {
		return t, err
	}
	s.deps.Metrics.TripTransition(string(StatusWaitingForPrice))
	s.audit(ctx, "trip.approve", updated.ID, actor, nil)
	return updated, nil
}

// SetPrice prices an approved trip, records wages and updates the customer
// debt. staffPrice defaults to customerPrice.
func (s *Service) SetPrice(ctx context.Context, id int64, customerPrice decimal.Decimal, staffPrice *decimal.Decimal) (Trip, error) {
	actor, ok := s.actor(ctx)
	if !ok {
		return Trip{}, shared.ErrUnauthenticated
	}
	customerPrice = shared.RoundDong(customerPrice)
	if !customerPrice.IsPositive() {
		return Trip{}, ErrInvalidPrice
	}
	forStaff := customerPrice
	if staffPrice != nil {
		forStaff = shared.RoundDong(*staffPrice)
		if !forStaff.IsPositive() {
			return Trip{}, ErrInvalidStaffPrice
		}
	}
	var out Trip
	err := s.withTripLock(ctx, id, func(ctx context.Context) error {
		t, err := s.deps.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanPrice() {
			return fmt.Errorf("%w: pricing needs %s or %s, trip is %s", ErrInvalidTransition, StatusWaitingForPrice, StatusPriced, t.Status)
		}
		t.PriceForCustomer = customerPrice
		t.PriceForStaff = forStaff
		out, err = s.price(ctx, t, actor)
		return err
	})
	return out, err
}

func (s *Service) price(ctx context.Context, t Trip, actor int64) (Trip, error) {
	wasPriced := t.Status == StatusPriced
	now := s.clock()

	// Wages and debt land before the status flips, so a failure leaves the
	// trip waiting and a retry finishes the work.
	priced := t
	priced.Status = StatusPriced
	if _, err := s.deps.Wages.SaveTripWages(ctx, priced.WageRecord()); err != nil {
		return t, fmt.Errorf("save trip wages: %w", err)
	}
	t, err := s.applyDebt(ctx, t)
	if err != nil {
		return t, err
	}

	t.Status = StatusPriced
	t.PricedAt = &now
	t.PricedBy = &actor
	if t, err = s.deps.Repo.Update(ctx, t); err != nil {
		return t, err
	}
	if !wasPriced {
		s.deps.Metrics.TripTransition(string(StatusPriced))
	}
	s.audit(ctx, "trip.price", t.ID, actor, map[string]any{
		"price_for_customer": t.PriceForCustomer.String(),
		"price_for_staff":    t.PriceForStaff.String(),
		"repriced":           wasPriced,
	})
	return t, nil
}

func (s *Service) pricingEffects(ctx context.Context, t Trip) (Trip, error) {
	if _, err := s.deps.Wages.SaveTripWages(ctx, t.WageRecord()); err != nil {
		return t, fmt.Errorf("save trip wages: %w", err)
	}
	return s.applyDebt(ctx, t)
}

// applyDebt brings the customer's debt in line with the trip price and
// records the trip's contribution. Under the delta policy only the
// difference to the previous contribution is applied, moving it across
// buckets when the customer or year changed. The additive policy adds the
// full price on every pricing.
func (s *Service) applyDebt(ctx context.Context, t Trip) (Trip, error) {
	target := DebtContribution{CustomerID: t.CustomerID, Year: t.TripDate.Year(), Amount: t.PriceForCustomer}
	prev := t.Debt
	var err error
	switch {
	case s.cfg.DebtPolicy == DebtPolicyAdditive:
		if _, err = s.deps.Debts.Accumulate(ctx, target.CustomerID, target.Year, target.Amount); err != nil {
			return t, fmt.Errorf("accumulate debt: %w", err)
		}
		if prev.CustomerID == target.CustomerID && prev.Year == target.Year {
			target.Amount = prev.Amount.Add(target.Amount)
		}
	case !prev.Recorded():
		if _, err = s.deps.Debts.Accumulate(ctx, target.CustomerID, target.Year, target.Amount); err != nil {
			return t, fmt.Errorf("accumulate debt: %w", err)
		}
	case prev.CustomerID != target.CustomerID || prev.Year != target.Year:
		if _, err = s.deps.Debts.Adjust(ctx, prev.CustomerID, prev.Year, prev.Amount.Neg()); err != nil {
			return t, fmt.Errorf("withdraw previous debt: %w", err)
		}
		t.Debt = DebtContribution{Amount: decimal.Zero}
		if t, err = s.deps.Repo.Update(ctx, t); err != nil {
			return t, err
		}
		if _, err = s.deps.Debts.Accumulate(ctx, target.CustomerID, target.Year, target.Amount); err != nil {
			return t, fmt.Errorf("accumulate debt: %w", err)
		}
	default:
		if _, err = s.deps.Debts.Adjust(ctx, target.CustomerID, target.Year, target.Amount.Sub(prev.Amount)); err != nil {
			return t, fmt.Errorf("adjust debt: %w", err)
		}
	}
	t.Debt = target
	return s.deps.Repo.Update(ctx, t)
}

// Update applies a partial edit. Status only moves forward; moving into a
// later state runs the same effects as Approve and SetPrice. Editing price,
// staff, customer or date of a PRICED trip recomputes wages and debt, and a
// changed fee breakdown re-syncs the trip expense.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (Trip, error) {
	var out Trip
	err := s.withTripLock(ctx, id, func(ctx context.Context) error {
		prev, err := s.deps.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		next, target, err := s.applyPatch(ctx, prev, p)
		if err != nil {
			return err
		}
		priceGiven := p.PriceForCustomer != nil || p.PriceForStaff != nil
		var actor int64
		if target != prev.Status || priceGiven {
			var ok bool
			if actor, ok = s.actor(ctx); !ok {
				return shared.ErrUnauthenticated
			}
		}

		next, err = s.deps.Repo.Update(ctx, next)
		if err != nil {
			return err
		}
		if expenseFieldsChanged(prev, next) {
			if err := s.syncExpense(ctx, next); err != nil {
				return err
			}
		}
		if prev.Status == StatusPending && target != StatusPending {
			if next, err = s.approve(ctx, next, actor); err != nil {
				return err
			}
		}
		switch {
		case target == StatusPriced && (next.Status != StatusPriced || priceGiven):
			next, err = s.price(ctx, next, actor)
		case next.Status == StatusPriced && pricingFieldsChanged(prev, next):
			next, err = s.pricingEffects(ctx, next)
		}
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// applyPatch validates p against t and returns the edited trip, with its
// status untouched, plus the status the edit asks for.
func (s *Service) applyPatch(ctx context.Context, t Trip, p Patch) (Trip, Status, error) {
	if p.TripDate != nil {
		if p.TripDate.IsZero() {
			return t, "", shared.Invalid("trip_date is required")
		}
		t.TripDate = *p.TripDate
	}
	if p.StartPoint != nil {
		v := strings.TrimSpace(*p.StartPoint)
		if v == "" {
			return t, "", shared.Invalid("start_point is required")
		}
		t.StartPoint = v
	}
	if p.EndPoint != nil {
		v := strings.TrimSpace(*p.EndPoint)
		if v == "" {
			return t, "", shared.Invalid("end_point is required")
		}
		t.EndPoint = v
	}
	if p.Distance != nil {
		if !p.Distance.IsPositive() {
			return t, "", ErrInvalidDistance
		}
		t.Distance = *p.Distance
	}
	if p.CustomerID != nil && *p.CustomerID != t.CustomerID {
		if _, err := s.customer(ctx, *p.CustomerID); err != nil {
			return t, "", err
		}
		t.CustomerID = *p.CustomerID
	}
	if p.VehicleID != nil && *p.VehicleID != t.VehicleID {
		if _, err := s.vehicle(ctx, *p.VehicleID); err != nil {
			return t, "", err
		}
		t.VehicleID = *p.VehicleID
	}
	if p.DriverID != nil && *p.DriverID != t.DriverID {
		if _, err := s.staffMember(ctx, *p.DriverID); err != nil {
			return t, "", err
		}
		t.DriverID = *p.DriverID
	}
	switch {
	case p.RemoveAssistant:
		t.AssistantID = nil
	case p.AssistantID != nil:
		if _, err := s.staffMember(ctx, *p.AssistantID); err != nil {
			return t, "", err
		}
		id := *p.AssistantID
		t.AssistantID = &id
	}
	if t.AssistantID != nil && *t.AssistantID == t.DriverID {
		return t, "", ErrSameStaff
	}
	if p.Expenses != nil {
		if err := p.Expenses.Validate(); err != nil {
			return t, "", err
		}
		t.Expenses = roundExpenses(*p.Expenses)
	}
	if p.Notes != nil {
		t.Notes = strings.TrimSpace(*p.Notes)
	}

	target := t.Status
	if p.Status != nil {
		parsed, err := ParseStatus(*p.Status)
		if err != nil {
			return t, "", err
		}
		if !t.Status.CanMoveTo(parsed) {
			return t, "", fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, t.Status, parsed)
		}
		target = parsed
	}

	priceGiven := p.PriceForCustomer != nil || p.PriceForStaff != nil
	if priceGiven {
		switch target {
		case StatusPending:
			return t, "", fmt.Errorf("%w: trip must be approved before pricing", ErrInvalidTransition)
		case StatusWaitingForPrice:
			target = StatusPriced
		}
	}
	if p.PriceForCustomer != nil {
		v := shared.RoundDong(*p.PriceForCustomer)
		if !v.IsPositive() {
			return t, "", ErrInvalidPrice
		}
		if p.PriceForStaff == nil && (t.PriceForStaff.IsZero() || t.PriceForStaff.Equal(t.PriceForCustomer)) {
			t.PriceForStaff = v
		}
		t.PriceForCustomer = v
	}
	if p.PriceForStaff != nil {
		v := shared.RoundDong(*p.PriceForStaff)
		if !v.IsPositive() {
			return t, "", ErrInvalidStaffPrice
		}
		t.PriceForStaff = v
	}
	if target == StatusPriced {
		if !t.PriceForCustomer.IsPositive() {
			return t, "", ErrInvalidPrice
		}
		if !t.PriceForStaff.IsPositive() {
			t.PriceForStaff = t.PriceForCustomer
		}
	}
	return t, target, nil
}

func expenseFieldsChanged(prev, next Trip) bool {
	return !prev.Expenses.Total().Equal(next.Expenses.Total()) ||
		prev.DriverID != next.DriverID ||
		!prev.TripDate.Equal(next.TripDate) ||
		prev.CustomerID != next.CustomerID ||
		prev.StartPoint != next.StartPoint ||
		prev.EndPoint != next.EndPoint
}

func pricingFieldsChanged(prev, next Trip) bool {
	return !prev.PriceForCustomer.Equal(next.PriceForCustomer) ||
		!prev.PriceForStaff.Equal(next.PriceForStaff) ||
		prev.DriverID != next.DriverID ||
		!sameAssistant(prev.AssistantID, next.AssistantID) ||
		prev.CustomerID != next.CustomerID ||
		prev.TripDate.Year() != next.TripDate.Year() ||
		prev.TripDate.Month() != next.TripDate.Month()
}

func sameAssistant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// syncExpense makes the trip expense match the fee breakdown: create it when
// missing, rewrite it when present, and drop it when the breakdown is zero.
// Expenses of approved trips are settled as they change.
func (s *Service) syncExpense(ctx context.Context, t Trip) error {
	total := t.Expenses.Total()
	existing, err := s.deps.Expenses.GetForTrip(ctx, t.ID)
	missing := errors.Is(err, httpx.ErrNotFound)
	if err != nil && !missing {
		return err
	}
	switch {
	case missing && total.IsPositive():
		if _, err := s.deps.Expenses.CreateDeferred(ctx, s.expenseInput(ctx, t)); err != nil {
			return fmt.Errorf("create trip expense: %w", err)
		}
		if t.Status != StatusPending {
			return s.settle(ctx, t.ID)
		}
	case missing:
	case !total.IsPositive():
		if err := s.deps.Expenses.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete trip expense: %w", err)
		}
	default:
		if _, err := s.deps.Expenses.UpdateAmountAndSettle(ctx, existing.ID, s.expenseInput(ctx, t)); err != nil {
			return fmt.Errorf("update trip expense: %w", err)
		}
	}
	return nil
}

// ensureTripExpense backfills the trip expense when the breakdown is
// positive but no row exists yet.
func (s *Service) ensureTripExpense(ctx context.Context, t Trip) error {
	if !t.Expenses.Total().IsPositive() {
		return nil
	}
	_, err := s.deps.Expenses.GetForTrip(ctx, t.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, httpx.ErrNotFound) {
		return err
	}
	if _, err := s.deps.Expenses.CreateDeferred(ctx, s.expenseInput(ctx, t)); err != nil {
		return fmt.Errorf("backfill trip expense: %w", err)
	}
	return nil
}

func (s *Service) settle(ctx context.Context, tripID int64) error {
	n, err := s.deps.Expenses.SettleTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("settle trip expenses: %w", err)
	}
	if n > 0 {
		s.logger.Debug("trip expenses settled", slog.Int64("trip_id", tripID), slog.Int("count", n))
	}
	return nil
}

func (s *Service) expenseInput(ctx context.Context, t Trip) expense.Input {
	id := t.ID
	date := t.TripDate
	return expense.Input{
		Amount:      t.Expenses.Total(),
		Reason:      expense.TripExpenseReason,
		Description: s.describe(ctx, t),
		StaffID:     t.DriverID,
		TripID:      &id,
		Date:        &date,
	}
}

func (s *Service) describe(ctx context.Context, t Trip) string {
	company := ""
	if c, err := s.deps.Customers.Get(ctx, t.CustomerID); err == nil {
		company = c.DisplayName()
	}
	return fmt.Sprintf("%s ngày %s - %s - %s - %s",
		expense.TripExpenseReason, t.TripDate.Format("02/01/2006"), company, t.StartPoint, t.EndPoint)
}

// Delete removes a trip and its expense rows. Settled balances, wages
// already paid out and customer debt are not reversed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.withTripLock(ctx, id, func(ctx context.Context) error {
		if _, err := s.deps.Repo.Get(ctx, id); err != nil {
			return err
		}
		if err := s.deps.Expenses.DeleteForTrip(ctx, id); err != nil {
			return fmt.Errorf("delete trip expenses: %w", err)
		}
		if err := s.deps.Repo.Delete(ctx, id); err != nil {
			return err
		}
		actor, _ := s.actor(ctx)
		s.audit(ctx, "trip.delete", id, actor, nil)
		return nil
	})
}

// audit records action on a trip. Failures are logged only.
func (s *Service) audit(ctx context.Context, action string, tripID, actor int64, meta map[string]any) {
	err := s.deps.Audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "trip",
		EntityID: strconv.FormatInt(tripID, 10),
		Meta:     meta,
		At:       s.clock(),
	})
	if err != nil {
		s.logger.Warn("record trip audit", slog.String("action", action), slog.Int64("trip_id", tripID), slog.Any("error", err))
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Trip, error) {
	if id <= 0 {
		return Trip{}, ErrTripNotFound
	}
	return s.deps.Repo.Get(ctx, id)
}

// List returns one page of trips matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Trip, shared.Pagination, error) {
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	items, total, err := s.deps.Repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *Service) withTripLock(ctx context.Context, id int64, fn func(context.Context) error) error {
	if id <= 0 {
		return ErrTripNotFound
	}
	return s.deps.Locker.WithLock(ctx, shared.TripLockKey(id), s.cfg.LockTTL, fn)
}

func (s *Service) actor(ctx context.Context) (int64, bool) {
	if s.deps.Actors == nil {
		return 0, false
	}
	return s.deps.Actors.CurrentUserID(ctx)
}

func (s *Service) customer(ctx context.Context, id int64) (customers.Customer, error) {
	c, err := s.deps.Customers.Get(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status == customers.StatusInactive {
		return c, fmt.Errorf("%w: customer %d", ErrInactiveReference, id)
	}
	return c, nil
}

func (s *Service) vehicle(ctx context.Context, id int64) (vehicles.Vehicle, error) {
	v, err := s.deps.Vehicles.Get(ctx, id)
	if err != nil {
		return v, err
	}
	if v.Status == vehicles.StatusInactive {
		return v, fmt.Errorf("%w: vehicle %d", ErrInactiveReference, id)
	}
	return v, nil
}

func (s *Service) staffMember(ctx context.Context, id int64) (staff.Staff, error) {
	m, err := s.deps.Staff.Get(ctx, id)
	if err != nil {
		return m, err
	}
	if !m.Active() {
		return m, fmt.Errorf("%w: staff %d", ErrInactiveReference, id)
	}
	return m, nil
}

func roundExpenses(e Expenses) Expenses {
	return Expenses{
		PoliceFee:   shared.RoundDong(e.PoliceFee),
		TollFee:     shared.RoundDong(e.TollFee),
		FoodFee:     shared.RoundDong(e.FoodFee),
		GasMoney:    shared.RoundDong(e.GasMoney),
		MechanicFee: shared.RoundDong(e.MechanicFee),
	}
}
