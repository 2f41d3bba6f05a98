package trip

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/shared"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL trip repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const tripColumns = `id, trip_date, start_point, end_point, distance, customer_id, vehicle_id, driver_id, assistant_id,
	status, price_for_customer, price_for_staff, police_fee, toll_fee, food_fee, gas_money, mechanic_fee,
	source, notes, approved_at, approved_by, priced_at, priced_by, debt_customer_id, debt_year, debt_amount,
	created_at, updated_at`

func scanTrip(row pgx.Row) (Trip, error) {
	var (
		t            Trip
		debtCustomer *int64
		debtYear     *int
	)
	err := row.Scan(&t.ID, &t.TripDate, &t.StartPoint, &t.EndPoint, &t.Distance, &t.CustomerID, &t.VehicleID,
		&t.DriverID, &t.AssistantID, &t.Status, &t.PriceForCustomer, &t.PriceForStaff,
		&t.Expenses.PoliceFee, &t.Expenses.TollFee, &t.Expenses.FoodFee, &t.Expenses.GasMoney, &t.Expenses.MechanicFee,
		&t.Source, &t.Notes, &t.ApprovedAt, &t.ApprovedBy, &t.PricedAt, &t.PricedBy,
		&debtCustomer, &debtYear, &t.Debt.Amount, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, ErrTripNotFound
	}
	if err != nil {
		return Trip{}, err
	}
	if debtCustomer != nil {
		t.Debt.CustomerID = *debtCustomer
	}
	if debtYear != nil {
		t.Debt.Year = *debtYear
	}
	return t, nil
}

// debtColumns maps an unrecorded contribution to NULL bucket columns.
func debtColumns(d DebtContribution) (*int64, *int, decimal.Decimal) {
	if d.CustomerID <= 0 {
		return nil, nil, decimal.Zero
	}
	customer, year := d.CustomerID, d.Year
	return &customer, &year, d.Amount
}

func (r *repository) Create(ctx context.Context, t Trip) (Trip, error) {
	now := time.Now().UTC()
	debtCustomer, debtYear, debtAmount := debtColumns(t.Debt)
	created, err := scanTrip(r.db.QueryRow(ctx, `
		INSERT INTO trips (trip_date, start_point, end_point, distance, customer_id, vehicle_id, driver_id, assistant_id,
			status, price_for_customer, price_for_staff, police_fee, toll_fee, food_fee, gas_money, mechanic_fee,
			source, notes, approved_at, approved_by, priced_at, priced_by, debt_customer_id, debt_year, debt_amount,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26, $26)
		RETURNING `+tripColumns,
		t.TripDate, t.StartPoint, t.EndPoint, t.Distance, t.CustomerID, t.VehicleID, t.DriverID, t.AssistantID,
		t.Status, t.PriceForCustomer, t.PriceForStaff,
		t.Expenses.PoliceFee, t.Expenses.TollFee, t.Expenses.FoodFee, t.Expenses.GasMoney, t.Expenses.MechanicFee,
		t.Source, t.Notes, t.ApprovedAt, t.ApprovedBy, t.PricedAt, t.PricedBy, debtCustomer, debtYear, debtAmount, now))
	return created, shared.TranslateStoreError(err)
}

func (r *repository) Get(ctx context.Context, id int64) (Trip, error) {
	return scanTrip(r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
}

func (r *repository) Update(ctx context.Context, t Trip) (Trip, error) {
	debtCustomer, debtYear, debtAmount := debtColumns(t.Debt)
	updated, err := scanTrip(r.db.QueryRow(ctx, `
		UPDATE trips
		SET trip_date = $2, start_point = $3, end_point = $4, distance = $5, customer_id = $6, vehicle_id = $7,
			driver_id = $8, assistant_id = $9, status = $10, price_for_customer = $11, price_for_staff = $12,
			police_fee = $13, toll_fee = $14, food_fee = $15, gas_money = $16, mechanic_fee = $17,
			notes = $18, approved_at = $19, approved_by = $20, priced_at = $21, priced_by = $22,
			debt_customer_id = $23, debt_year = $24, debt_amount = $25, updated_at = $26
		WHERE id = $1
		RETURNING `+tripColumns,
		t.ID, t.TripDate, t.StartPoint, t.EndPoint, t.Distance, t.CustomerID, t.VehicleID,
		t.DriverID, t.AssistantID, t.Status, t.PriceForCustomer, t.PriceForStaff,
		t.Expenses.PoliceFee, t.Expenses.TollFee, t.Expenses.FoodFee, t.Expenses.GasMoney, t.Expenses.MechanicFee,
		t.Notes, t.ApprovedAt, t.ApprovedBy, t.PricedAt, t.PricedBy,
		debtCustomer, debtYear, debtAmount, time.Now().UTC()))
	if errors.Is(err, ErrTripNotFound) {
		return Trip{}, err
	}
	return updated, shared.TranslateStoreError(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return shared.TranslateStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Trip, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}
	switch filter.Mode {
	case ModePending:
		add("status = ?", StatusPending)
	case ModeNonPending:
		add("status <> ?", StatusPending)
	}
	if filter.Status != "" {
		add("status = ?", filter.Status)
	}
	if filter.DriverID != nil {
		add("driver_id = ?", *filter.DriverID)
	}
	if filter.AssistantID != nil {
		add("assistant_id = ?", *filter.AssistantID)
	}
	if filter.CustomerID != nil {
		add("customer_id = ?", *filter.CustomerID)
	}
	if filter.VehicleID != nil {
		add("vehicle_id = ?", *filter.VehicleID)
	}
	if filter.From != nil {
		add("trip_date >= ?", *filter.From)
	}
	if filter.To != nil {
		add("trip_date <= ?", *filter.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trips`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := `SELECT ` + tripColumns + ` FROM trips` + clause +
		` ORDER BY trip_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
