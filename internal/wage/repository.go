package wage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/truckops/truckops/internal/shared"
)

// Repository persists wage rows and salary adjustments.
type Repository interface {
	// UpsertWage replaces the row keyed by (trip, staff).
	UpsertWage(ctx context.Context, rec Record) (Record, error)
	// DeleteTripWagesExcept drops wage rows of staff no longer on the trip.
	DeleteTripWagesExcept(ctx context.Context, tripID int64, keepStaffIDs []int64) error
	ListForStaff(ctx context.Context, staffID int64) ([]Record, error)
	ListForTrip(ctx context.Context, tripID int64) ([]Record, error)
	// StaffTrips lists trips where the staff member drove or assisted.
	StaffTrips(ctx context.Context, staffID int64) ([]TripRecord, error)
	UpsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error)
	GetAdjustment(ctx context.Context, staffID int64, year, month int) (Adjustment, error)
	ListAdjustments(ctx context.Context, staffID int64) ([]Adjustment, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL wage repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const (
	recordColumns     = `id, trip_id, staff_id, role, amount, notes, created_at, updated_at`
	adjustmentColumns = `id, staff_id, year, month, amount, reason, created_at, updated_at`
)

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.TripID, &rec.StaffID, &rec.Role, &rec.Amount, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func scanAdjustment(row pgx.Row) (Adjustment, error) {
	var adj Adjustment
	err := row.Scan(&adj.ID, &adj.StaffID, &adj.Year, &adj.Month, &adj.Amount, &adj.Reason, &adj.CreatedAt, &adj.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, ErrAdjustmentNotFound
	}
	return adj, err
}

func (r *repository) UpsertWage(ctx context.Context, rec Record) (Record, error) {
	now := time.Now().UTC()
	saved, err := scanRecord(r.db.QueryRow(ctx, `
		INSERT INTO staff_wages (trip_id, staff_id, role, amount, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (trip_id, staff_id)
		DO UPDATE SET role = EXCLUDED.role, amount = EXCLUDED.amount, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns, rec.TripID, rec.StaffID, rec.Role, rec.Amount, rec.Notes, now))
	return saved, shared.TranslateStoreError(err)
}

func (r *repository) DeleteTripWagesExcept(ctx context.Context, tripID int64, keepStaffIDs []int64) error {
	if keepStaffIDs == nil {
		keepStaffIDs = []int64{}
	}
	_, err := r.db.Exec(ctx, `DELETE FROM staff_wages WHERE trip_id = $1 AND NOT (staff_id = ANY($2))`, tripID, keepStaffIDs)
	return err
}

func (r *repository) listRecords(ctx context.Context, query string, arg int64) ([]Record, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repository) ListForStaff(ctx context.Context, staffID int64) ([]Record, error) {
	return r.listRecords(ctx, `SELECT `+recordColumns+` FROM staff_wages WHERE staff_id = $1 ORDER BY created_at DESC, id DESC`, staffID)
}

func (r *repository) ListForTrip(ctx context.Context, tripID int64) ([]Record, error) {
	return r.listRecords(ctx, `SELECT `+recordColumns+` FROM staff_wages WHERE trip_id = $1 ORDER BY role DESC, staff_id`, tripID)
}

func (r *repository) StaffTrips(ctx context.Context, staffID int64) ([]TripRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, trip_date, status = 'PRICED', COALESCE(price_for_customer, 0), COALESCE(price_for_staff, 0),
			driver_id, assistant_id, customer_id, start_point, end_point
		FROM trips
		WHERE driver_id = $1 OR assistant_id = $1
		ORDER BY trip_date DESC NULLS LAST, id DESC`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TripRecord
	for rows.Next() {
		var t TripRecord
		if err := rows.Scan(&t.ID, &t.TripDate, &t.Priced, &t.PriceForCustomer, &t.PriceForStaff,
			&t.DriverID, &t.AssistantID, &t.CustomerID, &t.StartPoint, &t.EndPoint); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) UpsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error) {
	now := time.Now().UTC()
	saved, err := scanAdjustment(r.db.QueryRow(ctx, `
		INSERT INTO salary_adjustments (staff_id, year, month, amount, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (staff_id, year, month)
		DO UPDATE SET amount = EXCLUDED.amount, reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at
		RETURNING `+adjustmentColumns, adj.StaffID, adj.Year, adj.Month, adj.Amount, adj.Reason, now))
	return saved, shared.TranslateStoreError(err)
}

func (r *repository) GetAdjustment(ctx context.Context, staffID int64, year, month int) (Adjustment, error) {
	return scanAdjustment(r.db.QueryRow(ctx, `
		SELECT `+adjustmentColumns+` FROM salary_adjustments WHERE staff_id = $1 AND year = $2 AND month = $3`,
		staffID, year, month))
}

func (r *repository) ListAdjustments(ctx context.Context, staffID int64) ([]Adjustment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+adjustmentColumns+` FROM salary_adjustments WHERE staff_id = $1 ORDER BY year DESC, month DESC`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Adjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, adj)
	}
	return out, rows.Err()
}
