package expense

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/truckops/truckops/internal/platform/db"
	"github.com/truckops/truckops/internal/shared"
)

// Repository persists expenses. Replace, ClaimUnsettled and Delete lock the
// rows they touch so settlement and edits never both see the same state.
type Repository interface {
	Create(ctx context.Context, e Expense) (Expense, error)
	Get(ctx context.Context, id int64) (Expense, error)
	// GetForTrip returns the trip's generated expense.
	GetForTrip(ctx context.Context, tripID int64) (Expense, error)
	// Replace overwrites the editable fields and returns the row as it was before.
	Replace(ctx context.Context, id int64, next Expense) (Expense, error)
	// Delete removes the expense and returns the removed row.
	Delete(ctx context.Context, id int64) (Expense, error)
	DeleteForTrip(ctx context.Context, tripID int64) (int64, error)
	// ClaimUnsettled flips balance_updated on every unsettled expense of the
	// trip and returns the claimed rows. It joins the transaction carried by
	// ctx, so the claim commits or rolls back with the debits.
	ClaimUnsettled(ctx context.Context, tripID int64) ([]Expense, error)
	List(ctx context.Context, filter Filter) ([]Expense, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL expense repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const expenseColumns = `id, amount, reason, description, staff_id, staff_short_name, trip_id, expense_date, balance_updated, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Reason, &e.Description, &e.StaffID, &e.StaffShortName,
		&e.TripID, &e.Date, &e.BalanceUpdated, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrExpenseNotFound
	}
	return e, err
}

func collect(rows pgx.Rows) ([]Expense, error) {
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	now := time.Now().UTC()
	created, err := scanExpense(r.db.QueryRow(ctx, `
		INSERT INTO expenses (amount, reason, description, staff_id, staff_short_name, trip_id, expense_date, balance_updated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+expenseColumns,
		e.Amount, e.Reason, e.Description, e.StaffID, e.StaffShortName, e.TripID, e.Date, e.BalanceUpdated, now))
	return created, shared.TranslateStoreError(err)
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
}

func (r *repository) GetForTrip(ctx context.Context, tripID int64) (Expense, error) {
	return scanExpense(r.db.QueryRow(ctx, `
		SELECT `+expenseColumns+` FROM expenses WHERE trip_id = $1 ORDER BY id LIMIT 1`, tripID))
}

func (r *repository) Replace(ctx context.Context, id int64, next Expense) (Expense, error) {
	var previous Expense
	err := db.WithTxLevel(ctx, r.db, pgx.ReadCommitted, func(tx pgx.Tx) error {
		var err error
		previous, err = scanExpense(tx.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE expenses
			SET amount = $2, reason = $3, description = $4, staff_id = $5, staff_short_name = $6,
				trip_id = $7, expense_date = $8, updated_at = $9
			WHERE id = $1`,
			id, next.Amount, next.Reason, next.Description, next.StaffID, next.StaffShortName,
			next.TripID, next.Date, time.Now().UTC())
		return err
	})
	if errors.Is(err, ErrExpenseNotFound) {
		return Expense{}, err
	}
	return previous, shared.TranslateStoreError(err)
}

func (r *repository) Delete(ctx context.Context, id int64) (Expense, error) {
	removed, err := scanExpense(r.db.QueryRow(ctx, `DELETE FROM expenses WHERE id = $1 RETURNING `+expenseColumns, id))
	return removed, err
}

func (r *repository) DeleteForTrip(ctx context.Context, tripID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE trip_id = $1`, tripID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ClaimUnsettled(ctx context.Context, tripID int64) ([]Expense, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		UPDATE expenses SET balance_updated = TRUE, updated_at = $2
		WHERE trip_id = $1 AND balance_updated = FALSE
		RETURNING `+expenseColumns, tripID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	args := []any{}
	if filter.TripID != nil {
		args = append(args, *filter.TripID)
		query += ` AND trip_id = $` + strconv.Itoa(len(args))
	}
	if filter.StaffShortName != "" {
		args = append(args, filter.StaffShortName)
		query += ` AND staff_short_name = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY expense_date DESC NULLS LAST, id DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
