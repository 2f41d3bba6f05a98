package balance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/platform/db"
	"github.com/truckops/truckops/internal/shared"
)

// Repository persists balances and their journal.
type Repository interface {
	// Apply adds delta to the balance atomically, creating it at zero when
	// missing, and journals entry with the resulting balance.
	Apply(ctx context.Context, shortName string, delta decimal.Decimal, entry Entry) (Balance, error)
	// Set overwrites the balance and journals the difference.
	Set(ctx context.Context, shortName string, value decimal.Decimal, entry Entry) (Balance, error)
	Get(ctx context.Context, shortName string) (Balance, error)
	List(ctx context.Context) ([]Balance, error)
	Entries(ctx context.Context, shortName string) ([]Entry, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// inTx runs fn on the caller's transaction when ctx carries one.
func (r *PGRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if tx, ok := db.TxFromContext(ctx); ok {
		return fn(tx)
	}
	return db.WithTxLevel(ctx, r.pool, pgx.ReadCommitted, fn)
}

func (r *PGRepository) Apply(ctx context.Context, shortName string, delta decimal.Decimal, entry Entry) (Balance, error) {
	var out Balance
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var updatedAt time.Time
		err := tx.QueryRow(ctx, `
			INSERT INTO balances (staff_short_name, balance, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (staff_short_name)
			DO UPDATE SET balance = balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
			RETURNING balance, updated_at`, shortName, delta, entry.Date).Scan(&out.Amount, &updatedAt)
		if err != nil {
			return err
		}
		out.StaffShortName = shortName
		out.UpdatedAt = &updatedAt
		entry.Delta = delta
		entry.BalanceAfter = out.Amount
		return insertEntry(ctx, tx, shortName, entry)
	})
	return out, shared.TranslateStoreError(err)
}

func (r *PGRepository) Set(ctx context.Context, shortName string, value decimal.Decimal, entry Entry) (Balance, error) {
	var out Balance
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO balances (staff_short_name, balance, updated_at) VALUES ($1, 0, $2)
			ON CONFLICT (staff_short_name) DO NOTHING`, shortName, entry.Date); err != nil {
			return err
		}
		var previous decimal.Decimal
		if err := tx.QueryRow(ctx, `SELECT balance FROM balances WHERE staff_short_name = $1 FOR UPDATE`, shortName).Scan(&previous); err != nil {
			return err
		}
		var updatedAt time.Time
		if err := tx.QueryRow(ctx, `
			UPDATE balances SET balance = $2, updated_at = $3 WHERE staff_short_name = $1
			RETURNING balance, updated_at`, shortName, value, entry.Date).Scan(&out.Amount, &updatedAt); err != nil {
			return err
		}
		out.StaffShortName = shortName
		out.UpdatedAt = &updatedAt
		entry.Delta = value.Sub(previous)
		entry.BalanceAfter = out.Amount
		return insertEntry(ctx, tx, shortName, entry)
	})
	return out, shared.TranslateStoreError(err)
}

func insertEntry(ctx context.Context, tx pgx.Tx, shortName string, e Entry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO balance_entries (staff_short_name, kind, delta, balance_after, reason, entry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		shortName, e.Kind, e.Delta, e.BalanceAfter, e.Reason, e.Date, time.Now().UTC())
	return err
}

func (r *PGRepository) Get(ctx context.Context, shortName string) (Balance, error) {
	var b Balance
	var updatedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `SELECT staff_short_name, balance, updated_at FROM balances WHERE staff_short_name = $1`, shortName).
		Scan(&b.StaffShortName, &b.Amount, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrBalanceNotFound
	}
	if err != nil {
		return Balance{}, err
	}
	if updatedAt.Valid {
		b.UpdatedAt = &updatedAt.Time
	}
	return b, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `SELECT staff_short_name, balance, updated_at FROM balances ORDER BY staff_short_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Balance
	for rows.Next() {
		var b Balance
		var updatedAt pgtype.Timestamptz
		if err := rows.Scan(&b.StaffShortName, &b.Amount, &updatedAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			b.UpdatedAt = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) Entries(ctx context.Context, shortName string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, staff_short_name, kind, delta, balance_after, reason, entry_date, created_at
		FROM balance_entries WHERE staff_short_name = $1
		ORDER BY entry_date DESC, id DESC`, shortName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StaffShortName, &e.Kind, &e.Delta, &e.BalanceAfter, &e.Reason, &e.Date, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
