package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner starts transactions; *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool TxBeginner, fn func(pgx.Tx) error) error {
	return WithTxLevel(ctx, pool, pgx.RepeatableRead, fn)
}

// WithTxLevel executes fn within a transaction at the given isolation level.
// Ledger increments use ReadCommitted: an ON CONFLICT DO UPDATE on a hot row
// waits for the concurrent writer instead of failing with a serialization error.
func WithTxLevel(ctx context.Context, pool TxBeginner, level pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: level})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

type txKey struct{}

// TxFromContext returns the transaction opened by Transactor.InTx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// Conn returns the transaction carried by ctx, or fallback outside one.
func Conn(ctx context.Context, fallback Querier) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// Transactor groups repository calls from different packages into one
// transaction. Repositories join it through Conn or TxFromContext.
type Transactor struct {
	pool  TxBeginner
	level pgx.TxIsoLevel
}

// NewTransactor returns a Transactor running at ReadCommitted, the level
// the ledger upserts are written for.
func NewTransactor(pool TxBeginner) *Transactor {
	return &Transactor{pool: pool, level: pgx.ReadCommitted}
}

// InTx runs fn in a transaction carried by the context it receives. A
// nested call joins the outer transaction.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return WithTxLevel(ctx, t.pool, t.level, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
