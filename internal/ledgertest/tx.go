package ledgertest

import (
	"context"
	"sync"
)

type undoKey struct{}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (l *undoLog) push(step func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step)
}

func (l *undoLog) rollback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

// Transactor gives the in-memory store transaction semantics: writes made
// inside InTx are reverted when fn fails. Reverts are compensating, so
// writes from other goroutines are kept.
type Transactor struct{ s *Store }

// Transactor returns the store's transactor.
func (s *Store) Transactor() *Transactor { return &Transactor{s: s} }

// InTx runs fn and undoes its writes on error. Nested calls join the outer one.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		t.s.mu.Lock()
		log.rollback()
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers step to run, with the store locked, if the
// transaction carried by ctx fails.
func onRollback(ctx context.Context, step func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.push(step)
	}
}
