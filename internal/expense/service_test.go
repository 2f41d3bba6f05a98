package expense_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/ledgertest"
	"github.com/truckops/truckops/internal/masterdata/staff"
)

type settledCounter struct {
	mu sync.Mutex
	n  int
}

func (c *settledCounter) ExpensesSettled(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n += n
}

var day = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T, opts ledgertest.Options) (context.Context, *ledgertest.System, ledgertest.Fixture) {
	t.Helper()
	ctx := context.Background()
	sys := ledgertest.NewSystem(opts)
	f, err := sys.Seed(ctx)
	require.NoError(t, err)
	return ctx, sys, f
}

func input(staffID int64, amount int64, tripID *int64) expense.Input {
	d := day
	return expense.Input{
		Amount:  decimal.NewFromInt(amount),
		Reason:  "Phí cầu đường",
		StaffID: staffID,
		TripID:  tripID,
		Date:    &d,
	}
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCreateImmediateDebits(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})

	e, err := sys.Expenses.CreateImmediate(ctx, input(f.Driver.ID, -150000, nil))
	require.NoError(t, err)
	require.True(t, e.Settled())
	require.True(t, e.Amount.Equal(amount(150000)))
	require.Equal(t, "An", e.StaffShortName)
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-150000)))
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})

	_, err := sys.Expenses.CreateImmediate(ctx, input(f.Driver.ID, 0, nil))
	require.ErrorIs(t, err, expense.ErrInvalidAmount)

	bad := int64(-3)
	_, err = sys.Expenses.CreateDeferred(ctx, input(f.Driver.ID, 10, &bad))
	require.ErrorIs(t, err, expense.ErrInvalidTrip)

	_, err = sys.Expenses.CreateImmediate(ctx, input(9999, 10, nil))
	require.ErrorIs(t, err, staff.ErrStaffNotFound)

	noReason := input(f.Driver.ID, 10, nil)
	noReason.Reason = " "
	_, err = sys.Expenses.CreateImmediate(ctx, noReason)
	require.Error(t, err)

	require.Empty(t, sys.Store.Expenses())
	require.Equal(t, 0, sys.Store.EntryCount())
}

func TestCreateImmediateFailedDebitStoresNothing(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})
	sys.Store.FailBalanceWrites("An", 1)

	_, err := sys.Expenses.CreateImmediate(ctx, input(f.Driver.ID, 10000, nil))
	require.ErrorIs(t, err, ledgertest.ErrInjected)
	require.Empty(t, sys.Store.Expenses())
}

func TestSettleTripIsIdempotent(t *testing.T) {
	counter := &settledCounter{}
	ctx, sys, f := seeded(t, ledgertest.Options{Observer: counter})
	tripID := int64(77)

	_, err := sys.Expenses.CreateDeferred(ctx, input(f.Driver.ID, 100000, &tripID))
	require.NoError(t, err)
	_, err = sys.Expenses.CreateDeferred(ctx, input(f.Assistant.ID, 40000, &tripID))
	require.NoError(t, err)
	require.True(t, sys.Store.BalanceOf("An").IsZero())

	n, err := sys.Expenses.SettleTrip(ctx, tripID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = sys.Expenses.SettleTrip(ctx, tripID)
	require.NoError(t, err)
	require.Zero(t, n)

	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-100000)))
	require.True(t, sys.Store.BalanceOf("Bình").Equal(amount(-40000)))
	require.Equal(t, 2, counter.n)

	_, err = sys.Expenses.SettleTrip(ctx, 0)
	require.ErrorIs(t, err, expense.ErrInvalidTrip)
}

func TestSettleTripRollsBackOnFailure(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})
	tripID := int64(5)
	_, err := sys.Expenses.CreateDeferred(ctx, input(f.Driver.ID, 100000, &tripID))
	require.NoError(t, err)
	_, err = sys.Expenses.CreateDeferred(ctx, input(f.Assistant.ID, 40000, &tripID))
	require.NoError(t, err)

	sys.Store.FailBalanceWrites("Bình", 1)
	n, err := sys.Expenses.SettleTrip(ctx, tripID)
	require.ErrorIs(t, err, ledgertest.ErrInjected)
	require.Zero(t, n)
	require.True(t, sys.Store.BalanceOf("An").IsZero())
	for _, e := range sys.Store.Expenses() {
		require.False(t, e.BalanceUpdated, "expense %d stayed claimed", e.ID)
	}
	entries, err := sys.Balances.Entries(ctx, "An")
	require.NoError(t, err)
	require.Empty(t, entries)

	n, err = sys.Expenses.SettleTrip(ctx, tripID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-100000)))
	require.True(t, sys.Store.BalanceOf("Bình").Equal(amount(-40000)))
}

func TestUpdateAppliesDelta(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})
	e, err := sys.Expenses.CreateImmediate(ctx, input(f.Driver.ID, 100000, nil))
	require.NoError(t, err)

	_, err = sys.Expenses.UpdateAmountAndSettle(ctx, e.ID, input(f.Driver.ID, 130000, nil))
	require.NoError(t, err)
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-130000)))

	_, err = sys.Expenses.UpdateAmountAndSettle(ctx, e.ID, input(f.Driver.ID, 90000, nil))
	require.NoError(t, err)
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-90000)))

	moved, err := sys.Expenses.UpdateAmountAndSettle(ctx, e.ID, input(f.Assistant.ID, 90000, nil))
	require.NoError(t, err)
	require.Equal(t, "Bình", moved.StaffShortName)
	require.True(t, sys.Store.BalanceOf("An").IsZero())
	require.True(t, sys.Store.BalanceOf("Bình").Equal(amount(-90000)))
}

func TestUpdateDeferredLeavesBalance(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})
	tripID := int64(9)
	e, err := sys.Expenses.CreateDeferred(ctx, input(f.Driver.ID, 100000, &tripID))
	require.NoError(t, err)

	updated, err := sys.Expenses.UpdateAmountAndSettle(ctx, e.ID, input(f.Driver.ID, 120000, &tripID))
	require.NoError(t, err)
	require.False(t, updated.Settled())
	require.True(t, sys.Store.BalanceOf("An").IsZero())

	_, err = sys.Expenses.SettleTrip(ctx, tripID)
	require.NoError(t, err)
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-120000)))
}

func TestDeleteCreditsSettledOnly(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})
	settled, err := sys.Expenses.CreateImmediate(ctx, input(f.Driver.ID, 70000, nil))
	require.NoError(t, err)
	tripID := int64(3)
	deferred, err := sys.Expenses.CreateDeferred(ctx, input(f.Driver.ID, 20000, &tripID))
	require.NoError(t, err)

	require.NoError(t, sys.Expenses.Delete(ctx, deferred.ID))
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-70000)))

	require.NoError(t, sys.Expenses.Delete(ctx, settled.ID))
	require.True(t, sys.Store.BalanceOf("An").IsZero())

	require.ErrorIs(t, sys.Expenses.Delete(ctx, settled.ID), expense.ErrExpenseNotFound)
}

func TestSummaryByStaff(t *testing.T) {
	ctx, sys, f := seeded(t, ledgertest.Options{})
	for i := 1; i <= 5; i++ {
		in := input(f.Driver.ID, int64(i*1000), nil)
		d := day.AddDate(0, 0, i)
		in.Date = &d
		_, err := sys.Expenses.CreateImmediate(ctx, in)
		require.NoError(t, err)
	}
	_, err := sys.Expenses.CreateImmediate(ctx, input(f.Assistant.ID, 500, nil))
	require.NoError(t, err)

	summary, err := sys.Expenses.SummaryByStaff(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	require.Equal(t, "An", summary[0].StaffShortName)
	require.Equal(t, 5, summary[0].Count)
	require.True(t, summary[0].Total.Equal(amount(15000)))
	require.Len(t, summary[0].Recent, expense.RecentLimit)
	require.True(t, summary[0].Recent[0].Amount.Equal(amount(5000)))
	require.Equal(t, 1, summary[1].Count)
}
