package balance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/balance"
	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/ledgertest"
	"github.com/truckops/truckops/internal/masterdata/staff"
)

func seeded(t *testing.T) (context.Context, *ledgertest.System, ledgertest.Fixture) {
	t.Helper()
	ctx := context.Background()
	sys := ledgertest.NewSystem(ledgertest.Options{})
	f, err := sys.Seed(ctx)
	require.NoError(t, err)
	return ctx, sys, f
}

func TestCreditDebitJournal(t *testing.T) {
	ctx, sys, _ := seeded(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	b, err := sys.Balances.Credit(ctx, "An", decimal.NewFromInt(-1000000), "Tạm ứng", day)
	require.NoError(t, err)
	require.True(t, b.Amount.Equal(decimal.NewFromInt(1000000)))

	b, err = sys.Balances.Debit(ctx, "An", decimal.NewFromInt(250000), "Đổ dầu", day)
	require.NoError(t, err)
	require.True(t, b.Amount.Equal(decimal.NewFromInt(750000)))

	entries, err := sys.Balances.Entries(ctx, "An")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	kinds := map[balance.EntryKind]decimal.Decimal{}
	for _, e := range entries {
		kinds[e.Kind] = e.Delta
	}
	require.True(t, kinds[balance.EntryCredit].Equal(decimal.NewFromInt(1000000)))
	require.True(t, kinds[balance.EntryDebit].Equal(decimal.NewFromInt(-250000)))
}

func TestSetJournalsDifference(t *testing.T) {
	ctx, sys, _ := seeded(t)
	_, err := sys.Balances.Credit(ctx, "An", decimal.NewFromInt(100000), "Tạm ứng", time.Time{})
	require.NoError(t, err)

	b, err := sys.Balances.Set(ctx, "An", decimal.NewFromInt(-40000), "Đối soát", time.Time{})
	require.NoError(t, err)
	require.True(t, b.Amount.Equal(decimal.NewFromInt(-40000)))
	require.True(t, sys.Store.BalanceOf("An").Equal(decimal.NewFromInt(-40000)))
	require.Equal(t, 2, sys.Store.EntryCount())
}

func TestMovementValidation(t *testing.T) {
	ctx, sys, _ := seeded(t)

	_, err := sys.Balances.Credit(ctx, " ", decimal.NewFromInt(1), "x", time.Time{})
	require.ErrorIs(t, err, balance.ErrStaffRequired)

	_, err = sys.Balances.Credit(ctx, "An", decimal.NewFromInt(1), "  ", time.Time{})
	require.ErrorIs(t, err, balance.ErrReasonRequired)

	_, err = sys.Balances.Debit(ctx, "An", decimal.Zero, "x", time.Time{})
	require.ErrorIs(t, err, balance.ErrInvalidAmount)

	_, err = sys.Balances.Credit(ctx, "Nobody", decimal.NewFromInt(1), "x", time.Time{})
	require.ErrorIs(t, err, staff.ErrStaffNotFound)

	require.Equal(t, 0, sys.Store.EntryCount())
}

func TestGetIncludesHistory(t *testing.T) {
	ctx, sys, f := seeded(t)

	got, err := sys.Balances.Get(ctx, "Bình")
	require.NoError(t, err)
	require.True(t, got.Amount.IsZero())
	require.Empty(t, got.History)

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range []time.Time{older, newer} {
		d := d
		_, err := sys.Expenses.CreateImmediate(ctx, expense.Input{
			Amount: decimal.NewFromInt(10000), Reason: "Ăn trưa", StaffID: f.Assistant.ID, Date: &d,
		})
		require.NoError(t, err)
	}

	got, err = sys.Balances.Get(ctx, "Bình")
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(-20000)))
	require.Len(t, got.History, 2)
	require.True(t, got.History[0].Date.Equal(newer))
	require.True(t, got.History[0].BalanceUpdated)
}

func TestDashboardRows(t *testing.T) {
	ctx, sys, f := seeded(t)
	for i := 0; i < 4; i++ {
		d := time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC)
		_, err := sys.Expenses.CreateImmediate(ctx, expense.Input{
			Amount: decimal.NewFromInt(1000), Reason: "Gửi xe", StaffID: f.Driver.ID, Date: &d,
		})
		require.NoError(t, err)
	}

	rows, err := sys.Balances.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byName := map[string]balance.DashboardRow{}
	for _, r := range rows {
		byName[r.StaffShortName] = r
	}
	an := byName["An"]
	require.Equal(t, 4, an.ExpenseCount)
	require.Len(t, an.Recent, balance.RecentExpenseLimit)
	require.True(t, an.Amount.Equal(decimal.NewFromInt(-4000)))
	require.Equal(t, 4, an.Recent[0].Date.Day())

	binh := byName["Bình"]
	require.Zero(t, binh.ExpenseCount)
	require.NotNil(t, binh.Recent)
	require.True(t, binh.Amount.IsZero())
}

func TestSortHistoryPutsUndatedLast(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []balance.HistoryItem{{ExpenseID: 1}, {ExpenseID: 2, Date: &d}, {ExpenseID: 3, Date: &d}}
	balance.SortHistory(items)
	require.Equal(t, []int64{3, 2, 1}, []int64{items[0].ExpenseID, items[1].ExpenseID, items[2].ExpenseID})
}
