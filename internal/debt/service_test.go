package debt_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/ledgertest"
	"github.com/truckops/truckops/internal/masterdata/customers"
	"github.com/truckops/truckops/internal/platform/cache"
)

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newSystem(t *testing.T, withCache bool) (context.Context, *ledgertest.System, ledgertest.Fixture) {
	t.Helper()
	var c *cache.Cache
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		c = cache.NewCache(client, "debt-test", time.Minute)
	}
	ctx := context.Background()
	sys := ledgertest.NewSystem(ledgertest.Options{Cache: c})
	f, err := sys.Seed(ctx)
	require.NoError(t, err)
	return ctx, sys, f
}

func TestAccumulateAndAdjust(t *testing.T) {
	ctx, sys, f := newSystem(t, false)

	_, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(3000000))
	require.NoError(t, err)
	d, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(2000000))
	require.NoError(t, err)
	require.True(t, d.Amount.Equal(amount(5000000)))

	d, err = sys.Debts.Adjust(ctx, f.Customer.ID, 2024, amount(-1500000))
	require.NoError(t, err)
	require.True(t, d.Amount.Equal(amount(3500000)))

	_, err = sys.Debts.Adjust(ctx, f.Customer.ID, 2024, decimal.Zero)
	require.NoError(t, err)
	require.True(t, sys.Store.DebtOf(f.Customer.ID, 2024).Equal(amount(3500000)))
}

func TestAccumulateValidation(t *testing.T) {
	ctx, sys, f := newSystem(t, false)

	_, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, decimal.Zero)
	require.ErrorIs(t, err, debt.ErrInvalidAmount)
	_, err = sys.Debts.Accumulate(ctx, 0, 2024, amount(1))
	require.ErrorIs(t, err, debt.ErrInvalidCustomer)
	_, err = sys.Debts.Accumulate(ctx, f.Customer.ID, 1999, amount(1))
	require.ErrorIs(t, err, debt.ErrInvalidYear)
	_, err = sys.Debts.Accumulate(ctx, 4242, 2024, amount(1))
	require.ErrorIs(t, err, customers.ErrCustomerNotFound)
}

func TestPaymentsReduceRemaining(t *testing.T) {
	ctx, sys, f := newSystem(t, false)
	_, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2023, amount(1000000))
	require.NoError(t, err)
	_, err = sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(5000000))
	require.NoError(t, err)

	paid := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	p, err := sys.Debts.RecordPayment(ctx, debt.PaymentInput{CustomerID: f.Customer.ID, Amount: amount(2000000), Date: &paid})
	require.NoError(t, err)
	require.Equal(t, 2024, p.Year)

	prior := 2023
	_, err = sys.Debts.RecordPayment(ctx, debt.PaymentInput{CustomerID: f.Customer.ID, Amount: amount(400000), Date: &paid, Year: &prior})
	require.NoError(t, err)

	total, err := sys.Debts.RemainingDebt(ctx, f.Customer.ID, nil)
	require.NoError(t, err)
	require.True(t, total.Equal(amount(3600000)))

	y2024 := 2024
	rem, err := sys.Debts.RemainingDebt(ctx, f.Customer.ID, &y2024)
	require.NoError(t, err)
	require.True(t, rem.Equal(amount(3000000)))

	empty := 2030
	rem, err = sys.Debts.RemainingDebt(ctx, f.Customer.ID, &empty)
	require.NoError(t, err)
	require.True(t, rem.IsZero())

	require.True(t, sys.Store.DebtOf(f.Customer.ID, 2024).Equal(amount(5000000)))

	_, err = sys.Debts.RecordPayment(ctx, debt.PaymentInput{CustomerID: f.Customer.ID, Amount: amount(-1)})
	require.ErrorIs(t, err, debt.ErrInvalidAmount)

	require.NoError(t, sys.Debts.DeletePayment(ctx, p.ID))
	require.ErrorIs(t, sys.Debts.DeletePayment(ctx, p.ID), debt.ErrPaymentNotFound)
	total, err = sys.Debts.RemainingDebt(ctx, f.Customer.ID, nil)
	require.NoError(t, err)
	require.True(t, total.Equal(amount(5600000)))
}

func TestCustomerDetail(t *testing.T) {
	ctx, sys, f := newSystem(t, false)
	_, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2023, amount(1000000))
	require.NoError(t, err)
	_, err = sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(2000000))
	require.NoError(t, err)

	detail, err := sys.Debts.Customer(ctx, f.Customer.ID)
	require.NoError(t, err)
	require.Equal(t, "Công ty Hòa Phát", detail.DisplayName)
	require.Len(t, detail.Debts, 2)
	require.Empty(t, detail.Payments)
	require.Len(t, detail.Years, 2)
	require.Equal(t, 2024, detail.Years[0].Year)
	require.True(t, detail.Remaining.Equal(amount(3000000)))
}

func TestSummaryIsCachedUntilWrite(t *testing.T) {
	ctx, sys, f := newSystem(t, true)
	_, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(1000000))
	require.NoError(t, err)

	first, err := sys.Debts.Summary(ctx)
	require.NoError(t, err)
	require.True(t, first.TotalDebt.Equal(amount(1000000)))

	// Written behind the service's back: the cached summary stays stale.
	_, err = sys.Store.DebtRepo().Add(ctx, f.Customer.ID, 2024, amount(500000))
	require.NoError(t, err)
	cached, err := sys.Debts.Summary(ctx)
	require.NoError(t, err)
	require.True(t, cached.TotalDebt.Equal(amount(1000000)))

	fresh, err := sys.Debts.RefreshSummary(ctx)
	require.NoError(t, err)
	require.True(t, fresh.TotalDebt.Equal(amount(1500000)))

	paid := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = sys.Debts.RecordPayment(ctx, debt.PaymentInput{CustomerID: f.Customer.ID, Amount: amount(200000), Date: &paid})
	require.NoError(t, err)
	after, err := sys.Debts.Summary(ctx)
	require.NoError(t, err)
	require.True(t, after.Remaining.Equal(amount(1300000)))
}

func TestSummaryWithoutCache(t *testing.T) {
	ctx, sys, f := newSystem(t, false)
	other, err := sys.Customers.Create(ctx, customers.Form{RepresentativeName: "Chị Lan"})
	require.NoError(t, err)
	_, err = sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(700000))
	require.NoError(t, err)

	summary, err := sys.Debts.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Customers, 2)
	byID := map[int64]debt.CustomerSummary{}
	for _, c := range summary.Customers {
		byID[c.CustomerID] = c
	}
	require.Equal(t, "Chị Lan", byID[other.ID].DisplayName)
	require.True(t, byID[other.ID].Remaining.IsZero())
	require.True(t, summary.Remaining.Equal(amount(700000)))
}

func TestExportSummaryWorkbook(t *testing.T) {
	ctx, sys, f := newSystem(t, false)
	_, err := sys.Debts.Accumulate(ctx, f.Customer.ID, 2024, amount(5000000))
	require.NoError(t, err)
	paid := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = sys.Debts.RecordPayment(ctx, debt.PaymentInput{CustomerID: f.Customer.ID, Amount: amount(1500000), Date: &paid})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sys.Debts.ExportSummary(ctx, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	require.Equal(t, []string{"Công nợ", "Theo năm"}, book.GetSheetList())
	rows, err := book.GetRows("Công nợ")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Khách hàng", rows[0][1])
	require.Equal(t, "Công ty Hòa Phát", rows[1][1])
	require.Equal(t, "Tổng cộng", rows[2][1])

	remaining, err := book.GetCellValue("Công nợ", "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "3500000", remaining)

	years, err := book.GetRows("Theo năm")
	require.NoError(t, err)
	require.Len(t, years, 2)
	require.Equal(t, "2024", years[1][2])
}
