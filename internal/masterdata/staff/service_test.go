package staff_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/ledgertest"
	mdshared "github.com/truckops/truckops/internal/masterdata/shared"
	"github.com/truckops/truckops/internal/masterdata/staff"
	"github.com/truckops/truckops/internal/shared"
	"github.com/truckops/truckops/internal/trip"
)

func TestCreateValidatesAndKeepsShortNameUnique(t *testing.T) {
	ctx := context.Background()
	sys := ledgertest.NewSystem(ledgertest.Options{})

	created, err := sys.Staff.Create(ctx, staff.Form{FullName: "  Lê Văn Cường ", ShortName: " Cường "})
	require.NoError(t, err)
	require.Equal(t, "Cường", created.ShortName)
	require.Equal(t, staff.StatusActive, created.Status)

	_, err = sys.Staff.Create(ctx, staff.Form{FullName: "Another", ShortName: "Cường"})
	require.ErrorIs(t, err, staff.ErrShortNameTaken)

	_, err = sys.Staff.Create(ctx, staff.Form{ShortName: "X"})
	require.Error(t, err)

	_, err = sys.Staff.Get(ctx, 0)
	require.ErrorIs(t, err, mdshared.ErrInvalidID)
}

func TestRenameCarriesLedgers(t *testing.T) {
	ctx := context.Background()
	sys := ledgertest.NewSystem(ledgertest.Options{})
	f, err := sys.Seed(ctx)
	require.NoError(t, err)

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err = sys.Expenses.CreateImmediate(ctx, expense.Input{Amount: decimal.NewFromInt(30000), Reason: "Rửa xe", StaffID: f.Driver.ID, Date: &day})
	require.NoError(t, err)

	renamed, err := sys.Staff.Update(ctx, f.Driver.ID, staff.Form{FullName: f.Driver.FullName, ShortName: "An Nguyễn"})
	require.NoError(t, err)
	require.Equal(t, "An Nguyễn", renamed.ShortName)

	require.True(t, sys.Store.BalanceOf("An").IsZero())
	require.True(t, sys.Store.BalanceOf("An Nguyễn").Equal(decimal.NewFromInt(-30000)))
	require.Equal(t, "An Nguyễn", sys.Store.Expenses()[0].StaffShortName)

	_, err = sys.Staff.Update(ctx, f.Driver.ID, staff.Form{FullName: "x", ShortName: "Bình"})
	require.ErrorIs(t, err, staff.ErrShortNameTaken)

	_, err = sys.Staff.Update(ctx, f.Driver.ID, staff.Form{FullName: "Same", ShortName: "An Nguyễn"})
	require.NoError(t, err)
}

func TestInactiveStaffCannotDrive(t *testing.T) {
	ctx := shared.ContextWithUserID(context.Background(), 1)
	sys := ledgertest.NewSystem(ledgertest.Options{})
	f, err := sys.Seed(ctx)
	require.NoError(t, err)

	require.NoError(t, sys.Staff.Deactivate(ctx, f.Driver.ID))
	got, err := sys.Staff.Get(ctx, f.Driver.ID)
	require.NoError(t, err)
	require.False(t, got.Active())

	_, err = sys.Trips.Create(ctx, f.TripInput(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 0))
	require.ErrorIs(t, err, trip.ErrInactiveReference)

	list, total, err := sys.Staff.List(ctx, mdshared.ListFilters{Status: string(staff.StatusActive)})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Bình", list[0].ShortName)
}
