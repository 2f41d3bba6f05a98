package shared_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/shared"
)

func TestFormatVND(t *testing.T) {
	require.Equal(t, "15.000.000 ₫", shared.FormatVND(decimal.NewFromInt(15000000)))
	require.Equal(t, "500.000 ₫", shared.FormatVND(decimal.NewFromInt(500000)))
	require.Equal(t, "0 ₫", shared.FormatVND(decimal.Zero))
}

func TestRoundDong(t *testing.T) {
	require.True(t, shared.RoundDong(decimal.RequireFromString("100000.5")).Equal(decimal.NewFromInt(100001)))
	require.True(t, shared.RoundDong(decimal.RequireFromString("99999.4")).Equal(decimal.NewFromInt(99999)))
}
