package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, DebtPolicyDelta, cfg.DebtEditPolicy)
	require.True(t, cfg.WageDriverRate.Equal(decimal.RequireFromString("0.10")))
	require.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			SessionSecret:           "x",
			TripDefaultStatus:       "PENDING",
			TripPublicDefaultStatus: "waiting_for_price",
			WageDriverRate:          decimal.RequireFromString("0.1"),
			WageAssistantRate:       decimal.RequireFromString("0.05"),
			DebtEditPolicy:          DebtPolicyAdditive,
		}
	}
	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.SessionSecret = ""
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.TripDefaultStatus = "PRICED"
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.WageAssistantRate = decimal.Zero
	require.Error(t, cfg.Validate())

	cfg = valid()
	cfg.DebtEditPolicy = "replace"
	require.Error(t, cfg.Validate())
}
