package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/app"
	_ "github.com/truckops/truckops/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
