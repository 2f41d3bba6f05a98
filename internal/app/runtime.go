package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv, when truthy, makes the binaries return before touching
// Postgres or Redis.
const TestModeEnv = "TRUCKOPS_TEST_MODE"

var testMode atomic.Pointer[bool]

func readTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
}

// InTestMode reports whether runtime side effects are disabled. The
// environment is read on first use; see RefreshTestMode.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	RefreshTestMode()
	return *testMode.Load()
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	on := readTestMode()
	testMode.Store(&on)
}
