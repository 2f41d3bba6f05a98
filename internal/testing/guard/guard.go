// Package guard switches the binaries into test mode when blank-imported
// from a test, so calling main does not dial Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TRUCKOPS_TEST_MODE") == "" {
			_ = os.Setenv("TRUCKOPS_TEST_MODE", "1")
		}
		if os.Getenv("SESSION_SECRET") == "" {
			_ = os.Setenv("SESSION_SECRET", "test-secret")
		}
	})
}
