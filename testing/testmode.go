// Package testing switches binaries into test mode when imported for side
// effects from a _test.go file.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("MEDSTOCK_TEST_MODE", "1")
		if os.Getenv("STORE_DRIVER") == "" {
			_ = os.Setenv("STORE_DRIVER", "sqlite")
		}
		if os.Getenv("SQLITE_PATH") == "" {
			_ = os.Setenv("SQLITE_PATH", ":memory:")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain lets packages delegate their TestMain here.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
