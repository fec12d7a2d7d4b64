package bootstrap

import (
	"testing"

	"go.uber.org/goleak"
)

// Every test must leave no tool-watcher or copy goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
