package loader_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Every request goroutine and scripted provider goroutine must have exited.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
