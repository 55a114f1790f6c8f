package vm

import (
	"strings"
	"testing"

	"github.com/hgrove/lc3sim/internal/log"
)

// testHarness wraps a *testing.T as an io.Writer for the machine's logger,
// the way the teacher's test suite threads test output through *log.Logger.
type testHarness struct {
	*testing.T
}

func NewTestHarness(t *testing.T) *testHarness {
	t.Helper()

	return &testHarness{T: t}
}

func (t *testHarness) Write(b []byte) (int, error) {
	t.Helper()
	t.Log(strings.TrimSuffix(string(b), "\n"))

	return len(b), nil
}

// Make builds a machine with system privileges and no ROM image, for tests
// that poke memory and registers directly.
func (t *testHarness) Make() *LC3 {
	return New(WithLogger(log.NewFormattedLogger(t)))
}
