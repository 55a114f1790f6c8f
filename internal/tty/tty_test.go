// The test is skipped when stdin is not a terminal (ErrNoTTY). Notably,
// this includes when run with "go test" because it redirects the test
// binary's standard streams. Build a test binary and run it directly to
// exercise it:
//
//	$ go test -c && ./tty.test
package tty_test

import (
	"errors"
	"os"
	"testing"

	"github.com/hgrove/lc3sim/internal/tty"
)

func TestNewConsoleRequiresTTY(t *testing.T) {
	t.Parallel()

	console, err := tty.NewConsole(os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, tty.ErrNoTTY) {
		t.Skip("stdin is not a terminal")
	}

	if err != nil {
		t.Fatalf("new console: %v", err)
	}
	defer console.Restore()

	if console.Writer() == nil {
		t.Errorf("expected a non-nil writer")
	}

	if _, ok := console.Next(); ok {
		t.Errorf("expected no key pending on a fresh console")
	}
}
