package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hgrove/lc3sim/internal/debugger"
	"github.com/hgrove/lc3sim/internal/log"
	"github.com/hgrove/lc3sim/internal/vm"
)

func newCPU(tt *testing.T) *vm.LC3 {
	tt.Helper()

	var logbuf bytes.Buffer

	return vm.New(vm.WithLogger(log.NewFormattedLogger(&logbuf)))
}

func TestStepCommandAdvancesOnce(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)
	cpu.PC = 0x3000

	var out bytes.Buffer

	dbg := debugger.New(strings.NewReader("step\n"), &out)

	cont, err := dbg.Before(cpu)
	if err != nil {
		tt.Fatalf("before: %v", err)
	}

	if !cont {
		tt.Errorf("expected step to let the loop proceed")
	}
}

func TestContinueSkipsPromptUntilBreakpoint(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)
	cpu.PC = 0x3000

	var out bytes.Buffer

	dbg := debugger.New(strings.NewReader("continue\n"), &out)
	if err := dbg.AddBreakpoint(0x3002); err != nil {
		tt.Fatalf("add breakpoint: %v", err)
	}

	cont, err := dbg.Before(cpu)
	if err != nil || !cont {
		tt.Fatalf("before: cont=%v err=%v", cont, err)
	}

	// Not at the breakpoint yet: no prompt consumed, so Before must not
	// block waiting for more input.
	cpu.PC = 0x3001

	cont, err = dbg.Before(cpu)
	if err != nil || !cont {
		tt.Fatalf("before (still running): cont=%v err=%v", cont, err)
	}

	// At the breakpoint: the REPL should read again. Feed it a step so
	// this call returns instead of blocking past EOF.
	cpu.PC = 0x3002
	dbg2 := debugger.New(strings.NewReader("step\n"), &out)

	if err := dbg2.AddBreakpoint(0x3002); err != nil {
		tt.Fatalf("add breakpoint: %v", err)
	}

	cont, err = dbg2.Before(cpu)
	if err != nil || !cont {
		tt.Fatalf("before (at breakpoint): cont=%v err=%v", cont, err)
	}
}

func TestQuitStopsTheLoop(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)

	var out bytes.Buffer

	dbg := debugger.New(strings.NewReader("quit\n"), &out)

	cont, err := dbg.Before(cpu)
	if err != nil {
		tt.Fatalf("before: %v", err)
	}

	if cont {
		tt.Errorf("expected quit to stop the loop")
	}
}

func TestEmptyLineRepeatsLastCommand(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)
	cpu.PC = 0x3000

	var out bytes.Buffer

	// "read" prints and loops for another line; the blank line must
	// repeat it, then "step" ends the session.
	dbg := debugger.New(strings.NewReader("read 0x3000\n\nstep\n"), &out)

	cont, err := dbg.Before(cpu)
	if err != nil {
		tt.Fatalf("before: %v", err)
	}

	if !cont {
		tt.Errorf("expected the session to end on step")
	}

	if got := strings.Count(out.String(), "0x3000:"); got != 2 {
		tt.Errorf("expected the read command to run twice, ran %d times:\n%s", got, out.String())
	}
}

func TestReadWriteRoundTrip(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)
	cpu.PC = 0x3000

	var out bytes.Buffer

	dbg := debugger.New(strings.NewReader("write 0x3000 0x1234\nread 0x3000\nstep\n"), &out)

	if _, err := dbg.Before(cpu); err != nil {
		tt.Fatalf("before: %v", err)
	}

	if !strings.Contains(out.String(), "0x1234") {
		tt.Errorf("expected the written value to be read back, got:\n%s", out.String())
	}
}

func TestRegSetAndClear(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)
	cpu.PC = 0x3000

	var out bytes.Buffer

	dbg := debugger.New(strings.NewReader("reg set R3 0x7\nstep\n"), &out)

	if _, err := dbg.Before(cpu); err != nil {
		tt.Fatalf("before: %v", err)
	}

	if cpu.REG[vm.R3] != 0x7 {
		tt.Errorf("R3: want 0x7, got %s", cpu.REG[vm.R3])
	}

	var out2 bytes.Buffer

	dbg2 := debugger.New(strings.NewReader("reg clear\nstep\n"), &out2)

	if _, err := dbg2.Before(cpu); err != nil {
		tt.Fatalf("before: %v", err)
	}

	if cpu.REG[vm.R3] != 0 {
		tt.Errorf("R3: want 0 after clear, got %s", cpu.REG[vm.R3])
	}
}

func TestNextStepsOverTrap(tt *testing.T) {
	tt.Parallel()

	cpu := newCPU(tt)
	cpu.PC = 0x3000
	_ = cpu.Mem.Poke(0x3000, vm.Word(vm.NewInstruction(vm.TRAP, uint16(vm.TrapHALT)).Encode()))

	var out bytes.Buffer

	// Only one line of input: "next" sets the one-shot target and
	// switches to continue mode, so the loop driver's second call (once
	// PC reaches the target) must prompt again without more input
	// having been provided, hit EOF, and stop the loop.
	dbg := debugger.New(strings.NewReader("next\n"), &out)

	cont, err := dbg.Before(cpu)
	if err != nil || !cont {
		tt.Fatalf("before (sets one-shot): cont=%v err=%v", cont, err)
	}

	cpu.PC = 0x3001

	if cont, err := dbg.Before(cpu); err != nil || cont {
		tt.Fatalf("before (one-shot hit, EOF): cont=%v err=%v", cont, err)
	}
}

func TestBreakpointCapIsEnforced(tt *testing.T) {
	tt.Parallel()

	dbg := debugger.New(strings.NewReader(""), &bytes.Buffer{})

	for i := 0; i < 64; i++ {
		if err := dbg.AddBreakpoint(vm.Word(0x3000 + i)); err != nil {
			tt.Fatalf("add breakpoint %d: %v", i, err)
		}
	}

	if err := dbg.AddBreakpoint(0x4000); err == nil {
		tt.Errorf("expected the 65th breakpoint to be rejected")
	}
}
