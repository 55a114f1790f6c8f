package vm

// run.go implements the loop driver (§4.G): it wraps the instruction
// executor (exec.go) with the console I/O pump, the cycle counter, and the
// one hook the debugger needs to interpose between steps.

import (
	"context"

	"github.com/hgrove/lc3sim/internal/log"
)

// InputSource supplies characters to the keyboard device, one at a time.
// Next reports false once the source is exhausted.
type InputSource interface {
	Next() (byte, bool)
}

// BufferInput is an InputSource backed by a fixed byte slice, used for the
// --input flag.
type BufferInput struct {
	buf []byte
	pos int
}

// NewBufferInput creates an InputSource that yields the bytes of s in
// order.
func NewBufferInput(s string) *BufferInput {
	return &BufferInput{buf: []byte(s)}
}

func (b *BufferInput) Next() (byte, bool) {
	if b.pos >= len(b.buf) {
		return 0, false
	}

	ch := b.buf[b.pos]
	b.pos++

	return ch, true
}

// Debugger interposes between steps of the loop driver. Before is called
// ahead of every instruction; a false return halts the loop immediately,
// as does a non-nil error.
type Debugger interface {
	Before(vm *LC3) (bool, error)
}

// LoopOptions configures the loop driver.
type LoopOptions struct {
	Input    InputSource // Optional; nil means no keyboard input is ever pending.
	Debugger Debugger    // Optional; nil runs free.
}

// WithOutput registers w to receive every byte the running program writes
// to the display data register.
func WithOutput(w interface{ Write([]byte) (int, error) }) OptionFn {
	return func(vm *LC3, late bool) {
		if !late {
			return
		}

		vm.Display.Listen(func(ch byte) { w.Write([]byte{ch}) }) //nolint:errcheck
	}
}

// Loop runs the five-step loop driver described in §4.G until the machine
// control register's run bit clears, the context is cancelled, the
// debugger calls a halt, or an unrecoverable error occurs.
func (vm *LC3) Loop(ctx context.Context, opts LoopOptions) error {
	vm.log.Info("START", log.Group("STATE", vm))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !vm.MCR.Running() {
			break
		}

		vm.pumpInput(opts.Input)

		if opts.Debugger != nil {
			cont, err := opts.Debugger.Before(vm)
			if err != nil {
				return err
			}

			if !cont {
				break
			}
		}

		if err := vm.Step(); err != nil {
			vm.log.Error("HALTED (error)", "ERR", err, log.Group("STATE", vm))

			return err
		}

		vm.MCC++
	}

	vm.log.Info("HALTED", log.Group("STATE", vm))

	return nil
}

// pumpInput implements §4.G step 1: while the keyboard has no unread
// character and the input source has more to give, deliver the next one.
func (vm *LC3) pumpInput(src InputSource) {
	if src == nil || vm.Keyboard.Pending() {
		return
	}

	if ch, ok := src.Next(); ok {
		vm.Keyboard.Update(ch)
	}
}
