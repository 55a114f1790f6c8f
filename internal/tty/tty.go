// Package tty adapts the machine's keyboard and display devices to a real
// terminal, using raw-mode Unix terminal I/O.
package tty

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNoTTY is returned if standard input is not a terminal. Asynchronous
// reads are not supported in that case; callers should fall back to a
// fixed vm.InputSource (e.g. vm.NewBufferInput) instead.
var ErrNoTTY error = errors.New("tty: not a terminal")

// Console is a serial console backed by the process's standard streams. It
// satisfies vm.InputSource: Next polls for a key pressed on the terminal
// without blocking the loop driver, the way the teacher's Console adapts
// the keyboard and display devices for use on contemporary systems.
//
// Unlike the teacher's Console, which pushes keys into the keyboard device
// from a background goroutine, this Console only buffers them: the loop
// driver's I/O pump (§4.G step 1) remains the single writer of the
// keyboard device, so Next hands back one buffered byte at a time instead
// of calling Keyboard.Update itself.
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State

	keyCh  chan uint8
	cancel context.CancelCauseFunc
}

// NewConsole creates a Console reading from sin and writing to sout. If
// sin is not a terminal, ErrNoTTY is returned. Callers must call Restore
// to return the terminal to its original state.
func NewConsole(sin, sout, serr *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	cons := &Console{
		fd:    fd,
		in:    sin,
		out:   term.NewTerminal(sout, ""),
		state: saved,
		keyCh: make(chan uint8, 1),
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, saved)

		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	cons.cancel = cancel

	go cons.readTerminal(ctx, cancel)

	return cons, nil
}

// Writer returns the io.Writer a caller should pass to vm.WithOutput so
// that display writes land on the terminal.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Next implements vm.InputSource. It never blocks: if no key has arrived
// since the last call, it reports false.
func (c *Console) Next() (byte, bool) {
	select {
	case b := <-c.keyCh:
		return b, true
	default:
		return 0, false
	}
}

// Restore returns the terminal to its original state and stops the
// background reader.
func (c *Console) Restore() {
	c.cancel(nil)
	_ = c.in.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = c.in.SetReadDeadline(time.Time{})

	return nil
}

// readTerminal reads bytes from the terminal and buffers them on keyCh
// until the context is cancelled. A full buffer drops the byte: the
// keyboard device can only hold one unread character anyway (§4.A), so a
// second key pressed before the first is consumed is lost on real
// hardware too.
func (c *Console) readTerminal(ctx context.Context, cancel context.CancelCauseFunc) {
	buf := bufio.NewReader(c.in)

	_ = syscall.SetNonblock(c.fd, false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := buf.ReadByte()
		if err != nil {
			cancel(err)

			return
		}

		select {
		case c.keyCh <- b:
		case <-ctx.Done():
			return
		default:
			// Drop: a key is already waiting to be read.
		}
	}
}
