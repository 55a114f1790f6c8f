//go:build darwin

package tty

import "golang.org/x/sys/unix"

// BSD-family termios ioctls. Console.setTerminalParams uses these to reach
// the driver's raw-mode VMIN/VTIME controls on darwin.
const (
	getTermiosIoctl = unix.TIOCGETA
	setTermiosIoctl = unix.TIOCSETA
)
