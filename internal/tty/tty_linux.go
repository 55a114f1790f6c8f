//go:build linux

package tty

import "golang.org/x/sys/unix"

// glibc/Linux termios ioctls, distinct from the BSD TIOCGETA/TIOCSETA
// pair: Console.setTerminalParams uses these to reach the driver's
// raw-mode VMIN/VTIME controls on linux.
const (
	getTermiosIoctl = unix.TCGETS
	setTermiosIoctl = unix.TCSETS
)
