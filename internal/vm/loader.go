package vm

// loader.go reads LC-3 object files: a single block, an origin word
// followed by its contents up to the end of the file, per §6.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ObjectCode is one origin-addressed block of words read from an object
// file.
type ObjectCode struct {
	Orig Word
	Code []Word
}

// Loader copies object code into a machine's memory, bypassing the normal
// access-control path the way privileged firmware load does.
type Loader struct {
	vm *LC3
}

// NewLoader creates a loader bound to vm.
func NewLoader(vm *LC3) *Loader { return &Loader{vm: vm} }

// Load reads a single origin-addressed block from r and copies it into
// memory starting at its origin address, returning the origin for callers
// that need it (e.g. to set the initial PC).
func (l *Loader) Load(r io.Reader) (Word, error) {
	var orig uint16

	if err := binary.Read(r, binary.BigEndian, &orig); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("load: %w", io.ErrUnexpectedEOF)
		}

		return 0, fmt.Errorf("load: origin: %w", err)
	}

	addr := Word(orig)

	for {
		var word uint16

		if err := binary.Read(r, binary.BigEndian, &word); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return 0, fmt.Errorf("load: %s: %w", addr, err)
		}

		if err := l.vm.Mem.store(addr, Word(word)); err != nil {
			return 0, fmt.Errorf("load: %s: %w", addr, err)
		}

		addr++
	}

	return Word(orig), nil
}

// LoadVector writes a block of already-assembled code directly into memory
// at the given origin, without going through an io.Reader. It is used to
// install the supervisor ROM image (internal/monitor), which is built in
// memory rather than read from a file.
func (l *Loader) LoadVector(code ObjectCode) error {
	addr := code.Orig

	for _, word := range code.Code {
		if err := l.vm.Mem.store(addr, word); err != nil {
			return fmt.Errorf("load: %s: %w", addr, err)
		}

		addr++
	}

	return nil
}
