package vm

// mem.go is the machine's memory controller. It mediates access to main
// memory and the memory-mapped I/O page through a pair of data-path
// registers (MAR/MDR), the way the teacher's microarchitecture does.

import (
	"errors"
	"fmt"

	"github.com/hgrove/lc3sim/internal/log"
)

// Regions of the 16-bit logical address space, each growing upward toward
// the next.
const (
	TrapVectorAddr     Word = 0x0000 // Trap vector table, one word per trap.
	InterruptVectorAddr Word = 0x0100 // Interrupt/exception vector table.
	SystemSpaceAddr    Word = 0x0200 // Supervisor ROM handlers.
	UserSpaceAddr      Word = 0x3000 // User programs begin here.
	IOPageAddr         Word = 0xfe00 // Memory-mapped device registers.
	AddrSpace          Word = 0xffff // Top of the logical address space.
)

// PhysicalMemory backs every address below the I/O page.
type PhysicalMemory [uint32(IOPageAddr)]Word

// Memory is the controller that translates logical addresses into either
// physical memory cells or memory-mapped device registers. Almost all
// access goes through the memory address register (MAR) and memory data
// register (MDR); this keeps access-control checking in one place.
type Memory struct {
	MAR Register
	MDR Register

	cell    PhysicalMemory
	Devices MMIO

	psr *ProcessorStatus
	log *log.Logger
}

// NewMemory creates a memory controller. psr is consulted on every access
// to decide whether the current privilege level may reach the address in
// MAR.
func NewMemory(psr *ProcessorStatus) Memory {
	return Memory{
		MAR: 0xffff,
		MDR: 0x0000,
		cell:    PhysicalMemory{},
		Devices: NewMMIO(),
		psr:     psr,
		log:     log.DefaultLogger(),
	}
}

// Fetch loads MDR from the address in MAR.
func (mem *Memory) Fetch() error {
	if err := mem.checkAccess(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	val, err := mem.load(Word(mem.MAR))
	if err != nil {
		return fmt.Errorf("fetch: %w", &MemoryError{Addr: Word(mem.MAR), err: err})
	}

	mem.MDR = Register(val)

	return nil
}

// Store writes MDR to the address in MAR.
func (mem *Memory) Store() error {
	if err := mem.checkAccess(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if err := mem.store(Word(mem.MAR), Word(mem.MDR)); err != nil {
		return fmt.Errorf("store: %w", &MemoryError{Addr: Word(mem.MAR), err: err})
	}

	return nil
}

// checkAccess enforces §3's access-control invariant: addresses below user
// space or at/above the I/O page are off-limits to user-mode code.
func (mem *Memory) checkAccess() error {
	if mem.psr == nil || mem.psr.Privilege() == PrivilegeSystem {
		return nil
	}

	addr := Word(mem.MAR)
	if addr < UserSpaceAddr || addr >= IOPageAddr {
		return ErrAccessControl
	}

	return nil
}

// View returns a copy of physical memory for inspection. It is not used on
// any hot path.
func (mem *Memory) View() PhysicalMemory {
	var view PhysicalMemory
	copy(view[:], mem.cell[:])

	return view
}

// Peek reads a word directly, bypassing MAR/MDR and access control, for the
// debugger's "read"/"decode" commands and the --dump flag.
func (mem *Memory) Peek(addr Word) (Word, error) {
	return mem.load(addr)
}

// Poke writes a word directly, bypassing MAR/MDR and access control, for
// the debugger's "write" command and the --memory flag.
func (mem *Memory) Poke(addr Word, val Word) error {
	return mem.store(addr, val)
}

// load reads a word directly, bypassing MAR/MDR and access control. It is
// used by the loader and the debugger's privileged peek/poke commands.
func (mem *Memory) load(addr Word) (Word, error) {
	if addr >= IOPageAddr {
		return mem.Devices.Load(addr)
	}

	return mem.cell[addr], nil
}

// store writes a word directly, bypassing MAR/MDR and access control.
func (mem *Memory) store(addr Word, val Word) error {
	if addr >= IOPageAddr {
		return mem.Devices.Store(addr, val)
	}

	mem.cell[addr] = val

	return nil
}

// MemoryError reports the address involved in a failed access.
type MemoryError struct {
	Addr Word
	err  error
}

func (me *MemoryError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMemory, me.Addr, me.err)
}

func (me *MemoryError) Unwrap() error { return me.err }

func (me *MemoryError) Is(target error) bool {
	return target == ErrMemory || errors.Is(me.err, target)
}

var (
	ErrMemory        = errors.New("memory error")
	ErrAccessControl = errors.New("access control violation")
)
