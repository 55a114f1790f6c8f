// Package vm implements the LC-3 virtual machine: memory, CPU state, the
// instruction executor, the exception/trap dispatcher and the loop driver.
package vm

// words.go defines the basic data types the machine operates on.

import (
	"fmt"
	"strings"

	"github.com/hgrove/lc3sim/internal/log"
)

// Word is the base data type on which the CPU operates. Registers, memory
// cells, and instructions are all 16-bit values.
type Word uint16

func (w Word) String() string {
	return fmt.Sprintf("%0#4x", uint16(w))
}

// Sext sign-extends the lower n bits in-place.
func (w *Word) Sext(n uint8) {
	s := 16 - n
	i := int16(*w)
	i <<= s
	i >>= s
	*w = Word(uint16(i))
}

// Zext zero-extends the lower n bits in-place.
func (w *Word) Zext(n uint8) {
	var low Word = ^(0xffff << n)
	*w &= low
}

// Register holds a value in the CPU's register file or a special-purpose
// register.
type Register Word

func (r Register) String() string { return Word(r).String() }

// ProgramCounter points to the next instruction to fetch.
type ProgramCounter Register

func (p ProgramCounter) String() string { return Word(p).String() }

// ProcessorStatus records the privilege bit, the priority level, and the
// NZP condition codes.
//
//	| PR | 0000 | PL  | 00000 | COND |
//	+----+------+-----+-------+------+
//	| 15 |14  11|10  8|7     3|2    0|
type ProcessorStatus Register

// Status flags packed into the PSR.
const (
	StatusPositive  ProcessorStatus = 0x0001
	StatusZero      ProcessorStatus = 0x0002
	StatusNegative  ProcessorStatus = 0x0004
	StatusCondition ProcessorStatus = StatusNegative | StatusZero | StatusPositive

	StatusPriority ProcessorStatus = 0x0700
	StatusHigh     ProcessorStatus = 0x0700
	StatusNormal   ProcessorStatus = 0x0300
	StatusLow      ProcessorStatus = 0x0000

	StatusPrivilege ProcessorStatus = 0x8000
	StatusUser      ProcessorStatus = 0x8000
	StatusSystem    ProcessorStatus = 0x0000
)

func (ps ProcessorStatus) String() string {
	return fmt.Sprintf(
		"%s (N:%t Z:%t P:%t PR:%s PL:%d)",
		Word(ps), ps.Negative(), ps.Zero(), ps.Positive(), ps.Privilege(), ps.Priority(),
	)
}

// Cond returns the condition-code bits of the status register.
func (ps ProcessorStatus) Cond() Condition { return Condition(ps & StatusCondition) }

// Any reports whether any flag in cond is set in the status register.
func (ps ProcessorStatus) Any(cond Condition) bool { return ps.Cond()&cond != 0 }

// Set updates the condition flags from the sign of reg.
func (ps *ProcessorStatus) Set(reg Register) {
	*ps &= ^StatusCondition

	switch {
	case reg == 0:
		*ps |= StatusZero
	case int16(reg) > 0:
		*ps |= StatusPositive
	default:
		*ps |= StatusNegative
	}
}

func (ps ProcessorStatus) Positive() bool { return ps&StatusPositive != 0 }
func (ps ProcessorStatus) Negative() bool { return ps&StatusNegative != 0 }
func (ps ProcessorStatus) Zero() bool     { return ps&StatusZero != 0 }

// Priority returns the task's priority level, PL0 through PL7.
func (ps ProcessorStatus) Priority() Priority { return Priority(ps & StatusPriority >> 8) }

// Privilege returns the task's privilege level.
func (ps ProcessorStatus) Privilege() Privilege { return Privilege(ps & StatusPrivilege >> 15) }

// Priority represents an interrupt or task priority level.
type Priority uint8

// Task and interrupt priorities.
const (
	PL0 Priority = iota
	PL1
	PL2
	PL3
	PL4
	PL5
	PL6
	PL7
	NumPL

	PriorityLow    = PL0
	PriorityNormal = PL3
	PriorityHigh   = PL7
)

func (p Priority) String() string { return fmt.Sprintf("PL%d", uint8(p)) }

// Privilege represents the privilege level of the running task.
type Privilege uint8

// Privilege levels.
const (
	PrivilegeSystem Privilege = iota
	PrivilegeUser
)

func (p Privilege) String() string {
	if p == PrivilegeUser {
		return "USER"
	}

	return "SYSTEM"
}

// RegisterFile is the set of eight general-purpose registers.
type RegisterFile [NumGPR]Register

func (rf RegisterFile) String() string {
	var b strings.Builder

	for i := 0; i < len(rf)/2; i++ {
		fmt.Fprintf(&b, "R%d: %s  R%d: %s\n", i, rf[i], i+len(rf)/2, rf[i+len(rf)/2])
	}

	return b.String()
}

func (rf RegisterFile) LogValue() log.Value {
	return log.GroupValue(
		log.String("R0", rf[R0].String()),
		log.String("R1", rf[R1].String()),
		log.String("R2", rf[R2].String()),
		log.String("R3", rf[R3].String()),
		log.String("R4", rf[R4].String()),
		log.String("R5", rf[R5].String()),
		log.String("R6", rf[R6].String()),
		log.String("R7", rf[R7].String()),
	)
}

// GPR identifies a general-purpose register.
type GPR uint8

// General-purpose register identifiers.
const (
	R0 GPR = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7

	NumGPR // Count of general-purpose registers.

	RETP = R7 // Subroutine return address.
	SP   = R6 // Current stack pointer.
)

func (r GPR) String() string { return fmt.Sprintf("R%d", uint8(r)) }

// ControlRegister is the machine control register (MCR). Bit 15 keeps the
// loop driver running; clearing it halts the machine.
type ControlRegister Register

const ControlRunning ControlRegister = 1 << 15

func (cr ControlRegister) Running() bool { return cr&ControlRunning != 0 }

func (cr ControlRegister) String() string {
	state := "RUN"
	if !cr.Running() {
		state = "STOP"
	}

	return fmt.Sprintf("%s (%s)", Register(cr).String(), state)
}

// Condition represents the NZP mask carried by a BR instruction, or the
// condition bits of the PSR.
type Condition uint8

// Condition flags, ordered to match PSR bits 2:0.
const (
	ConditionPositive = Condition(1 << iota)
	ConditionZero
	ConditionNegative
)

func (c Condition) String() string {
	return fmt.Sprintf("(N:%t Z:%t P:%t)", c.Negative(), c.Zero(), c.Positive())
}

func (c Condition) Negative() bool { return c&ConditionNegative != 0 }
func (c Condition) Zero() bool     { return c&ConditionZero != 0 }
func (c Condition) Positive() bool { return c&ConditionPositive != 0 }
