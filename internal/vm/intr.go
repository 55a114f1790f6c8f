package vm

// intr.go implements the common exception/trap dispatcher (§4.E) and the
// three defined exception codes. Traps and faults both flow through the
// same interrupt machinery, signalled by returning an interruptableError
// from an instruction's execution stage.

import "fmt"

// Trap vector table and interrupt/exception vector table, per §3.
const (
	TrapTable      = Word(0x0000) // 0x0000-0x00ff, one word per trap.
	ExceptionTable = Word(0x0100) // 0x0100-0x01ff, one word per exception/interrupt.
)

// The standard trap vectors, per §4.H.
const (
	TrapGETC  = Word(0x20)
	TrapOUT   = Word(0x21)
	TrapPUTS  = Word(0x22)
	TrapIN    = Word(0x23)
	TrapPUTSP = Word(0x24)
	TrapHALT  = Word(0x25)
)

// The three defined exception codes, per §4.E.
const (
	ExceptionPRIV = Word(0x00) // Privilege-mode violation: RTI in user mode.
	ExceptionILL  = Word(0x01) // Illegal opcode: the reserved 1101 opcode.
	ExceptionACV  = Word(0x02) // Access control violation.
)

// interruptableError is returned from an instruction's execution stage to
// signal that control must transfer through the vector table rather than
// falling through to the next instruction.
type interruptableError interface {
	error
	Handle(vm *LC3) error
}

// dispatch is the common trap/exception dispatcher described by §4.E:
// remember the old PSR, switch to supervisor mode and stack if needed,
// push the old PSR and PC, and jump through the vector table.
type dispatch struct {
	table Word // TrapTable or ExceptionTable.
	vec   Word // Entry within the table.
	pc    ProgramCounter
	psr   ProcessorStatus
}

func (d *dispatch) Handle(vm *LC3) error {
	if d.psr.Privilege() == PrivilegeUser {
		vm.USP = vm.REG[SP]
		vm.REG[SP] = vm.SSP
		vm.PSR &^= StatusUser
	}

	if err := vm.PushStack(Word(d.psr)); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if err := vm.PushStack(Word(d.pc)); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	vm.Mem.MAR = Register(d.table | d.vec)
	if err := vm.Mem.Fetch(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	vm.PC = ProgramCounter(vm.Mem.MDR)

	return nil
}

func (d *dispatch) Error() string {
	return fmt.Sprintf("INT: %#x:%#x", uint16(d.table), uint16(d.vec))
}

// trapError is raised by the TRAP instruction.
type trapError struct{ dispatch }

func (e *trapError) Error() string { return fmt.Sprintf("TRAP %#x", uint16(e.vec)) }

// accessViolation is raised when user-mode code addresses memory outside
// 0x3000..0xfdff, per the ACV rule in §3 and §4.F.
type accessViolation struct{ dispatch }

func (e *accessViolation) Error() string { return "ACV: access control violation" }

func (e *accessViolation) Is(target error) bool { return target == ErrAccessControl }

// privilegeViolation is raised when user-mode code executes RTI.
type privilegeViolation struct{ dispatch }

func (e *privilegeViolation) Error() string { return "PRIV: privilege-mode violation" }

// illegalOpcode is raised by the reserved (1101) opcode.
type illegalOpcode struct{ dispatch }

func (e *illegalOpcode) Error() string { return "ILL: illegal opcode" }

// newACV builds the ACV exception for the current PC/PSR.
func newACV(vm *LC3) error {
	return &accessViolation{dispatch{table: ExceptionTable, vec: ExceptionACV, pc: vm.PC, psr: vm.PSR}}
}

// newPRIV builds the privilege-mode violation exception.
func newPRIV(vm *LC3) error {
	return &privilegeViolation{dispatch{table: ExceptionTable, vec: ExceptionPRIV, pc: vm.PC, psr: vm.PSR}}
}

// newILL builds the illegal-opcode exception.
func newILL(vm *LC3) error {
	return &illegalOpcode{dispatch{table: ExceptionTable, vec: ExceptionILL, pc: vm.PC, psr: vm.PSR}}
}

// newTrap builds a TRAP dispatch for the given 8-bit vector.
func newTrap(vm *LC3, vec Word) error {
	return &trapError{dispatch{table: TrapTable, vec: vec, pc: vm.PC, psr: vm.PSR}}
}
