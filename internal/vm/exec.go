package vm

// exec.go drives the fetch-decode-execute cycle (§4.F) and the loop driver
// (§4.G). Each instruction is modeled as a small operation value that
// implements whichever of the staged interfaces below its semantics call
// for, the same staged-operation idiom the teacher's executor uses.

import (
	"context"
	"errors"
	"fmt"

	"github.com/hgrove/lc3sim/internal/log"
)

// ErrHalted is returned from Step when the machine control register's run
// bit is already clear.
var ErrHalted = errors.New("halted")

// operation represents one CPU instruction as it executes. Semantics are
// supplied by implementing the optional addressable/fetchable/executable/
// storable interfaces for each execution stage.
type operation interface {
	Decode(vm *LC3)
	Fail(err error)
	Err() error
	fmt.Stringer
}

// addressable operations compute a memory address into MAR.
type addressable interface {
	operation
	EvalAddress()
}

// fetchable operations load an operand from the memory data register after
// EvalAddress has run and the memory controller has fetched into MDR.
type fetchable interface {
	addressable
	FetchOperands()
}

// executable operations update CPU state.
type executable interface {
	operation
	Execute()
}

// storable operations write MDR to the address in MAR after Execute has
// run.
type storable interface {
	addressable
	StoreResult()
}

// mo ("mini-op") is the common embed for every operation: it carries the
// machine pointer and any error raised mid-execution.
type mo struct {
	vm  *LC3
	err error
}

func (op mo) Err() error      { return op.err }
func (op *mo) Fail(err error) { op.err = err }
func (op mo) String() string  { return fmt.Sprintf("ins: %s", op.vm.IR.Opcode()) }

// Run executes the instruction cycle until the machine halts, the context
// is cancelled, or an unrecoverable error occurs.
func (vm *LC3) Run(ctx context.Context) error {
	vm.log.Info("START", log.Group("STATE", vm))

	var err error

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !vm.MCR.Running() {
			break
		}

		if err = vm.Step(); err != nil {
			break
		}
	}

	if err != nil {
		vm.log.Error("HALTED (error)", "ERR", err, log.Group("STATE", vm))
	} else {
		vm.log.Info("HALTED", log.Group("STATE", vm))
	}

	return err
}

// Step runs a single instruction to completion, including dispatch to an
// exception or trap handler if one is raised.
func (vm *LC3) Step() error {
	if !vm.MCR.Running() {
		return fmt.Errorf("step: %w", ErrHalted)
	}

	if err := vm.Fetch(); err != nil {
		return fmt.Errorf("step: %w", err)
	}

	op := vm.Decode()

	vm.EvalAddress(op)
	vm.FetchOperands(op)
	vm.Execute(op)
	vm.Writeback(op)

	if err := op.Err(); err == nil {
		vm.log.Debug("executed", "OP", op)

		return nil
	} else if handler, ok := err.(interruptableError); ok { //nolint:errorlint
		vm.log.Debug("dispatching", "OP", op, "INT", err)

		if err := handler.Handle(vm); err != nil {
			return fmt.Errorf("step: %w", err)
		}

		return nil
	} else {
		return fmt.Errorf("step: %w", err)
	}
}

// Fetch loads IR from the address in PC and increments PC, per §4.F.
func (vm *LC3) Fetch() error {
	vm.Mem.MAR = Register(vm.PC)

	if err := vm.Mem.Fetch(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	vm.IR = Instruction(vm.Mem.MDR)
	vm.PC++

	return nil
}

// Decode builds the operation value for the instruction currently in IR.
func (vm *LC3) Decode() operation {
	var op operation

	switch vm.IR.Opcode() {
	case BR:
		op = &br{}
	case ADD:
		if vm.IR.Imm() {
			op = &addImm{}
		} else {
			op = &add{}
		}
	case LD:
		op = &ld{}
	case ST:
		op = &st{}
	case JSR:
		if vm.IR.Relative() {
			op = &jsr{}
		} else {
			op = &jsrr{}
		}
	case AND:
		if vm.IR.Imm() {
			op = &andImm{}
		} else {
			op = &and{}
		}
	case LDR:
		op = &ldr{}
	case STR:
		op = &str{}
	case RTI:
		op = &rti{}
	case NOT:
		op = &not{}
	case LDI:
		op = &ldi{}
	case STI:
		op = &sti{}
	case JMP:
		op = &jmp{}
	case LEA:
		op = &lea{}
	case TRAP:
		op = &trap{}
	default: // RESV and anything else: the 15 opcodes above are exhaustive.
		op = &resv{}
	}

	op.Decode(vm)

	return op
}

// EvalAddress computes a memory address for addressable operations.
func (vm *LC3) EvalAddress(op operation) {
	if op, ok := op.(addressable); ok && op.Err() == nil {
		op.EvalAddress()
	}
}

// FetchOperands reads from memory into an operation's operands, failing
// with an ACV exception if the address in MAR is out of bounds for the
// current privilege level.
func (vm *LC3) FetchOperands(op operation) {
	if op.Err() != nil {
		return
	}

	fop, ok := op.(fetchable)
	if !ok {
		return
	}

	if err := vm.Mem.Fetch(); err != nil {
		op.Fail(vm.accessFault(err))
		return
	}

	fop.FetchOperands()
}

// Execute runs the operation's register-level semantics.
func (vm *LC3) Execute(op operation) {
	if op.Err() != nil {
		return
	}

	if op, ok := op.(executable); ok {
		op.Execute()
	}
}

// Writeback stores the operation's result to memory, failing with an ACV
// exception on an out-of-bounds address.
func (vm *LC3) Writeback(op operation) {
	if op.Err() != nil {
		return
	}

	sop, ok := op.(storable)
	if !ok {
		return
	}

	sop.StoreResult()

	if err := vm.Mem.Store(); err != nil {
		op.Fail(vm.accessFault(err))
	}
}

// accessFault converts a raw memory-controller error into the ACV
// exception value if it was an access-control failure, or passes it
// through unchanged otherwise (e.g. a genuine ErrNoDevice).
func (vm *LC3) accessFault(err error) error {
	if errors.Is(err, ErrAccessControl) {
		return newACV(vm)
	}

	return err
}
