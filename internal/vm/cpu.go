package vm

// cpu.go assembles the machine from its smaller parts and sets up the
// initial architectural state described in §3.

import (
	"fmt"

	"github.com/hgrove/lc3sim/internal/log"
)

// LC3 is the whole machine: registers, status, memory, and devices.
type LC3 struct {
	PC  ProgramCounter  // Program counter.
	IR  Instruction     // Instruction register.
	PSR ProcessorStatus // Processor status register.
	MCR ControlRegister // Machine control register.
	MCC Register        // Machine cycle counter, incremented once per step.
	USP Register        // Saved user stack pointer.
	SSP Register        // Saved supervisor stack pointer.
	REG RegisterFile    // General-purpose registers.
	Mem Memory          // Memory and memory-mapped I/O.

	Keyboard *Keyboard
	Display  *Display

	log *log.Logger
}

// OptionFn customizes the machine during New. Each option runs twice: once
// early, and once late, after every option's early pass has run. Both
// passes run after devices are mapped and in supervisor mode. A function
// distinguishes the pass via the late argument.
type OptionFn func(vm *LC3, late bool)

// New creates and initializes a virtual machine. Execution begins in
// supervisor mode at the OS bootstrap entry (0x0230, §3); callers normally
// load the supervisor ROM image (internal/monitor) and a user program
// before calling Run.
func New(opts ...OptionFn) *LC3 {
	vm := &LC3{log: log.DefaultLogger()}

	vm.PSR = StatusSystem | StatusLow
	vm.PC = ProgramCounter(0x0230) // OS bootstrap entry, per §3.
	vm.SSP = Register(UserSpaceAddr)
	vm.USP = Register(IOPageAddr)
	vm.MCR = ControlRegister(0x8000) // RUN flag set.

	copy(vm.REG[:], []Register{
		0x0000, 0x0000, 0x0000, 0x0000,
		0x0000, 0x0000, vm.SSP, 0x0000,
	})

	vm.Mem = NewMemory(&vm.PSR)
	vm.Keyboard = NewKeyboard()
	vm.Display = NewDisplay()

	vm.Mem.Devices.MapRegister(PSRAddr,
		func() Word { return Word(vm.PSR) },
		func(w Word) { vm.PSR = ProcessorStatus(w) },
	)
	vm.Mem.Devices.MapRegister(MCRAddr,
		func() Word { return Word(vm.MCR) },
		func(w Word) { vm.MCR = ControlRegister(w) },
	)
	vm.Mem.Devices.MapRegister(MCCAddr,
		func() Word { return Word(vm.MCC) },
		func(w Word) { vm.MCC = Register(w) },
	)
	vm.Mem.Devices.Map(vm.Keyboard, KBSRAddr, KBDRAddr)
	vm.Mem.Devices.Map(vm.Display, DSRAddr, DDRAddr)

	for _, fn := range opts {
		fn(vm, false)
	}

	// New does not drop to user privilege: the OS bootstrap ROM routine
	// does this itself via RTI, so New leaves the machine exactly where
	// the architecture says execution starts: supervisor mode, PC at the
	// bootstrap entry.
	for _, fn := range opts {
		fn(vm, true)
	}

	return vm
}

func (vm *LC3) String() string {
	return fmt.Sprintf(
		"PC: %s IR: %s\nPSR: %s\nUSP: %s SSP: %s MCR: %s\nMAR: %s MDR: %s",
		vm.PC, vm.IR, vm.PSR, vm.USP, vm.SSP, vm.MCR, vm.Mem.MAR, vm.Mem.MDR,
	)
}

func (vm *LC3) LogValue() log.Value {
	return log.GroupValue(
		log.String("PC", vm.PC.String()),
		log.String("IR", vm.IR.String()),
		log.String("PSR", vm.PSR.String()),
		log.Any("REG", vm.REG),
	)
}

// WithLogger configures the machine, and its memory controller, to use a
// particular logger.
func WithLogger(logger *log.Logger) OptionFn {
	return func(vm *LC3, late bool) {
		if !late {
			return
		}

		vm.log = logger
		vm.Mem.log = logger
		vm.Mem.Devices.log = logger
	}
}

// WithRegisters seeds the general-purpose registers, used by --randomize.
func WithRegisters(regs [NumGPR]Register) OptionFn {
	return func(vm *LC3, late bool) {
		if late {
			vm.REG = regs
		}
	}
}

// PushStack pushes a word onto the current stack (R6), predecrementing
// first, per §4.E.
func (vm *LC3) PushStack(w Word) error {
	vm.REG[SP]--
	vm.Mem.MAR = vm.REG[SP]
	vm.Mem.MDR = Register(w)

	return vm.Mem.Store()
}

// PopStack pops a word from the current stack into MDR, postincrementing
// R6.
func (vm *LC3) PopStack() error {
	vm.Mem.MAR = vm.REG[SP]
	vm.REG[SP]++

	return vm.Mem.Fetch()
}
