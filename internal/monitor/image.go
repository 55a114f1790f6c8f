package monitor

// image.go assembles the routines in rom.go into a SystemImage: the trap
// table, the exception table, and the handler code they point into,
// ready to be written into a fresh machine's memory before it runs.

import (
	"fmt"

	"github.com/hgrove/lc3sim/internal/vm"
)

// SystemImage is the fully assembled supervisor ROM: the two vector
// tables plus every handler routine's object code.
type SystemImage struct {
	Tables   []vm.ObjectCode
	Routines []vm.ObjectCode
}

// NewSystemImage assembles the standard supervisor ROM described in §4.D:
// six trap service routines, three exception handlers, the bad-trap and
// bad-interrupt diagnostics, and the OS bootstrap.
func NewSystemImage() (*SystemImage, error) {
	routines := make([]vm.ObjectCode, 0, len(allRoutines))

	addr := make(map[string]vm.Word, len(allRoutines))
	for _, r := range allRoutines {
		addr[r.name] = r.orig

		code, err := r.assemble()
		if err != nil {
			return nil, err
		}

		routines = append(routines, code)
	}

	trapTable := make([]vm.Word, 256)
	for i := range trapTable {
		trapTable[i] = addr["bad-trap"]
	}

	trapTable[vm.TrapGETC] = addr["getc"]
	trapTable[vm.TrapOUT] = addr["out"]
	trapTable[vm.TrapPUTS] = addr["puts"]
	trapTable[vm.TrapIN] = addr["in"]
	trapTable[vm.TrapPUTSP] = addr["putsp"]
	trapTable[vm.TrapHALT] = addr["halt"]

	excTable := make([]vm.Word, 256)
	for i := range excTable {
		excTable[i] = addr["bad-interrupt"]
	}

	excTable[vm.ExceptionPRIV] = addr["priv"]
	excTable[vm.ExceptionILL] = addr["ill"]
	excTable[vm.ExceptionACV] = addr["acv"]

	return &SystemImage{
		Tables: []vm.ObjectCode{
			{Orig: vm.TrapTable, Code: trapTable},
			{Orig: vm.ExceptionTable, Code: excTable},
		},
		Routines: routines,
	}, nil
}

// LoadTo installs the image's vector tables and handler routines into
// memory through loader, which bypasses the usual access-control checks
// the way booting a machine from ROM does.
func (img *SystemImage) LoadTo(loader *vm.Loader) error {
	for _, code := range img.Tables {
		if err := loader.LoadVector(code); err != nil {
			return fmt.Errorf("monitor: load vector table at %s: %w", code.Orig, err)
		}
	}

	for _, code := range img.Routines {
		if err := loader.LoadVector(code); err != nil {
			return fmt.Errorf("monitor: load routine at %s: %w", code.Orig, err)
		}
	}

	return nil
}

// SetUserPC writes the loaded user program's entry point into the data
// cell the OS bootstrap routine reads from, per §3's lifecycle: the
// machine always starts executing at the bootstrap entry in supervisor
// mode, and the bootstrap pushes this address as the initial user PC
// before dropping to user mode via RTI.
func SetUserPC(loader *vm.Loader, entry vm.Word) error {
	return loader.LoadVector(vm.ObjectCode{Orig: userPCCell, Code: []vm.Word{entry}})
}
