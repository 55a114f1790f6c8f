package monitor

import (
	"testing"

	"github.com/hgrove/lc3sim/internal/vm"
)

func TestRoutinesAssembleWithoutError(tt *testing.T) {
	tt.Parallel()

	for _, r := range allRoutines {
		r := r

		tt.Run(r.name, func(tt *testing.T) {
			tt.Parallel()

			if _, err := r.assemble(); err != nil {
				tt.Fatalf("assemble: %v", err)
			}
		})
	}
}

// TestFixedEntryPoints locks in the spec-mandated addresses: user programs
// may observe these via the return address TRAP leaves on the stack, so
// each routine must land exactly where the one after it expects.
func TestFixedEntryPoints(tt *testing.T) {
	tt.Parallel()

	want := map[string]vm.Word{
		"boot":  origBoot,
		"puts":  origPuts,
		"out":   origOut,
		"getc":  origGetc,
		"in":    origIn,
		"putsp": origPutsp,
	}

	for name, orig := range want {
		for _, r := range allRoutines {
			if r.name != name {
				continue
			}

			if r.orig != orig {
				tt.Errorf("%s: want orig %s, got %s", name, orig, r.orig)
			}
		}
	}
}

func TestNewSystemImage(tt *testing.T) {
	tt.Parallel()

	img, err := NewSystemImage()
	if err != nil {
		tt.Fatalf("new system image: %v", err)
	}

	if len(img.Tables) != 2 {
		tt.Fatalf("tables: want 2, got %d", len(img.Tables))
	}

	trapTable, excTable := img.Tables[0], img.Tables[1]

	if trapTable.Orig != vm.TrapTable {
		tt.Errorf("trap table orig: want %s, got %s", vm.TrapTable, trapTable.Orig)
	}

	if excTable.Orig != vm.ExceptionTable {
		tt.Errorf("exception table orig: want %s, got %s", vm.ExceptionTable, excTable.Orig)
	}

	if trapTable.Code[vm.TrapHALT] != origHalt {
		tt.Errorf("trap table[HALT]: want %s, got %s", origHalt, trapTable.Code[vm.TrapHALT])
	}

	if trapTable.Code[0x7f] != origBadTrap {
		tt.Errorf("trap table[unused]: want bad-trap handler %s, got %s", origBadTrap, trapTable.Code[0x7f])
	}

	if excTable.Code[vm.ExceptionACV] != origAcv {
		tt.Errorf("exception table[ACV]: want %s, got %s", origAcv, excTable.Code[vm.ExceptionACV])
	}

	if excTable.Code[0x7f] != origBadInterrupt {
		tt.Errorf("exception table[unused]: want bad-interrupt handler %s, got %s",
			origBadInterrupt, excTable.Code[0x7f])
	}
}

func TestSystemImageLoadTo(tt *testing.T) {
	tt.Parallel()

	cpu := vm.New()
	loader := vm.NewLoader(cpu)

	img, err := NewSystemImage()
	if err != nil {
		tt.Fatalf("new system image: %v", err)
	}

	if err := img.LoadTo(loader); err != nil {
		tt.Fatalf("load to: %v", err)
	}

	if err := SetUserPC(loader, 0x4000); err != nil {
		tt.Fatalf("set user pc: %v", err)
	}

	if got := cpu.Mem.View()[userPCCell]; got != 0x4000 {
		tt.Errorf("user pc cell: want 0x4000, got %s", got)
	}
}
