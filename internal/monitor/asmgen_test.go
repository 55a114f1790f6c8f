package monitor

import (
	"testing"

	"github.com/hgrove/lc3sim/internal/vm"
)

func TestSymbolTableOffset(tt *testing.T) {
	tt.Parallel()

	sym := SymbolTable{"there": 0x3010}

	// The referencing instruction sits at 0x300e; the offset is relative to
	// the address of the following instruction, 0x300f.
	off, err := sym.Offset("there", 0x300e, 9)
	if err != nil {
		tt.Fatalf("offset: %v", err)
	}

	if off != 1 {
		tt.Errorf("offset: want 1, got %d", off)
	}
}

func TestSymbolTableOffsetOutOfRange(tt *testing.T) {
	tt.Parallel()

	sym := SymbolTable{"far": 0x4000}

	if _, err := sym.Offset("far", 0x3000, 9); err == nil {
		tt.Errorf("expected out-of-range error")
	}
}

func TestSymbolTableUndefined(tt *testing.T) {
	tt.Parallel()

	sym := SymbolTable{}

	if _, err := sym.Offset("missing", 0x3000, 9); err == nil {
		tt.Errorf("expected undefined-label error")
	}
}

func TestRoutineAssembleResolvesLabels(tt *testing.T) {
	tt.Parallel()

	r := routine{
		name: "test",
		orig: 0x0300,
		ops: []op{
			brL{vm.ConditionZero, "target"},
			word(0x1021),
			label("target"),
			word(0x1022),
		},
	}

	code, err := r.assemble()
	if err != nil {
		tt.Fatalf("assemble: %v", err)
	}

	if code.Orig != 0x0300 {
		tt.Errorf("orig: want 0x0300, got %s", code.Orig)
	}

	if len(code.Code) != 3 {
		tt.Fatalf("code length: want 3, got %d", len(code.Code))
	}

	br := vm.Instruction(code.Code[0])
	if br.Opcode() != vm.BR {
		tt.Errorf("opcode: want BR, got %s", br.Opcode())
	}

	if off := br.Offset(vm.OFFSET9); off != 1 {
		tt.Errorf("branch offset: want 1, got %s", off)
	}
}

func TestRoutineAssembleOutOfRangeLabel(tt *testing.T) {
	tt.Parallel()

	ops := []op{brL{vm.ConditionZero, "target"}}
	for i := 0; i < 300; i++ {
		ops = append(ops, word(0))
	}

	ops = append(ops, label("target"), word(0))

	r := routine{name: "overflow", orig: 0x0300, ops: ops}

	if _, err := r.assemble(); err == nil {
		tt.Errorf("expected out-of-range error for a 300-word branch")
	}
}
