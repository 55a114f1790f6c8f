// Package monitor builds the supervisor ROM image: the trap and
// interrupt/exception vector tables plus the hand-assembled handler code
// that backs the standard trap services and fault diagnostics (§4.D).
//
// There is no text assembler here — assembling LC-3 source is out of
// scope. What remains is the operand-encoding half of that job: small
// typed values that know how to encode themselves into a machine word,
// plus label-to-address resolution for the handful of intra-routine
// branches and LEAs the ROM code needs.
package monitor

import (
	"fmt"

	"github.com/hgrove/lc3sim/internal/vm"
)

// SymbolTable resolves label names to addresses within a single routine.
type SymbolTable map[string]vm.Word

// Offset computes the sign-extended n-bit PC-relative offset from the
// address immediately following the referencing instruction (pc+1, the
// value PC holds once that instruction has been fetched) to the named
// label.
func (s SymbolTable) Offset(name string, pc vm.Word, n uint8) (uint16, error) {
	addr, ok := s[name]
	if !ok {
		return 0, fmt.Errorf("monitor: undefined label %q", name)
	}

	off := int32(addr) - int32(pc) - 1
	lo := -(int32(1) << (n - 1))
	hi := int32(1)<<(n-1) - 1

	if off < lo || off > hi {
		return 0, fmt.Errorf("monitor: label %q out of range (%d)", name, off)
	}

	return uint16(off) & (uint16(1)<<n - 1), nil
}

// op is one instruction or data word (or several, for string data) in a
// hand-assembled routine.
type op interface {
	Words() int
	Generate(sym SymbolTable, pc vm.Word) ([]vm.Word, error)
}

// label marks the address of the following op without emitting a word of
// its own.
type label string

func (label) Words() int                                         { return 0 }
func (label) Generate(SymbolTable, vm.Word) ([]vm.Word, error)    { return nil, nil }

// word is a single, fully-resolved instruction or data word.
type word vm.Word

func (w word) Words() int { return 1 }

func (w word) Generate(SymbolTable, vm.Word) ([]vm.Word, error) {
	return []vm.Word{vm.Word(w)}, nil
}

// stringz encodes a NUL-terminated sequence of one-character-per-word
// data, the encoding PUTS expects.
type stringz string

func (s stringz) Words() int { return len(s) + 1 }

func (s stringz) Generate(SymbolTable, vm.Word) ([]vm.Word, error) {
	out := make([]vm.Word, 0, len(s)+1)
	for _, r := range []byte(s) {
		out = append(out, vm.Word(r))
	}

	return append(out, 0), nil
}

// brL is a branch to a label, resolved to a 9-bit PC-relative offset.
type brL struct {
	cond vm.Condition
	to   string
}

func (brL) Words() int { return 1 }

func (b brL) Generate(sym SymbolTable, pc vm.Word) ([]vm.Word, error) {
	off, err := sym.Offset(b.to, pc, 9)
	if err != nil {
		return nil, err
	}

	return []vm.Word{vm.NewInstruction(vm.BR, uint16(b.cond)<<9|off).Encode()}, nil
}

// ldL loads DR from the word stored at a labeled data cell.
type ldL struct {
	dr vm.GPR
	to string
}

func (ldL) Words() int { return 1 }

func (l ldL) Generate(sym SymbolTable, pc vm.Word) ([]vm.Word, error) {
	off, err := sym.Offset(l.to, pc, 9)
	if err != nil {
		return nil, err
	}

	return []vm.Word{vm.NewInstruction(vm.LD, uint16(l.dr)<<9|off).Encode()}, nil
}

// leaL loads DR with the address of a label.
type leaL struct {
	dr vm.GPR
	to string
}

func (leaL) Words() int { return 1 }

func (l leaL) Generate(sym SymbolTable, pc vm.Word) ([]vm.Word, error) {
	off, err := sym.Offset(l.to, pc, 9)
	if err != nil {
		return nil, err
	}

	return []vm.Word{vm.NewInstruction(vm.LEA, uint16(l.dr)<<9|off).Encode()}, nil
}

// ldiL loads DR indirectly through the pointer stored at a labeled data
// cell (LDI's effective address is itself read from memory).
type ldiL struct {
	dr vm.GPR
	to string
}

func (ldiL) Words() int { return 1 }

func (l ldiL) Generate(sym SymbolTable, pc vm.Word) ([]vm.Word, error) {
	off, err := sym.Offset(l.to, pc, 9)
	if err != nil {
		return nil, err
	}

	return []vm.Word{vm.NewInstruction(vm.LDI, uint16(l.dr)<<9|off).Encode()}, nil
}

// stiL is the STI counterpart of ldiL.
type stiL struct {
	sr vm.GPR
	to string
}

func (stiL) Words() int { return 1 }

func (s stiL) Generate(sym SymbolTable, pc vm.Word) ([]vm.Word, error) {
	off, err := sym.Offset(s.to, pc, 9)
	if err != nil {
		return nil, err
	}

	return []vm.Word{vm.NewInstruction(vm.STI, uint16(s.sr)<<9|off).Encode()}, nil
}

// Plain instruction constructors. Every operand here is fully known at
// routine-construction time, so each returns an already-encoded word.

func addReg(dr, sr1, sr2 vm.GPR) word {
	return word(vm.NewInstruction(vm.ADD, uint16(dr)<<9|uint16(sr1)<<6|uint16(sr2)).Encode())
}

func addImm(dr, sr1 vm.GPR, lit int8) word {
	return word(vm.NewInstruction(vm.ADD, uint16(dr)<<9|uint16(sr1)<<6|1<<5|uint16(lit)&0x1f).Encode())
}

func andReg(dr, sr1, sr2 vm.GPR) word {
	return word(vm.NewInstruction(vm.AND, uint16(dr)<<9|uint16(sr1)<<6|uint16(sr2)).Encode())
}

func andImm(dr, sr1 vm.GPR, lit int8) word {
	return word(vm.NewInstruction(vm.AND, uint16(dr)<<9|uint16(sr1)<<6|1<<5|uint16(lit)&0x1f).Encode())
}

func not(dr, sr vm.GPR) word {
	return word(vm.NewInstruction(vm.NOT, uint16(dr)<<9|uint16(sr)<<6|0x03f).Encode())
}

func ldr(dr, base vm.GPR, off6 int8) word {
	return word(vm.NewInstruction(vm.LDR, uint16(dr)<<9|uint16(base)<<6|uint16(off6)&0x3f).Encode())
}

func str(sr, base vm.GPR, off6 int8) word {
	return word(vm.NewInstruction(vm.STR, uint16(sr)<<9|uint16(base)<<6|uint16(off6)&0x3f).Encode())
}

func trap(vec vm.Word) word {
	return word(vm.NewInstruction(vm.TRAP, uint16(vec)&0x0ff).Encode())
}

func rti() word { return word(vm.NewInstruction(vm.RTI, 0).Encode()) }

const condAll = vm.ConditionNegative | vm.ConditionZero | vm.ConditionPositive

// routine is a block of ROM code assembled to a fixed origin, addressed
// through one vector table entry.
type routine struct {
	name string
	orig vm.Word
	ops  []op
}

// assemble resolves the routine's local labels and generates its words,
// as an ObjectCode ready for vm.Loader.LoadVector.
func (r routine) assemble() (vm.ObjectCode, error) {
	sym := SymbolTable{}
	addr := r.orig

	for _, o := range r.ops {
		if l, ok := o.(label); ok {
			sym[string(l)] = addr
			continue
		}

		addr += vm.Word(o.Words())
	}

	code := make([]vm.Word, 0, addr-r.orig)
	addr = r.orig

	for _, o := range r.ops {
		if _, ok := o.(label); ok {
			continue
		}

		words, err := o.Generate(sym, addr)
		if err != nil {
			return vm.ObjectCode{}, fmt.Errorf("monitor: %s: %w", r.name, err)
		}

		code = append(code, words...)
		addr += vm.Word(len(words))
	}

	return vm.ObjectCode{Orig: r.orig, Code: code}, nil
}
