// Package disasm renders a 16-bit machine word as a printable LC-3
// assembly mnemonic, the way the debugger's decode/decode-i commands need
// it (§4.H).
package disasm

import (
	"fmt"

	"github.com/hgrove/lc3sim/internal/vm"
)

// trapNames maps the standard trap vectors to their mnemonic, per §4.H.
var trapNames = map[vm.Word]string{
	vm.TrapGETC:  "GETC",
	vm.TrapOUT:   "OUT",
	vm.TrapPUTS:  "PUTS",
	vm.TrapIN:    "IN",
	vm.TrapPUTSP: "PUTSP",
	vm.TrapHALT:  "HALT",
}

// Disassemble renders w as an assembly instruction string. It is a pure
// function of the word: it does not need a running machine, since every
// operand field is self-contained in the encoding.
func Disassemble(w vm.Word) string {
	ir := vm.Instruction(w)

	switch ir.Opcode() {
	case vm.BR:
		return fmt.Sprintf("BR%s %s", ir.Cond(), signed(ir.Offset(vm.OFFSET9)))
	case vm.ADD:
		if ir.Imm() {
			return fmt.Sprintf("ADD %s,%s,#%d", ir.DR(), ir.SR1(), int16(ir.Literal(vm.IMM5)))
		}

		return fmt.Sprintf("ADD %s,%s,%s", ir.DR(), ir.SR1(), ir.SR2())
	case vm.LD:
		return fmt.Sprintf("LD %s,%s", ir.DR(), signed(ir.Offset(vm.OFFSET9)))
	case vm.ST:
		return fmt.Sprintf("ST %s,%s", ir.SR(), signed(ir.Offset(vm.OFFSET9)))
	case vm.JSR:
		if ir.Relative() {
			return fmt.Sprintf("JSR %s", signed(ir.Offset(vm.OFFSET11)))
		}

		return fmt.Sprintf("JSRR %s", ir.SR1())
	case vm.AND:
		if ir.Imm() {
			return fmt.Sprintf("AND %s,%s,#%d", ir.DR(), ir.SR1(), int16(ir.Literal(vm.IMM5)))
		}

		return fmt.Sprintf("AND %s,%s,%s", ir.DR(), ir.SR1(), ir.SR2())
	case vm.LDR:
		return fmt.Sprintf("LDR %s,%s,%s", ir.DR(), ir.SR1(), signed(ir.Offset(vm.OFFSET6)))
	case vm.STR:
		return fmt.Sprintf("STR %s,%s,%s", ir.SR(), ir.SR1(), signed(ir.Offset(vm.OFFSET6)))
	case vm.RTI:
		return "RTI"
	case vm.NOT:
		return fmt.Sprintf("NOT %s,%s", ir.DR(), ir.SR1())
	case vm.LDI:
		return fmt.Sprintf("LDI %s,%s", ir.DR(), signed(ir.Offset(vm.OFFSET9)))
	case vm.STI:
		return fmt.Sprintf("STI %s,%s", ir.SR(), signed(ir.Offset(vm.OFFSET9)))
	case vm.JMP:
		if ir.SR1() == vm.RETP {
			return "RET"
		}

		return fmt.Sprintf("JMP %s", ir.SR1())
	case vm.LEA:
		return fmt.Sprintf("LEA %s,%s", ir.DR(), signed(ir.Offset(vm.OFFSET9)))
	case vm.TRAP:
		vec := ir.Vector(vm.VECTOR8)
		if name, ok := trapNames[vec]; ok {
			return fmt.Sprintf("TRAP %s", name)
		}

		return fmt.Sprintf("TRAP 0x%02x", uint16(vec))
	default: // RESV.
		return "RESV"
	}
}

// signed renders a sign-extended offset as a decimal literal, e.g. "#-3".
func signed(w vm.Word) string {
	return fmt.Sprintf("#%d", int16(w))
}
