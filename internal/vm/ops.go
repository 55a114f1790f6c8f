package vm

// ops.go implements the operational semantics for each of the 15 opcodes
// and the reserved opcode, per §4.F. Each operation type implements as
// many of the addressable/fetchable/executable/storable stages (exec.go)
// as its instruction needs.

import "fmt"

// BR: conditional branch.
//
//	| 0000 | NZP | OFFSET9 |
//	|------+-----+---------|
//	|15  12|11  9|8       0|
type br struct {
	mo
	cond   Condition
	offset Word
}

var _ executable = &br{}

func (op *br) Decode(vm *LC3) {
	*op = br{mo: mo{vm: vm}, cond: vm.IR.Cond(), offset: vm.IR.Offset(OFFSET9)}
}

func (op *br) Execute() {
	if op.vm.PSR.Any(op.cond) {
		op.vm.PC = ProgramCounter(int16(op.vm.PC) + int16(op.offset))
	}
}

func (op br) String() string {
	return fmt.Sprintf("BR%s %s", op.cond, op.offset)
}

// ADD (register mode): DR <- SR1 + SR2.
//
//	| 0001 | DR | SR1 | 000 | SR2 |
//	|------+----+-----+-----+-----|
//	|15  12|11 9|8   6| 5  3|2   0|
type add struct {
	mo
	dr, sr1, sr2 GPR
}

var _ executable = &add{}

func (op *add) Decode(vm *LC3) {
	*op = add{mo: mo{vm: vm}, dr: vm.IR.DR(), sr1: vm.IR.SR1(), sr2: vm.IR.SR2()}
}

func (op *add) Execute() {
	op.vm.REG[op.dr] = Register(int16(op.vm.REG[op.sr1]) + int16(op.vm.REG[op.sr2]))
	op.vm.PSR.Set(op.vm.REG[op.dr])
}

func (op add) String() string {
	return fmt.Sprintf("ADD %s,%s,%s", op.dr, op.sr1, op.sr2)
}

// ADD (immediate mode): DR <- SR1 + sext5(imm5).
//
//	| 0001 | DR | SR1 | 1 | IMM5 |
//	|------+----+-----+---+------|
//	|15  12|11 9|8   6| 5 |4    0|
type addImm struct {
	mo
	dr, sr1 GPR
	lit     Word
}

var _ executable = &addImm{}

func (op *addImm) Decode(vm *LC3) {
	*op = addImm{mo: mo{vm: vm}, dr: vm.IR.DR(), sr1: vm.IR.SR1(), lit: vm.IR.Literal(IMM5)}
}

func (op *addImm) Execute() {
	op.vm.REG[op.dr] = Register(int16(op.vm.REG[op.sr1]) + int16(op.lit))
	op.vm.PSR.Set(op.vm.REG[op.dr])
}

func (op addImm) String() string {
	return fmt.Sprintf("ADD %s,%s,#%d", op.dr, op.sr1, int16(op.lit))
}

// AND (register mode): DR <- SR1 & SR2.
type and struct {
	mo
	dr, sr1, sr2 GPR
}

var _ executable = &and{}

func (op *and) Decode(vm *LC3) {
	*op = and{mo: mo{vm: vm}, dr: vm.IR.DR(), sr1: vm.IR.SR1(), sr2: vm.IR.SR2()}
}

func (op *and) Execute() {
	op.vm.REG[op.dr] = op.vm.REG[op.sr1] & op.vm.REG[op.sr2]
	op.vm.PSR.Set(op.vm.REG[op.dr])
}

func (op and) String() string {
	return fmt.Sprintf("AND %s,%s,%s", op.dr, op.sr1, op.sr2)
}

// AND (immediate mode): DR <- SR1 & sext5(imm5).
type andImm struct {
	mo
	dr, sr1 GPR
	lit     Word
}

var _ executable = &andImm{}

func (op *andImm) Decode(vm *LC3) {
	*op = andImm{mo: mo{vm: vm}, dr: vm.IR.DR(), sr1: vm.IR.SR1(), lit: vm.IR.Literal(IMM5)}
}

func (op *andImm) Execute() {
	op.vm.REG[op.dr] = op.vm.REG[op.sr1] & Register(op.lit)
	op.vm.PSR.Set(op.vm.REG[op.dr])
}

func (op andImm) String() string {
	return fmt.Sprintf("AND %s,%s,#%d", op.dr, op.sr1, int16(op.lit))
}

// NOT: DR <- ~SR.
type not struct {
	mo
	dr, sr GPR
}

var _ executable = &not{}

func (op *not) Decode(vm *LC3) {
	*op = not{mo: mo{vm: vm}, dr: vm.IR.DR(), sr: vm.IR.SR1()}
}

func (op *not) Execute() {
	op.vm.REG[op.dr] = op.vm.REG[op.sr] ^ 0xffff
	op.vm.PSR.Set(op.vm.REG[op.dr])
}

func (op not) String() string { return fmt.Sprintf("NOT %s,%s", op.dr, op.sr) }

// LD: DR <- memory[PC + sext9(off9)].
type ld struct {
	mo
	dr     GPR
	offset Word
}

var (
	_ addressable = &ld{}
	_ fetchable   = &ld{}
	_ executable  = &ld{}
)

func (op *ld) Decode(vm *LC3) {
	*op = ld{mo: mo{vm: vm}, dr: vm.IR.DR(), offset: vm.IR.Offset(OFFSET9)}
}

func (op *ld) EvalAddress() {
	op.vm.Mem.MAR = Register(int16(op.vm.PC) + int16(op.offset))
}

func (op *ld) FetchOperands() { op.vm.REG[op.dr] = op.vm.Mem.MDR }
func (op *ld) Execute()       { op.vm.PSR.Set(op.vm.REG[op.dr]) }
func (op ld) String() string  { return fmt.Sprintf("LD %s,%s", op.dr, op.offset) }

// LDI: EA1 <- PC + sext9(off9); EA2 <- memory[EA1]; DR <- memory[EA2].
//
// Both EA1 (checked implicitly by the executor's automatic Fetch) and EA2
// (checked here) are subject to the ACV rule, per the union resolution of
// the source's inconsistent ACV checking noted in §9.
type ldi struct {
	mo
	dr     GPR
	offset Word
}

var (
	_ addressable = &ldi{}
	_ fetchable   = &ldi{}
	_ executable  = &ldi{}
)

func (op *ldi) Decode(vm *LC3) {
	*op = ldi{mo: mo{vm: vm}, dr: vm.IR.DR(), offset: vm.IR.Offset(OFFSET9)}
}

func (op *ldi) EvalAddress() {
	op.vm.Mem.MAR = Register(int16(op.vm.PC) + int16(op.offset))
}

func (op *ldi) FetchOperands() {
	op.vm.Mem.MAR = op.vm.Mem.MDR // EA2, read from EA1.

	if err := op.vm.Mem.Fetch(); err != nil {
		op.Fail(op.vm.accessFault(err))
		return
	}

	op.vm.REG[op.dr] = op.vm.Mem.MDR
}

func (op *ldi) Execute() { op.vm.PSR.Set(op.vm.REG[op.dr]) }
func (op ldi) String() string { return fmt.Sprintf("LDI %s,%s", op.dr, op.offset) }

// LDR: EA <- R[base] + sext6(off6); DR <- memory[EA].
type ldr struct {
	mo
	dr, base GPR
	offset   Word
}

var (
	_ addressable = &ldr{}
	_ fetchable   = &ldr{}
	_ executable  = &ldr{}
)

func (op *ldr) Decode(vm *LC3) {
	*op = ldr{mo: mo{vm: vm}, dr: vm.IR.DR(), base: vm.IR.SR1(), offset: vm.IR.Offset(OFFSET6)}
}

func (op *ldr) EvalAddress() {
	op.vm.Mem.MAR = Register(int16(op.vm.REG[op.base]) + int16(op.offset))
}

func (op *ldr) FetchOperands() { op.vm.REG[op.dr] = op.vm.Mem.MDR }
func (op *ldr) Execute()       { op.vm.PSR.Set(op.vm.REG[op.dr]) }
func (op ldr) String() string  { return fmt.Sprintf("LDR %s,%s,%s", op.dr, op.base, op.offset) }

// LEA: DR <- PC + sext9(off9). LEA never touches memory; it loads an
// address, not a value, so it needs no ACV check.
type lea struct {
	mo
	dr     GPR
	offset Word
}

var _ executable = &lea{}

func (op *lea) Decode(vm *LC3) {
	*op = lea{mo: mo{vm: vm}, dr: vm.IR.DR(), offset: vm.IR.Offset(OFFSET9)}
}

func (op *lea) Execute() {
	op.vm.REG[op.dr] = Register(int16(op.vm.PC) + int16(op.offset))
	op.vm.PSR.Set(op.vm.REG[op.dr])
}

func (op lea) String() string { return fmt.Sprintf("LEA %s,%s", op.dr, op.offset) }

// ST: memory[PC + sext9(off9)] <- SR.
type st struct {
	mo
	sr     GPR
	offset Word
}

var (
	_ addressable = &st{}
	_ executable  = &st{}
	_ storable    = &st{}
)

func (op *st) Decode(vm *LC3) {
	*op = st{mo: mo{vm: vm}, sr: vm.IR.SR(), offset: vm.IR.Offset(OFFSET9)}
}

func (op *st) EvalAddress() {
	op.vm.Mem.MAR = Register(int16(op.vm.PC) + int16(op.offset))
}

func (op *st) Execute()      { op.vm.Mem.MDR = op.vm.REG[op.sr] }
func (op *st) StoreResult()  {}
func (op st) String() string { return fmt.Sprintf("ST %s,%s", op.sr, op.offset) }

// STI: EA1 <- PC + sext9(off9); EA2 <- memory[EA1]; memory[EA2] <- SR.
type sti struct {
	mo
	sr     GPR
	offset Word
}

var (
	_ addressable = &sti{}
	_ fetchable   = &sti{}
	_ executable  = &sti{}
	_ storable    = &sti{}
)

func (op *sti) Decode(vm *LC3) {
	*op = sti{mo: mo{vm: vm}, sr: vm.IR.SR(), offset: vm.IR.Offset(OFFSET9)}
}

func (op *sti) EvalAddress() {
	op.vm.Mem.MAR = Register(int16(op.vm.PC) + int16(op.offset))
}

func (op *sti) FetchOperands() { op.vm.Mem.MAR = op.vm.Mem.MDR } // EA2, read from EA1.
func (op *sti) Execute()       { op.vm.Mem.MDR = op.vm.REG[op.sr] }
func (op *sti) StoreResult()   {}
func (op sti) String() string  { return fmt.Sprintf("STI %s,%s", op.sr, op.offset) }

// STR: memory[R[base] + sext6(off6)] <- SR.
type str struct {
	mo
	sr, base GPR
	offset   Word
}

var (
	_ addressable = &str{}
	_ executable  = &str{}
	_ storable    = &str{}
)

func (op *str) Decode(vm *LC3) {
	*op = str{mo: mo{vm: vm}, sr: vm.IR.SR(), base: vm.IR.SR1(), offset: vm.IR.Offset(OFFSET6)}
}

func (op *str) EvalAddress() {
	op.vm.Mem.MAR = Register(int16(op.vm.REG[op.base]) + int16(op.offset))
}

func (op *str) Execute()      { op.vm.Mem.MDR = op.vm.REG[op.sr] }
func (op *str) StoreResult()  {}
func (op str) String() string { return fmt.Sprintf("STR %s,%s,%s", op.sr, op.base, op.offset) }

// JMP/RET: PC <- R[base].
type jmp struct {
	mo
	base GPR
}

var _ executable = &jmp{}

func (op *jmp) Decode(vm *LC3) {
	*op = jmp{mo: mo{vm: vm}, base: vm.IR.SR1()}
}

func (op *jmp) Execute() { op.vm.PC = ProgramCounter(op.vm.REG[op.base]) }

func (op jmp) String() string {
	if op.base == RETP {
		return "RET"
	}

	return fmt.Sprintf("JMP %s", op.base)
}

// JSR: R7 <- PC; PC <- PC + sext11(off11).
type jsr struct {
	mo
	offset Word
}

var _ executable = &jsr{}

func (op *jsr) Decode(vm *LC3) {
	*op = jsr{mo: mo{vm: vm}, offset: vm.IR.Offset(OFFSET11)}
}

func (op *jsr) Execute() {
	op.vm.REG[RETP] = Register(op.vm.PC)
	op.vm.PC = ProgramCounter(int16(op.vm.PC) + int16(op.offset))
}

func (op jsr) String() string { return fmt.Sprintf("JSR %s", op.offset) }

// JSRR: R7 <- PC; PC <- R[base].
type jsrr struct {
	mo
	base GPR
}

var _ executable = &jsrr{}

func (op *jsrr) Decode(vm *LC3) {
	*op = jsrr{mo: mo{vm: vm}, base: vm.IR.SR1()}
}

func (op *jsrr) Execute() {
	op.vm.REG[RETP] = Register(op.vm.PC)
	op.vm.PC = ProgramCounter(op.vm.REG[op.base])
}

func (op jsrr) String() string { return fmt.Sprintf("JSRR %s", op.base) }

// TRAP: enter supervisor mode through the trap vector table.
type trap struct {
	mo
	vec Word
}

var _ executable = &trap{}

func (op *trap) Decode(vm *LC3) {
	*op = trap{mo: mo{vm: vm}, vec: vm.IR.Vector(VECTOR8)}
}

func (op *trap) Execute() { op.err = newTrap(op.vm, op.vec) }

func (op trap) String() string { return fmt.Sprintf("TRAP %#x", uint16(op.vec)) }

// RTI: pop PC and PSR; if control returns to user mode, swap R6 with the
// saved user stack pointer. Executing RTI in user mode raises PRIV.
type rti struct{ mo }

var _ executable = &rti{}

func (op *rti) Decode(vm *LC3) { op.vm = vm }

func (op *rti) Execute() {
	if op.vm.PSR.Privilege() == PrivilegeUser {
		op.err = newPRIV(op.vm)
		return
	}

	if err := op.vm.PopStack(); err != nil {
		op.Fail(err)
		return
	}

	op.vm.PC = ProgramCounter(op.vm.Mem.MDR)

	if err := op.vm.PopStack(); err != nil {
		op.Fail(err)
		return
	}

	op.vm.PSR = ProcessorStatus(op.vm.Mem.MDR)

	if op.vm.PSR.Privilege() == PrivilegeUser {
		op.vm.SSP = op.vm.REG[SP]
		op.vm.REG[SP] = op.vm.USP
	}
}

func (op rti) String() string { return "RTI" }

// resv: the reserved opcode (1101). Raises ILL, since the LC-3e extension
// that would give it semantics is out of scope, per §1.
type resv struct{ mo }

var _ executable = &resv{}

func (op *resv) Decode(vm *LC3) { op.vm = vm }
func (op *resv) Execute()       { op.err = newILL(op.vm) }
func (op resv) String() string  { return "RESV" }
