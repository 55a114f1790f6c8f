package vm

import "testing"

func TestAddImmediate(tt *testing.T) {
	tt.Parallel()

	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	cpu.PC = 0x3000
	cpu.REG[R1] = 0x0002
	_ = cpu.Mem.store(0x3000, Word(NewInstruction(ADD, uint16(R0)<<9|uint16(R1)<<6|1<<5|-2&0x1f).Encode()))

	if err := cpu.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if cpu.REG[R0] != 0x0000 {
		t.Errorf("R0: want 0, got %s", cpu.REG[R0])
	}

	if !cpu.PSR.Zero() {
		t.Errorf("PSR: want Z set, got %s", cpu.PSR)
	}

	if cpu.PC != 0x3001 {
		t.Errorf("PC: want 0x3001, got %s", cpu.PC)
	}
}

func TestLdPositiveOffset(tt *testing.T) {
	tt.Parallel()

	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	cpu.PC = 0x3000
	_ = cpu.Mem.store(0x3000, Word(NewInstruction(LD, uint16(R0)<<9|5).Encode()))
	_ = cpu.Mem.store(0x3006, 0x00ff) // PC (0x3001) + 5

	if err := cpu.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if cpu.REG[R0] != 0x00ff {
		t.Errorf("R0: want 0x00ff, got %s", cpu.REG[R0])
	}

	if !cpu.PSR.Positive() {
		t.Errorf("PSR: want P set, got %s", cpu.PSR)
	}
}

// TestLDIAccessUnion exercises the §9 open question: both the pointer
// address (EA1) and the dereferenced address (EA2) must pass the
// access-control check for LDI to succeed in user mode.
func TestLDIAccessUnion(tt *testing.T) {
	tt.Parallel()

	tt.Run("EA1 out of bounds", func(tt *testing.T) {
		t := NewTestHarness(tt)
		cpu := t.Make()

		cpu.PSR = StatusUser | StatusNormal
		cpu.PC = 0x3000
		cpu.REG[SP] = 0x2ff0
		cpu.SSP = 0x1200
		_ = cpu.Mem.store(ExceptionTable|ExceptionACV, 0x0600)

		// PC-relative offset -2 from 0x3001 (PC after fetch) puts EA1 at
		// 0x2fff, just below user space.
		_ = cpu.Mem.store(0x3000, Word(NewInstruction(LDI, uint16(R0)<<9|-2&0x1ff).Encode()))

		if err := cpu.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}

		if cpu.PC != 0x0600 {
			t.Errorf("PC: want dispatch to ACV handler 0x0600, got %s", cpu.PC)
		}
	})

	tt.Run("EA2 out of bounds", func(tt *testing.T) {
		t := NewTestHarness(tt)
		cpu := t.Make()

		cpu.PSR = StatusUser | StatusNormal
		cpu.PC = 0x3000
		cpu.REG[SP] = 0x2ff0
		cpu.SSP = 0x1200
		_ = cpu.Mem.store(ExceptionTable|ExceptionACV, 0x0600)

		// EA1 (0x3010, offset +15) is in user space and holds a pointer to
		// EA2 (0x2fff), just below user space: the union rule must still
		// reject the access even though EA1 itself was legal.
		_ = cpu.Mem.store(0x3010, 0x2fff)
		_ = cpu.Mem.store(0x3000, Word(NewInstruction(LDI, uint16(R0)<<9|15).Encode()))

		if err := cpu.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}

		if cpu.PC != 0x0600 {
			t.Errorf("PC: want dispatch to ACV handler 0x0600, got %s", cpu.PC)
		}
	})
}

func TestTrapRTIRoundTrip(tt *testing.T) {
	tt.Parallel()

	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	cpu.PSR = StatusUser | StatusNormal | StatusZero
	cpu.PC = 0x3000
	cpu.REG[SP] = 0x2ff0
	cpu.SSP = 0x1200

	_ = cpu.Mem.store(0x3000, Word(NewInstruction(TRAP, uint16(TrapHALT)).Encode()))
	_ = cpu.Mem.store(TrapTable|TrapHALT, 0x0500)
	_ = cpu.Mem.store(0x0500, Word(NewInstruction(RTI, 0).Encode()))

	if err := cpu.Step(); err != nil {
		t.Fatalf("trap dispatch: %v", err)
	}

	if cpu.PC != 0x0500 {
		t.Errorf("PC after trap: want 0x0500, got %s", cpu.PC)
	}

	if cpu.PSR.Privilege() != PrivilegeSystem {
		t.Errorf("expected system mode after trap, got %s", cpu.PSR.Privilege())
	}

	if err := cpu.Step(); err != nil {
		t.Fatalf("rti: %v", err)
	}

	if cpu.PC != 0x3001 {
		t.Errorf("PC after rti: want 0x3001 (return address), got %s", cpu.PC)
	}

	if cpu.PSR.Privilege() != PrivilegeUser {
		t.Errorf("expected user mode restored after rti, got %s", cpu.PSR.Privilege())
	}

	if cpu.REG[SP] != 0x2ff0 {
		t.Errorf("user SP: want restored to 0x2ff0, got %s", cpu.REG[SP])
	}
}

func TestRTIInUserModeIsPrivilegeViolation(tt *testing.T) {
	tt.Parallel()

	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	cpu.PSR = StatusUser | StatusNormal
	cpu.PC = 0x3000
	cpu.REG[SP] = 0x2ff0
	cpu.SSP = 0x1200

	_ = cpu.Mem.store(0x3000, Word(NewInstruction(RTI, 0).Encode()))
	_ = cpu.Mem.store(ExceptionTable|ExceptionPRIV, 0x0600)

	if err := cpu.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if cpu.PC != 0x0600 {
		t.Errorf("PC: want dispatch to PRIV handler 0x0600, got %s", cpu.PC)
	}
}

func TestReservedOpcodeIsIllegalInstruction(tt *testing.T) {
	tt.Parallel()

	var (
		t   = NewTestHarness(tt)
		cpu = t.Make()
	)

	cpu.PC = 0x3000
	_ = cpu.Mem.store(0x3000, Word(NewInstruction(RESV, 0).Encode()))
	_ = cpu.Mem.store(ExceptionTable|ExceptionILL, 0x0700)

	if err := cpu.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if cpu.PC != 0x0700 {
		t.Errorf("PC: want dispatch to ILL handler 0x0700, got %s", cpu.PC)
	}
}
