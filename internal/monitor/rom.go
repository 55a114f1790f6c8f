package monitor

// rom.go lays out the fixed supervisor ROM image described in §4.D: the
// trap and interrupt/exception vector tables, and the hand-assembled
// handler routines they point at. The six standard trap addresses and the
// OS bootstrap entry are part of the emulator's contract, since user
// programs may observe them (e.g. a return address left in the stack by
// TRAP); everything else is free to live wherever there's room.

import "github.com/hgrove/lc3sim/internal/vm"

// Fixed addresses that user programs may depend on.
const (
	origBadTrap      = vm.Word(0x0200)
	origBadInterrupt = vm.Word(0x021a)
	origBoot         = vm.Word(0x0230) // OS bootstrap, per §3's lifecycle.
	origPuts         = vm.Word(0x023b)
	origOut          = vm.Word(0x024a)
	origGetc         = vm.Word(0x0254)
	origIn           = vm.Word(0x025a)
	origPutsp        = vm.Word(0x027a)
	origPriv         = vm.Word(0x02b0)
	origIll          = vm.Word(0x02d0)
	origAcv          = vm.Word(0x02e8)
	origHalt         = vm.Word(0x0308)

	// userPCCell is the word the OS bootstrap reads the user program's
	// entry point from. The loader writes it after loading the user's
	// object file(s), per §3.
	userPCCell = vm.Word(0x023a)
)

var badTrapRoutine = routine{
	name: "bad-trap",
	orig: origBadTrap,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		trap(vm.TrapHALT),
		label("msg"),
		stringz("\n\nBad Trap Executed!\n\n"),
	},
}

var badInterruptRoutine = routine{
	name: "bad-interrupt",
	orig: origBadInterrupt,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		trap(vm.TrapHALT),
		label("msg"),
		stringz("\n\nBad Interrupt!\n\n"),
	},
}

// bootRoutine drops the machine from the supervisor boot entry into the
// user program: push the user PSR and the loader-supplied user PC onto
// the (current, supervisor) stack, then RTI. userPCCell sits immediately
// after this routine's own code so the loader can poke it without knowing
// anything about ROM layout beyond its address.
var bootRoutine = routine{
	name: "boot",
	orig: origBoot,
	ops: []op{
		ldL{vm.R0, "psrval"},
		addImm(vm.SP, vm.SP, -1),
		str(vm.R0, vm.SP, 0),
		ldL{vm.R1, "userpc"},
		addImm(vm.SP, vm.SP, -1),
		str(vm.R1, vm.SP, 0),
		rti(),
		label("psrval"),
		word(0x8002), // Initial user PSR: user mode, Z set, per §3.
		word(0),      // Padding so userpc lands exactly at userPCCell.
		word(0),
		label("userpc"),
		word(0),
	},
}

// putsRoutine streams words starting at R0 through TRAP OUT until a 0
// word, per §4.D.
var putsRoutine = routine{
	name: "puts",
	orig: origPuts,
	ops: []op{
		addImm(vm.SP, vm.SP, -1),
		str(vm.R1, vm.SP, 0),
		label("ploop"),
		ldr(vm.R1, vm.R0, 0),
		brL{vm.ConditionZero, "pdone"},
		addImm(vm.SP, vm.SP, -1),
		str(vm.R0, vm.SP, 0),
		addImm(vm.R0, vm.R1, 0),
		trap(vm.TrapOUT),
		ldr(vm.R0, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		addImm(vm.R0, vm.R0, 1),
		brL{condAll, "ploop"},
		label("pdone"),
		ldr(vm.R1, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		rti(),
	},
}

// outRoutine spins on DSR, then stores R0 to DDR, per §4.D.
var outRoutine = routine{
	name: "out",
	orig: origOut,
	ops: []op{
		addImm(vm.SP, vm.SP, -1),
		str(vm.R1, vm.SP, 0),
		label("spin"),
		ldiL{vm.R1, "dsrptr"},
		brL{vm.ConditionZero | vm.ConditionPositive, "spin"},
		stiL{vm.R0, "ddrptr"},
		ldr(vm.R1, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		rti(),
		label("dsrptr"),
		word(vm.DSRAddr),
		label("ddrptr"),
		word(vm.DDRAddr),
	},
}

// getcRoutine spins on KBSR, then loads KBDR into R0, per §4.D.
var getcRoutine = routine{
	name: "getc",
	orig: origGetc,
	ops: []op{
		label("spin"),
		ldiL{vm.R0, "kbsrptr"},
		brL{vm.ConditionZero | vm.ConditionPositive, "spin"},
		ldiL{vm.R0, "kbdrptr"},
		rti(),
		label("kbsrptr"),
		word(vm.KBSRAddr),
		label("kbdrptr"),
		word(vm.KBDRAddr),
	},
}

// inRoutine prompts, reads one character, echoes it, and appends a
// newline, per §4.D.
var inRoutine = routine{
	name: "in",
	orig: origIn,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		trap(vm.TrapGETC),
		trap(vm.TrapOUT),
		addImm(vm.SP, vm.SP, -1),
		str(vm.R0, vm.SP, 0),
		andImm(vm.R0, vm.R0, 0),
		addImm(vm.R0, vm.R0, 10), // '\n'
		trap(vm.TrapOUT),
		ldr(vm.R0, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		rti(),
		label("msg"),
		stringz("Enter a Character: "),
	},
}

// putspRoutine is PUTS with two packed characters per word, low byte
// first, per §4.D and §9 note (c). A word whose low byte is 0 ends the
// string; if the low byte is non-zero but the high byte is 0, the low
// byte is still printed and the string ends there (an odd-length
// string's last word).
var putspRoutine = routine{
	name: "putsp",
	orig: origPutsp,
	ops: []op{
		addImm(vm.SP, vm.SP, -1),
		str(vm.R1, vm.SP, 0),
		addImm(vm.SP, vm.SP, -1),
		str(vm.R2, vm.SP, 0),
		addImm(vm.SP, vm.SP, -1),
		str(vm.R3, vm.SP, 0),
		addImm(vm.SP, vm.SP, -1),
		str(vm.R4, vm.SP, 0),
		addImm(vm.SP, vm.SP, -1),
		str(vm.R5, vm.SP, 0),
		ldL{vm.R5, "masklow"},

		label("ploop"),
		ldr(vm.R1, vm.R0, 0),
		andReg(vm.R2, vm.R1, vm.R5),
		brL{vm.ConditionZero, "pdone"},

		addImm(vm.SP, vm.SP, -1),
		str(vm.R0, vm.SP, 0),
		addImm(vm.R0, vm.R2, 0),
		trap(vm.TrapOUT),
		ldr(vm.R0, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),

		andImm(vm.R3, vm.R3, 0),
		andImm(vm.R4, vm.R4, 0),
		addImm(vm.R4, vm.R4, 8),

		label("shift"),
		addReg(vm.R3, vm.R3, vm.R3),
		addImm(vm.R1, vm.R1, 0), // set NZP from R1's top bit
		brL{vm.ConditionZero | vm.ConditionPositive, "nobit"},
		addImm(vm.R3, vm.R3, 1),
		label("nobit"),
		addReg(vm.R1, vm.R1, vm.R1),
		addImm(vm.R4, vm.R4, -1),
		brL{vm.ConditionPositive, "shift"},

		addImm(vm.R3, vm.R3, 0), // re-set NZP from the assembled high byte
		brL{vm.ConditionZero, "skipchar2"},

		addImm(vm.SP, vm.SP, -1),
		str(vm.R0, vm.SP, 0),
		addImm(vm.R0, vm.R3, 0),
		trap(vm.TrapOUT),
		ldr(vm.R0, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),

		addImm(vm.R0, vm.R0, 1),
		brL{condAll, "ploop"},

		label("skipchar2"),
		brL{condAll, "pdone"},

		label("pdone"),
		ldr(vm.R5, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		ldr(vm.R4, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		ldr(vm.R3, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		ldr(vm.R2, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		ldr(vm.R1, vm.SP, 0),
		addImm(vm.SP, vm.SP, 1),
		rti(),

		label("masklow"),
		word(0x00ff),
	},
}

var privRoutine = routine{
	name: "priv",
	orig: origPriv,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		trap(vm.TrapHALT),
		label("msg"),
		stringz("Privilege mode exception!\n"),
	},
}

var illRoutine = routine{
	name: "ill",
	orig: origIll,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		trap(vm.TrapHALT),
		label("msg"),
		stringz("Illegal opcode!\n"),
	},
}

var acvRoutine = routine{
	name: "acv",
	orig: origAcv,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		trap(vm.TrapHALT),
		label("msg"),
		stringz("Access control violation!\n"),
	},
}

// haltRoutine prints the halting banner, then clears the machine control
// register's run bit through an indirect read-modify-write, per §4.D.
var haltRoutine = routine{
	name: "halt",
	orig: origHalt,
	ops: []op{
		leaL{vm.R0, "msg"},
		trap(vm.TrapPUTS),
		ldiL{vm.R1, "mcrptr"},
		ldL{vm.R2, "mask"},
		andReg(vm.R1, vm.R1, vm.R2),
		stiL{vm.R1, "mcrptr"},
		rti(),
		label("msg"),
		stringz("\n\nHalting!\n\n"),
		label("mcrptr"),
		word(vm.MCRAddr),
		label("mask"),
		word(0x7fff),
	},
}

var allRoutines = []routine{
	badTrapRoutine, badInterruptRoutine, bootRoutine,
	putsRoutine, outRoutine, getcRoutine, inRoutine, putspRoutine,
	privRoutine, illRoutine, acvRoutine, haltRoutine,
}
