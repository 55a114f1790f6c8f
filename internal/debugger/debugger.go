// Package debugger implements the interactive REPL described in §4.I: a
// line-oriented console that inspects and steers a running machine
// between instruction steps.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hgrove/lc3sim/internal/disasm"
	"github.com/hgrove/lc3sim/internal/vm"
)

// maxBreakpoints bounds the breakpoint set, per §4.I ("cap ≈ 64 entries").
const maxBreakpoints = 64

// runMode tracks whether the REPL prompts before every step or lets the
// machine run free until something stops it.
type runMode int

const (
	modeStep runMode = iota
	modeContinue
)

// Debugger is a vm.Debugger: the loop driver calls Before ahead of every
// instruction. It owns the REPL's line reader, breakpoint set, and
// run-mode state across calls.
type Debugger struct {
	in  *bufio.Scanner
	out io.Writer

	mode    runMode
	breaks  []vm.Word
	oneShot *vm.Word // set by "next"; cleared once hit

	lastLine string
	quit     bool
}

// New creates a Debugger reading commands from in and writing output to
// out.
func New(in io.Reader, out io.Writer) *Debugger {
	return &Debugger{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// AddBreakpoint installs a breakpoint, e.g. the automatic one placed at
// the user program's entry point when --debug is given.
func (d *Debugger) AddBreakpoint(addr vm.Word) error {
	return d.breakAdd(addr)
}

// Before implements vm.Debugger. It is entered ahead of every instruction;
// while in continue mode with no breakpoint hit, it returns immediately
// without prompting. Otherwise it runs the REPL, reading and executing
// lines until one of them decides how the next step should proceed.
func (d *Debugger) Before(cpu *vm.LC3) (bool, error) {
	if d.quit {
		return false, nil
	}

	if d.mode == modeContinue && !d.atStop(cpu.PC) {
		return true, nil
	}

	d.mode = modeStep
	d.oneShot = nil

	for {
		fmt.Fprintf(d.out, "(lc3sim) %s > ", vm.Word(cpu.PC))

		line, ok := d.readLine()
		if !ok {
			return false, nil
		}

		cont, step, err := d.dispatch(cpu, line)
		if err != nil {
			fmt.Fprintf(d.out, "error: %s\n", err)
			continue
		}

		if step {
			return cont, nil
		}
	}
}

// atStop reports whether pc is a breakpoint or the pending one-shot
// target; if it is the one-shot target, the target is cleared.
func (d *Debugger) atStop(pc vm.ProgramCounter) bool {
	addr := vm.Word(pc)

	if d.oneShot != nil && *d.oneShot == addr {
		d.oneShot = nil

		return true
	}

	for _, b := range d.breaks {
		if b == addr {
			return true
		}
	}

	return false
}

// readLine reads the next command line, repeating the last non-empty line
// when the new one is empty, per §4.I.
func (d *Debugger) readLine() (string, bool) {
	if !d.in.Scan() {
		return "", false
	}

	line := strings.TrimSpace(d.in.Text())
	if line == "" {
		line = d.lastLine
	} else {
		d.lastLine = line
	}

	return line, true
}

// dispatch executes one command line. The step return reports whether
// Before should return now (true) rather than loop for another line; cont
// is the value Before should return to the loop driver in that case.
func (d *Debugger) dispatch(cpu *vm.LC3, line string) (cont bool, step bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, false, nil
	}

	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "s", "step":
		return true, true, nil
	case "c", "continue":
		d.mode = modeContinue

		return true, true, nil
	case "n", "next":
		return d.next(cpu)
	case "q", "quit":
		d.quit = true

		return false, true, nil
	case "clear":
		fmt.Fprint(d.out, "\033[H\033[2J")

		return false, false, nil
	case "help":
		d.help(args)

		return false, false, nil
	case "read":
		return false, false, d.read(cpu, args)
	case "write":
		return false, false, d.write(cpu, args)
	case "decode":
		return false, false, d.decode(cpu, args)
	case "decode-i":
		return false, false, d.decodeImmediate(args)
	case "goto":
		return false, false, d.goTo(cpu, args)
	case "reg":
		return false, false, d.reg(cpu, args)
	case "break":
		return false, false, d.breakCmd(args)
	default:
		return false, false, fmt.Errorf("unknown command: %s", cmd)
	}
}

// next implements the "n" command: if the upcoming instruction is a call
// (JSR, JSRR, or TRAP), it sets a one-shot breakpoint at PC+1 and
// continues; otherwise it behaves exactly like "step".
func (d *Debugger) next(cpu *vm.LC3) (bool, bool, error) {
	word, err := cpu.Mem.Peek(vm.Word(cpu.PC))
	if err != nil {
		return false, false, err
	}

	switch vm.Instruction(word).Opcode() {
	case vm.JSR, vm.TRAP:
		target := vm.Word(cpu.PC) + 1
		d.oneShot = &target
		d.mode = modeContinue

		return true, true, nil
	default:
		return true, true, nil
	}
}

func (d *Debugger) help(args []string) {
	if len(args) == 0 {
		fmt.Fprint(d.out, `commands:
  s, step                  execute one instruction
  c, continue              run until breakpoint, halt, or exception
  n, next                  step over calls
  q, quit                  exit the emulator
  clear                    clear the screen
  read <hex>                print memory[addr]
  write <hex> <hex>         memory[addr] <- value
  decode <hex|PC>           disassemble memory[addr]
  decode-i <hex>            disassemble an immediate value
  goto <hex>                PC <- addr
  reg ...                   see: help reg
  break ...                 see: help break
`)

		return
	}

	switch args[0] {
	case "break":
		fmt.Fprint(d.out, `break add|push <hex>      add a breakpoint
break rm|remove <hex>     remove a breakpoint
break pop                 remove the most recently added breakpoint
break list|show           print all breakpoints
break clear               remove all breakpoints
`)
	case "reg":
		fmt.Fprint(d.out, `reg list|show             dump R0..R7, PSR, PC, IR
reg clear                 zero R0..R7
reg set R# <hex>          set one register
`)
	default:
		fmt.Fprintf(d.out, "no help for %q\n", args[0])
	}
}

func (d *Debugger) read(cpu *vm.LC3, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: read <hex>")
	}

	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}

	val, err := cpu.Mem.Peek(addr)
	if err != nil {
		return err
	}

	fmt.Fprintf(d.out, "%s: %s\n", addr, val)

	return nil
}

func (d *Debugger) write(cpu *vm.LC3, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: write <hex> <hex>")
	}

	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}

	val, err := parseWord(args[1])
	if err != nil {
		return err
	}

	return cpu.Mem.Poke(addr, val)
}

func (d *Debugger) decode(cpu *vm.LC3, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: decode <hex|PC>")
	}

	var addr vm.Word

	if strings.EqualFold(args[0], "PC") {
		addr = vm.Word(cpu.PC)
	} else {
		w, err := parseWord(args[0])
		if err != nil {
			return err
		}

		addr = w
	}

	word, err := cpu.Mem.Peek(addr)
	if err != nil {
		return err
	}

	fmt.Fprintf(d.out, "%s: %s\n", addr, disasm.Disassemble(word))

	return nil
}

func (d *Debugger) decodeImmediate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: decode-i <hex>")
	}

	word, err := parseWord(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(d.out, "%s\n", disasm.Disassemble(word))

	return nil
}

func (d *Debugger) goTo(cpu *vm.LC3, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: goto <hex>")
	}

	addr, err := parseWord(args[0])
	if err != nil {
		return err
	}

	cpu.PC = vm.ProgramCounter(addr)

	return nil
}

func (d *Debugger) reg(cpu *vm.LC3, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: reg list|show|clear|set")
	}

	switch args[0] {
	case "list", "show":
		fmt.Fprintf(d.out, "%sPSR: %s\nPC: %s\nIR: %s\n", cpu.REG, cpu.PSR, cpu.PC, cpu.IR)

		return nil
	case "clear":
		cpu.REG = vm.RegisterFile{}

		return nil
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: reg set R# <hex>")
		}

		gpr, err := parseGPR(args[1])
		if err != nil {
			return err
		}

		val, err := parseWord(args[2])
		if err != nil {
			return err
		}

		cpu.REG[gpr] = vm.Register(val)

		return nil
	default:
		return fmt.Errorf("usage: reg list|show|clear|set")
	}
}

func (d *Debugger) breakCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break add|push|rm|remove|pop|list|show|clear")
	}

	switch args[0] {
	case "add", "push":
		if len(args) != 2 {
			return fmt.Errorf("usage: break add <hex>")
		}

		addr, err := parseWord(args[1])
		if err != nil {
			return err
		}

		return d.breakAdd(addr)
	case "rm", "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: break rm <hex>")
		}

		addr, err := parseWord(args[1])
		if err != nil {
			return err
		}

		for i, b := range d.breaks {
			if b == addr {
				d.breaks = append(d.breaks[:i], d.breaks[i+1:]...)

				return nil
			}
		}

		return fmt.Errorf("no breakpoint at %s", addr)
	case "pop":
		if len(d.breaks) == 0 {
			return fmt.Errorf("no breakpoints set")
		}

		d.breaks = d.breaks[:len(d.breaks)-1]

		return nil
	case "list", "show":
		for _, b := range d.breaks {
			fmt.Fprintf(d.out, "%s\n", b)
		}

		return nil
	case "clear":
		d.breaks = nil

		return nil
	default:
		return fmt.Errorf("usage: break add|push|rm|remove|pop|list|show|clear")
	}
}

func (d *Debugger) breakAdd(addr vm.Word) error {
	if len(d.breaks) >= maxBreakpoints {
		return fmt.Errorf("too many breakpoints (max %d)", maxBreakpoints)
	}

	for _, b := range d.breaks {
		if b == addr {
			return nil
		}
	}

	d.breaks = append(d.breaks, addr)

	return nil
}

func parseWord(s string) (vm.Word, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}

	return vm.Word(v), nil
}

func parseGPR(s string) (vm.GPR, error) {
	s = strings.TrimPrefix(strings.ToUpper(s), "R")

	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n >= uint64(vm.NumGPR) {
		return 0, fmt.Errorf("%q: not a register", s)
	}

	return vm.GPR(n), nil
}
