// Command lc3sim runs LC-3 object files on the emulator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hgrove/lc3sim/internal/debugger"
	"github.com/hgrove/lc3sim/internal/log"
	"github.com/hgrove/lc3sim/internal/monitor"
	"github.com/hgrove/lc3sim/internal/tty"
	"github.com/hgrove/lc3sim/internal/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// randomizeFlag implements flag.Value and the boolFlag interface so
// --randomize works bare (randomize from a clock-derived seed) or with an
// explicit --randomize=SEED for reproducing a reported bug.
type randomizeFlag struct {
	enabled  bool
	seed     int64
	explicit bool
}

func (r *randomizeFlag) String() string {
	if r == nil || !r.enabled {
		return ""
	}

	return strconv.FormatInt(r.seed, 10)
}

func (r *randomizeFlag) Set(s string) error {
	r.enabled = true

	if s == "" || s == "true" {
		return nil
	}

	seed, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return fmt.Errorf("randomize: %w", err)
	}

	r.seed = seed
	r.explicit = true

	return nil
}

func (r *randomizeFlag) IsBoolFlag() bool { return true }

func run(args []string) int {
	fs := flag.NewFlagSet("lc3sim", flag.ContinueOnError)

	var (
		randomize randomizeFlag
		debugFlag = fs.Bool("debug", false, "enable the interactive debugger, breakpointed at the user program entry")
		silent    = fs.Bool("silent", false, "suppress startup banners and the --dump output header")
		input     = fs.String("input", "", "provide `STR` as the keyboard input stream")
		dump      = fs.String("dump", "", "after halt, print the final contents of each comma-separated `address`")
		memory    = fs.String("memory", "", "pre-initialize memory: comma-separated `address,value,...` pairs")
		logLevel  = fs.String("loglevel", "", "set the log `level`: debug, info, warn, or error")
	)

	fs.Var(&randomize, "randomize", "seed and randomize R0..R7 before running; optional =SEED")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: lc3sim [flags] program.obj [program2.obj ...]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}

		return 1
	}

	if *logLevel != "" {
		var level log.Level
		if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "lc3sim: loglevel: %s\n", err)
			return 1
		}

		log.LogLevel.Set(level)
	}

	logger := log.DefaultLogger()

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "lc3sim: no program file provided")
		return 1
	}

	opts := []vm.OptionFn{vm.WithLogger(logger)}

	if randomize.enabled {
		seed := randomize.seed
		if !randomize.explicit {
			seed = time.Now().UnixNano()
		}

		if !*silent {
			fmt.Fprintf(os.Stderr, "lc3sim: randomizing registers, seed=%d\n", seed)
		}

		opts = append(opts, vm.WithRegisters(randomRegisters(seed)))
	}

	var (
		inputSource vm.InputSource
		console     *tty.Console
	)

	switch {
	case *input != "":
		inputSource = vm.NewBufferInput(*input)
		opts = append(opts, vm.WithOutput(os.Stdout))
	case *debugFlag:
		// The debugger's REPL owns stdin as its command source, so a live
		// console (which also reads stdin) cannot be wired at the same
		// time; --input is the only keyboard source available in --debug
		// mode.
		opts = append(opts, vm.WithOutput(os.Stdout))
	default:
		c, err := tty.NewConsole(os.Stdin, os.Stdout, os.Stderr)

		switch {
		case err == nil:
			console = c
			inputSource = c
			opts = append(opts, vm.WithOutput(c.Writer()))
		case errors.Is(err, tty.ErrNoTTY):
			opts = append(opts, vm.WithOutput(os.Stdout))
		default:
			fmt.Fprintf(os.Stderr, "lc3sim: console: %s\n", err)
			opts = append(opts, vm.WithOutput(os.Stdout))
		}
	}

	if console != nil {
		defer console.Restore()
	}

	machine := vm.New(opts...)
	loader := vm.NewLoader(machine)

	img, err := monitor.NewSystemImage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lc3sim: supervisor rom: %s\n", err)
		return 1
	}

	if err := img.LoadTo(loader); err != nil {
		fmt.Fprintf(os.Stderr, "lc3sim: supervisor rom: %s\n", err)
		return 1
	}

	var userPC vm.Word

	for i, path := range files {
		orig, err := loadObjectFile(loader, path)
		if err != nil {
			last := i == len(files)-1

			fmt.Fprintf(os.Stderr, "lc3sim: %s: %s\n", path, err)

			if last {
				return 1
			}

			continue
		}

		userPC = orig

		if !*silent {
			fmt.Fprintf(os.Stderr, "lc3sim: loaded %s at %s\n", path, orig)
		}
	}

	if err := monitor.SetUserPC(loader, userPC); err != nil {
		fmt.Fprintf(os.Stderr, "lc3sim: %s\n", err)
		return 1
	}

	if err := presetMemory(machine, *memory); err != nil {
		fmt.Fprintf(os.Stderr, "lc3sim: --memory: %s\n", err)
		return 1
	}

	var loopOpts vm.LoopOptions
	loopOpts.Input = inputSource

	if *debugFlag {
		dbg := debugger.New(os.Stdin, os.Stdout)

		if err := dbg.AddBreakpoint(userPC); err != nil {
			fmt.Fprintf(os.Stderr, "lc3sim: debugger: %s\n", err)
			return 1
		}

		loopOpts.Debugger = dbg
	}

	if !*silent {
		fmt.Fprintf(os.Stderr, "lc3sim: starting at %s\n", userPC)
	}

	if err := machine.Loop(context.Background(), loopOpts); err != nil {
		fmt.Fprintf(os.Stderr, "lc3sim: %s\n", err)
		return 1
	}

	if !*silent {
		fmt.Fprintln(os.Stderr, "lc3sim: halted")
	}

	if err := dumpMemory(machine, *dump, *silent); err != nil {
		fmt.Fprintf(os.Stderr, "lc3sim: --dump: %s\n", err)
		return 1
	}

	return 0
}

// loadObjectFile opens path and loads its single origin-addressed block,
// per §6.
func loadObjectFile(loader *vm.Loader, path string) (vm.Word, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return loader.Load(f)
}

// presetMemory applies the --memory flag's comma-separated address,value
// pairs.
func presetMemory(machine *vm.LC3, spec string) error {
	if spec == "" {
		return nil
	}

	fields := strings.Split(spec, ",")
	if len(fields)%2 != 0 {
		return fmt.Errorf("expected address,value pairs, got %d fields", len(fields))
	}

	for i := 0; i < len(fields); i += 2 {
		addr, err := parseWord(fields[i])
		if err != nil {
			return err
		}

		val, err := parseWord(fields[i+1])
		if err != nil {
			return err
		}

		if err := machine.Mem.Poke(addr, val); err != nil {
			return err
		}
	}

	return nil
}

// dumpMemory implements the --dump flag: after halt, print the final
// contents of each comma-separated address.
func dumpMemory(machine *vm.LC3, spec string, silent bool) error {
	if spec == "" {
		return nil
	}

	if !silent {
		fmt.Println("lc3sim: dump:")
	}

	for _, s := range strings.Split(spec, ",") {
		addr, err := parseWord(s)
		if err != nil {
			return err
		}

		val, err := machine.Mem.Peek(addr)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s\n", addr, val)
	}

	return nil
}

// parseWord parses a hex (0x-prefixed) or bare decimal address/value, per
// the leniency described in SPEC_FULL.md §4.
func parseWord(s string) (vm.Word, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}

	return vm.Word(v), nil
}

// randomRegisters seeds R0..R7 from a deterministic PRNG, per --randomize.
func randomRegisters(seed int64) [vm.NumGPR]vm.Register {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec

	var regs [vm.NumGPR]vm.Register
	for i := range regs {
		regs[i] = vm.Register(rng.Uint32())
	}

	return regs
}
