package vm

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestLoaderRoundTrip(tt *testing.T) {
	tt.Parallel()

	var (
		t      = NewTestHarness(tt)
		cpu    = t.Make()
		loader = NewLoader(cpu)
	)

	var buf bytes.Buffer

	words := []uint16{0x3000, 0x1021, 0x5020, 0xf025}
	for _, w := range words {
		if err := binary.Write(&buf, binary.BigEndian, w); err != nil {
			t.Fatalf("build object file: %v", err)
		}
	}

	orig, err := loader.Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if orig != 0x3000 {
		t.Errorf("origin: want 0x3000, got %s", orig)
	}

	for i, want := range words[1:] {
		addr := Word(orig) + Word(i)

		got, err := cpu.Mem.load(addr)
		if err != nil {
			t.Fatalf("load(%s): %v", addr, err)
		}

		if got != Word(want) {
			t.Errorf("memory[%s]: want %#04x, got %#04x", addr, want, got)
		}
	}
}

func TestLoaderTruncatedOrigin(tt *testing.T) {
	tt.Parallel()

	var (
		t      = NewTestHarness(tt)
		cpu    = t.Make()
		loader = NewLoader(cpu)
	)

	if _, err := loader.Load(bytes.NewReader([]byte{0x30})); err == nil {
		t.Errorf("expected error for truncated origin")
	}
}

func TestLoadVector(tt *testing.T) {
	tt.Parallel()

	var (
		t      = NewTestHarness(tt)
		cpu    = t.Make()
		loader = NewLoader(cpu)
	)

	code := ObjectCode{Orig: 0x0200, Code: []Word{0x1021, 0x5020}}

	if err := loader.LoadVector(code); err != nil {
		t.Fatalf("loadvector: %v", err)
	}

	for i, want := range code.Code {
		got, err := cpu.Mem.load(code.Orig + Word(i))
		if err != nil {
			t.Fatalf("load: %v", err)
		}

		if got != want {
			t.Errorf("memory[%s]: want %s, got %s", code.Orig+Word(i), want, got)
		}
	}
}
