package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nyuzi-go/nyuzigo/internal/cpu"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs([]string{"image.hex"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.mode != "normal" {
		t.Fatalf("mode = %q, want normal", cfg.mode)
	}
	if cfg.threads != cpu.NumThreads {
		t.Fatalf("threads = %d, want %d", cfg.threads, cpu.NumThreads)
	}
	if cfg.image != "image.hex" {
		t.Fatalf("image = %q, want image.hex", cfg.image)
	}
}

func TestParseArgsRejectsBadMode(t *testing.T) {
	if _, err := parseArgs([]string{"-m", "bogus", "image.hex"}); err == nil {
		t.Fatal("expected an error for an invalid -m mode")
	}
}

func TestParseArgsRejectsOutOfRangeThreads(t *testing.T) {
	if _, err := parseArgs([]string{"-t", "0", "image.hex"}); err == nil {
		t.Fatal("expected an error for -t 0")
	}
	if _, err := parseArgs([]string{"-t", "999", "image.hex"}); err == nil {
		t.Fatal("expected an error for -t beyond NumThreads")
	}
}

func TestParseArgsRequiresExactlyOnePositionalArg(t *testing.T) {
	if _, err := parseArgs(nil); err == nil {
		t.Fatal("expected an error with no image argument")
	}
}

func TestParseWxHAcceptsValidAndRejectsMalformed(t *testing.T) {
	w, h, err := parseWxH("640x480")
	if err != nil || w != 640 || h != 480 {
		t.Fatalf("parseWxH(640x480) = (%d,%d,%v), want (640,480,nil)", w, h, err)
	}
	if _, _, err := parseWxH("nope"); err == nil {
		t.Fatal("expected an error for a malformed WxH string")
	}
	if _, _, err := parseWxH("0x480"); err == nil {
		t.Fatal("expected an error for a zero dimension")
	}
}

func TestDumpMemoryWritesRequestedRange(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	proc.WriteWord(0x10, 0xaabbccdd)

	dir := t.TempDir()
	path := filepath.Join(dir, "dump.bin")
	if err := dumpMemory(proc, path+",10,4"); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xdd, 0xcc, 0xbb, 0xaa}
	for i, b := range want {
		if got[i] != b {
			t.Fatalf("dump[%d] = %#x, want %#x", i, got[i], b)
		}
	}
}

func TestDumpMemoryRejectsMalformedSpec(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	if err := dumpMemory(proc, "onlyonefield"); err == nil {
		t.Fatal("expected an error for a malformed -d spec")
	}
}
