package hexload

import (
	"strings"
	"testing"
)

func TestLoadWritesLittleEndianWords(t *testing.T) {
	mem := make([]byte, 16)
	err := Load(strings.NewReader("deadbeef\n01020304\n"), mem)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xef, 0xbe, 0xad, 0xde, 0x04, 0x03, 0x02, 0x01}
	for i, b := range want {
		if mem[i] != b {
			t.Fatalf("mem[%d] = %#x, want %#x", i, mem[i], b)
		}
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	mem := make([]byte, 8)
	err := Load(strings.NewReader("\n00000001\n\n"), mem)
	if err != nil {
		t.Fatal(err)
	}
	if mem[0] != 1 || mem[1] != 0 || mem[2] != 0 || mem[3] != 0 {
		t.Fatalf("mem[0:4] = % x, want 01 00 00 00", mem[0:4])
	}
}

func TestLoadRejectsInvalidHex(t *testing.T) {
	mem := make([]byte, 8)
	if err := Load(strings.NewReader("not-hex\n"), mem); err == nil {
		t.Fatal("expected an error for invalid hex text")
	}
}

func TestLoadRejectsImageLargerThanMemory(t *testing.T) {
	mem := make([]byte, 4)
	err := Load(strings.NewReader("00000001\n00000002\n"), mem)
	if err == nil {
		t.Fatal("expected an error when the image exceeds configured memory size")
	}
}
