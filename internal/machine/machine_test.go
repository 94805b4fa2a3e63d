package machine

import (
	"bytes"
	"testing"

	"github.com/nyuzi-go/nyuzigo/internal/cpu"
	"github.com/nyuzi-go/nyuzigo/internal/ps2"
)

func TestSerialOutWritesToHost(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	var out bytes.Buffer
	r := New(proc, &out, &ps2.Queue{}, nil)
	r.Attach()

	proc.WriteWord(Base+offSerialOut, uint32('A'))
	if out.String() != "A" {
		t.Fatalf("serial output = %q, want %q", out.String(), "A")
	}
	if got := proc.ReadWord(Base + offSerialStatus); got != 1 {
		t.Fatalf("serial status = %d, want 1 (always ready)", got)
	}
}

func TestKeyboardStatusAndDataRoundTrip(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	keys := &ps2.Queue{}
	r := New(proc, &bytes.Buffer{}, keys, nil)
	r.Attach()

	if got := proc.ReadWord(Base + offKeyboardStatus); got != 0 {
		t.Fatalf("keyboard status on empty queue = %d, want 0", got)
	}
	keys.Press(ps2.KeyA)
	if got := proc.ReadWord(Base + offKeyboardStatus); got != 1 {
		t.Fatalf("keyboard status with pending data = %d, want 1", got)
	}
	if got := proc.ReadWord(Base + offKeyboardData); got != 0x1e {
		t.Fatalf("keyboard data = %#x, want 0x1e", got)
	}
}

func TestThreadResumeAndHaltRegistersGateScheduling(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	r := New(proc, &bytes.Buffer{}, &ps2.Queue{}, nil)
	r.Attach()

	proc.WriteWord(Base+offThreadResume, 0x3)
	if got := proc.ReadWord(Base + offThreadResume); got&0x3 != 0x3 {
		t.Fatalf("thread enable mask = %#x, want bits 0,1 set", got)
	}
	proc.WriteWord(Base+offThreadHalt, 0x1)
	if got := proc.ReadWord(Base + offThreadHalt); got&0x1 != 0 {
		t.Fatalf("thread 0 should be halted, mask = %#x", got)
	}
	if !proc.Thread(1).Enabled {
		t.Fatal("thread 1 should remain enabled")
	}
	if proc.Thread(0).Enabled {
		t.Fatal("thread 0 should be halted")
	}
}

func TestTimerCountdownWriteIsAccepted(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	r := New(proc, &bytes.Buffer{}, &ps2.Queue{}, nil)
	r.Attach()

	proc.WriteWord(Base+offTimerCountdown, 5)
	// ArmTimer is exercised directly via the processor in internal/cpu's
	// own tests; here we only confirm the register write reaches it
	// without panicking on a valid 32-bit access.
}

func TestVGABaseRoundTrips(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	r := New(proc, &bytes.Buffer{}, &ps2.Queue{}, nil)
	r.Attach()

	proc.WriteWord(Base+offVGABase, 0x100000)
	if got := proc.ReadWord(Base + offVGABase); got != 0x100000 {
		t.Fatalf("VGA base = %#x, want 0x100000", got)
	}
	if got := r.VGABase(); got != 0x100000 {
		t.Fatalf("VGABase() = %#x, want 0x100000", got)
	}
}

func TestSPIDataOutWithoutAttachedDeviceReadsFF(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	r := New(proc, &bytes.Buffer{}, &ps2.Queue{}, nil)
	r.Attach()

	if got := proc.ReadWord(Base + offSPIDataOut); got != 0xff {
		t.Fatalf("SPI data-out with no device = %#x, want 0xff", got)
	}
}

func TestNon32BitAccessPanics(t *testing.T) {
	proc := cpu.NewProcessor(0x1000)
	r := New(proc, &bytes.Buffer{}, &ps2.Queue{}, nil)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on a non-32-bit MMIO access")
		}
	}()
	r.ReadMMIO(offSerialStatus, 1)
}
