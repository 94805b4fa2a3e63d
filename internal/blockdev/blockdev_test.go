package blockdev

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDevice(t *testing.T, data []byte) *Device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.img")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	// Run the 80 dummy clocks SPI init requires before the card accepts
	// command frames.
	for i := 0; i < 80; i++ {
		d.Clock()
	}
	return d
}

// sendCommand clocks one 6-byte SPI command frame through the device and
// returns the R1 response byte.
func sendCommand(d *Device, index byte, arg uint32) byte {
	d.ShiftIn(0x40 | index)
	d.Clock()
	d.ShiftIn(byte(arg >> 24))
	d.Clock()
	d.ShiftIn(byte(arg >> 16))
	d.Clock()
	d.ShiftIn(byte(arg >> 8))
	d.Clock()
	d.ShiftIn(byte(arg))
	d.Clock()
	d.ShiftIn(0x95) // CRC byte, ignored by this device
	d.Clock()
	return d.ShiftOut()
}

func TestCMD0ResetReturnsIdleState(t *testing.T) {
	d := newTestDevice(t, make([]byte, 1024))
	if got := sendCommand(d, cmd0, 0); got != 0x01 {
		t.Fatalf("CMD0 response = %#x, want 0x01 (idle)", got)
	}
}

func TestCMD1InitSucceedsAfterCountdown(t *testing.T) {
	d := newTestDevice(t, make([]byte, 1024))
	sendCommand(d, cmd0, 0)

	d.ShiftIn(0x40 | cmd1)
	d.Clock()
	d.ShiftIn(0)
	d.Clock()
	d.ShiftIn(0)
	d.Clock()
	d.ShiftIn(0)
	d.Clock()
	d.ShiftIn(0)
	d.Clock()
	d.ShiftIn(0x95)
	d.Clock() // dispatch happens here, enters stateWait

	var last byte = 0xff
	for i := 0; i < initCountdown; i++ {
		last = d.ShiftOut()
		d.Clock()
	}
	if last != 0x01 {
		t.Fatalf("CMD1 should still report busy (0x01) mid-countdown, got %#x", last)
	}
	if got := d.ShiftOut(); got != 0x00 {
		t.Fatalf("CMD1 response after countdown = %#x, want 0x00 (ready)", got)
	}
}

func TestCMD16SetsBlockLength(t *testing.T) {
	d := newTestDevice(t, make([]byte, 2048))
	if got := sendCommand(d, cmd16, 256); got != 0x00 {
		t.Fatalf("CMD16 response = %#x, want 0x00", got)
	}
	if d.blockLen != 256 {
		t.Fatalf("blockLen = %d, want 256", d.blockLen)
	}
}

func TestCMD17ReadBlockReturnsDataThenChecksumTrailer(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data[:512] {
		data[i] = byte(i)
	}
	d := newTestDevice(t, data)
	sendCommand(d, cmd16, 512)

	if got := sendCommand(d, cmd17, 0); got != 0x00 {
		t.Fatalf("CMD17 response = %#x, want 0x00", got)
	}

	for i := 0; i < 512; i++ {
		d.Clock()
		got := d.ShiftOut()
		if got != byte(i) {
			t.Fatalf("byte %d = %#x, want %#x", i, got, byte(i))
		}
	}
	d.Clock()
	checksum1 := d.ShiftOut()
	d.Clock()
	checksum2 := d.ShiftOut()
	if checksum1 != 0xff || checksum2 != 0xff {
		t.Fatalf("checksum trailer = %#x %#x, want 0xff 0xff", checksum1, checksum2)
	}
}

func TestCMD17PastEndOfImageReadsAsFF(t *testing.T) {
	d := newTestDevice(t, make([]byte, 256))
	sendCommand(d, cmd16, 512)
	sendCommand(d, cmd17, 0)
	for i := 0; i < 512; i++ {
		d.Clock()
		got := d.ShiftOut()
		if i >= 256 && got != 0xff {
			t.Fatalf("byte %d past end of image = %#x, want 0xff", i, got)
		}
	}
}

func TestUnknownCommandReturnsIllegalCommand(t *testing.T) {
	d := newTestDevice(t, make([]byte, 256))
	if got := sendCommand(d, 63, 0); got != 0x05 {
		t.Fatalf("unknown command response = %#x, want 0x05 (illegal command)", got)
	}
}
