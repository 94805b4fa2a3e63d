// Package machine implements the device register window at physical
// addresses 0xffff0000..0xffffffff (spec.md §6.4): serial console,
// keyboard scancode queue, the SPI block-device shift register, the
// thread-resume/thread-halt enable mask, the free-running timer, and the
// VGA base address/microcode sequencer registers. It satisfies
// cpu.MMIODevice and is mapped once at machine construction time.
package machine

import (
	"io"

	"github.com/nyuzi-go/nyuzigo/internal/blockdev"
	"github.com/nyuzi-go/nyuzigo/internal/cpu"
	"github.com/nyuzi-go/nyuzigo/internal/ps2"
)

// Base is the start of the device register window.
const Base uint32 = 0xffff0000

// Register offsets, relative to Base. All accesses must be 32-bit long
// per spec.md §6.4; Registers.ReadMMIO/WriteMMIO panic on any other width
// to surface that as the "emulator-only error" the spec calls for.
const (
	offSerialOut       = 0x00
	offSerialStatus    = 0x04
	offKeyboardStatus  = 0x08
	offKeyboardData    = 0x0c
	offSPIDataIn       = 0x10
	offSPIDataOut      = 0x14
	offSPIStatus       = 0x18
	offSPIControl      = 0x1c
	offSPIClockDivide  = 0x20
	offThreadResume    = 0x24
	offThreadHalt      = 0x28
	offTimerCountdown  = 0x2c
	offVGABase         = 0x30
	offVGASequencer    = 0x34
)

const vgaSequencerSize = 256

// Registers is the MMIO device backing the register window.
type Registers struct {
	proc   *cpu.Processor
	serial io.Writer
	keys   *ps2.Queue
	spi    *blockdev.Device

	vgaBase uint32
	vgaSeq  [vgaSequencerSize]byte
	vgaSeqN int
}

// New wires the register window to proc. spi may be nil if no block
// device image was attached (-b was not given).
func New(proc *cpu.Processor, serial io.Writer, keys *ps2.Queue, spi *blockdev.Device) *Registers {
	return &Registers{proc: proc, serial: serial, keys: keys, spi: spi}
}

// Attach maps the register window into proc at Base, size 0x10000.
func (r *Registers) Attach() {
	r.proc.MapMMIO(Base, 0x10000, r)
}

// VGABase returns the configured framebuffer physical base address, for
// the host presentation backend to scan out from.
func (r *Registers) VGABase() uint32 { return r.vgaBase }

func (r *Registers) ReadMMIO(offset uint32, width int) uint32 {
	if width != 4 {
		panic("machine: non-32-bit MMIO access")
	}
	switch offset {
	case offSerialStatus:
		return 1 // always ready
	case offKeyboardStatus:
		if r.keys != nil && !r.keys.Empty() {
			return 1
		}
		return 0
	case offKeyboardData:
		if r.keys == nil {
			return 0
		}
		return uint32(r.keys.Dequeue())
	case offSPIDataOut:
		if r.spi == nil {
			return 0xff
		}
		return uint32(r.spi.ShiftOut())
	case offSPIStatus:
		return 0 // never busy in this model
	case offThreadResume, offThreadHalt:
		return r.proc.ThreadEnableMask()
	case offVGABase:
		return r.vgaBase
	default:
		return 0
	}
}

func (r *Registers) WriteMMIO(offset uint32, width int, value uint32) {
	if width != 4 {
		panic("machine: non-32-bit MMIO access")
	}
	switch offset {
	case offSerialOut:
		if r.serial != nil {
			r.serial.Write([]byte{byte(value)})
		}
	case offSPIDataIn:
		if r.spi != nil {
			r.spi.ShiftIn(byte(value))
			r.spi.Clock()
		}
	case offSPIControl, offSPIClockDivide:
		// Chip-select/clock-rate are host-timing concerns this model does
		// not simulate; accepted and ignored.
	case offThreadResume:
		r.proc.SetThreadEnableMask(value, 0)
	case offThreadHalt:
		r.proc.SetThreadEnableMask(0, value)
	case offTimerCountdown:
		r.proc.ArmTimer(value)
	case offVGABase:
		r.vgaBase = value
	case offVGASequencer:
		if r.vgaSeqN < vgaSequencerSize {
			r.vgaSeq[r.vgaSeqN] = byte(value)
			r.vgaSeqN++
		}
	}
}
