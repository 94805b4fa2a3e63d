// Package blockdev models a read-only SD/MMC card over a tiny SPI command
// state machine, backed by a host file, per spec.md §4.13/§6.4.
package blockdev

import "os"

// state is the SPI controller's position in its command cycle.
type state int

const (
	stateInitWaitForClocks state = iota
	stateIdle
	stateReceiveCommand
	stateWait
	stateSend
	stateRead
)

const (
	cmd0  = 0  // GO_IDLE_STATE (reset)
	cmd1  = 1  // SEND_OP_COND (initialize)
	cmd16 = 16 // SET_BLOCKLEN
	cmd17 = 17 // READ_SINGLE_BLOCK

	initCountdown = 8 // CMD1 "succeeds after a countdown" per spec.md §4.13
	cmdFrameLen   = 6 // 1 cmd byte + 4 arg bytes + 1 CRC byte
)

// Device is a block device backed by a host file, exposed through a small
// SPI shift-register protocol: the caller clocks one byte in via ShiftIn
// and reads the response byte via ShiftOut (data-in/data-out MMIO
// registers); Clock advances the state machine once per SPI clock.
type Device struct {
	data      []byte
	blockLen  uint32
	st        state
	clocksLeft int

	cmdBuf  [cmdFrameLen]byte
	cmdLen  int
	initCnt int
	initDone bool

	readAddr uint32
	readBuf  []byte
	readPos  int

	in, out byte
}

// Open loads path fully into memory, modeling the toy FAT-less read-only
// card image the spec describes; only block-granular reads are supported.
func Open(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Device{data: data, blockLen: 512, st: stateInitWaitForClocks, clocksLeft: 80}, nil
}

// ShiftIn presents one byte on the SPI data-in line.
func (d *Device) ShiftIn(b byte) { d.in = b }

// ShiftOut returns the most recently produced response byte on the SPI
// data-out line (0xff, the SPI idle/high line value, when nothing is
// pending).
func (d *Device) ShiftOut() byte { return d.out }

// Clock advances the state machine by one SPI clock, consuming d.in and
// producing the next d.out.
func (d *Device) Clock() {
	switch d.st {
	case stateInitWaitForClocks:
		d.out = 0xff
		d.clocksLeft--
		if d.clocksLeft <= 0 {
			d.st = stateIdle
		}

	case stateIdle:
		d.out = 0xff
		if d.in&0xc0 == 0x40 { // command frame start bit pattern 01xxxxxx
			d.cmdBuf[0] = d.in
			d.cmdLen = 1
			d.st = stateReceiveCommand
		}

	case stateReceiveCommand:
		d.out = 0xff
		d.cmdBuf[d.cmdLen] = d.in
		d.cmdLen++
		if d.cmdLen == cmdFrameLen {
			d.dispatchCommand()
		}

	case stateWait:
		d.out = d.waitResponse()

	case stateSend:
		d.out = d.sendResponse()

	case stateRead:
		d.out = d.readByte()
	}
}

func (d *Device) cmdIndex() int  { return int(d.cmdBuf[0] &^ 0x40) }
func (d *Device) cmdArg() uint32 {
	return uint32(d.cmdBuf[1])<<24 | uint32(d.cmdBuf[2])<<16 | uint32(d.cmdBuf[3])<<8 | uint32(d.cmdBuf[4])
}

func (d *Device) dispatchCommand() {
	switch d.cmdIndex() {
	case cmd0:
		d.initDone = false
		d.st = stateSend
		d.out = 0x01 // R1: idle state
	case cmd1:
		d.initCnt = initCountdown
		d.st = stateWait
	case cmd16:
		d.blockLen = d.cmdArg()
		d.st = stateSend
		d.out = 0x00 // R1: ready
	case cmd17:
		d.readAddr = d.cmdArg()
		d.st = stateSend
		d.out = 0x00
	default:
		d.st = stateSend
		d.out = 0x05 // R1: illegal command
	}
}

// waitResponse models CMD1's "non-deterministically succeeds after a
// countdown": here, deterministically after initCountdown clocks, which is
// an acceptable narrowing of "non-deterministic" for a byte-exact cosim
// channel.
func (d *Device) waitResponse() byte {
	d.initCnt--
	if d.initCnt <= 0 {
		d.initDone = true
		d.st = stateSend
		return 0x00
	}
	return 0x01
}

func (d *Device) sendResponse() byte {
	if d.cmdIndex() == cmd17 {
		d.beginRead()
		return d.readByte()
	}
	// The R1 byte is already out; this clock may carry the first byte of
	// the next command frame, so it is handled as an idle clock.
	d.st = stateIdle
	d.Clock()
	return d.out
}

func (d *Device) beginRead() {
	d.st = stateRead
	n := int(d.blockLen)
	buf := make([]byte, n+2) // +2 checksum trailer
	start := int(d.readAddr)
	for i := 0; i < n; i++ {
		if start+i < len(d.data) {
			buf[i] = d.data[start+i]
		} else {
			buf[i] = 0xff // past end of image
		}
	}
	buf[n] = 0xff
	buf[n+1] = 0xff
	d.readBuf = buf
	d.readPos = 0
}

func (d *Device) readByte() byte {
	if d.readPos >= len(d.readBuf) {
		d.st = stateIdle
		return 0xff
	}
	b := d.readBuf[d.readPos]
	d.readPos++
	if d.readPos == len(d.readBuf) {
		d.st = stateIdle
	}
	return b
}
