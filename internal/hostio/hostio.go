// Package hostio defines the collaborator contract between the core
// machine and its windowing/input host: a FrameSink receives presented
// pixel buffers, an InputSource delivers translated PS/2 key events. The
// core never imports a concrete backend directly; cmd/emulator selects
// one at startup.
package hostio

import "github.com/nyuzi-go/nyuzigo/internal/ps2"

// FrameSink receives a completed framebuffer for presentation. pixels is
// packed RGBA8, row-major, w*h*4 bytes.
type FrameSink interface {
	Present(pixels []byte, w, h int) error
}

// InputSource delivers host key events into a PS/2 scancode queue as they
// arrive; PollEvents is called once per host frame tick.
type InputSource interface {
	PollEvents(q *ps2.Queue)
}

// NullSink discards presented frames without counting them. cmd/emulator
// does not use it: without -f it presents to a headless.Sink.
type NullSink struct{}

func (NullSink) Present(pixels []byte, w, h int) error { return nil }

// NullSource delivers no input events; used whenever no windowed backend
// is active.
type NullSource struct{}

func (NullSource) PollEvents(q *ps2.Queue) {}
