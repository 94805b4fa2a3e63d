// Package headless is the default FrameSink/InputSource backend: it
// counts presented frames without opening a window, so tests and -m cosim
// runs never need a display.
package headless

import "sync/atomic"

// Sink is a headless hostio.FrameSink.
type Sink struct {
	frameCount uint64
	lastW      int
	lastH      int
}

// New returns a ready-to-use headless sink.
func New() *Sink { return &Sink{} }

func (s *Sink) Present(pixels []byte, w, h int) error {
	atomic.AddUint64(&s.frameCount, 1)
	s.lastW, s.lastH = w, h
	return nil
}

// FrameCount returns the number of frames presented so far.
func (s *Sink) FrameCount() uint64 { return atomic.LoadUint64(&s.frameCount) }

// LastSize returns the dimensions of the most recently presented frame.
func (s *Sink) LastSize() (int, int) { return s.lastW, s.lastH }
