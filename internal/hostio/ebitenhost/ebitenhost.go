// Package ebitenhost is the windowed hostio backend: an ebiten.Game that
// presents frames pushed via Host.Present and translates ebiten key
// events into the PS/2 scancode queue via Host.PollEvents.
package ebitenhost

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/nyuzi-go/nyuzigo/internal/ps2"
)

// Host implements hostio.FrameSink and hostio.InputSource against an
// ebiten window.
type Host struct {
	mu     sync.RWMutex
	width  int
	height int
	pixels []byte
	window *ebiten.Image

	title string
}

// New returns a Host sized w x h; the window opens when Run is called.
func New(title string, w, h int) *Host {
	return &Host{title: title, width: w, height: h, pixels: make([]byte, w*h*4)}
}

// Run starts the ebiten event loop; it blocks until the window closes.
// Callers typically run this in its own goroutine alongside the machine's
// instruction loop.
func (h *Host) Run() error {
	ebiten.SetWindowSize(h.width, h.height)
	ebiten.SetWindowTitle(h.title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	return ebiten.RunGame(h)
}

// Present satisfies hostio.FrameSink: it copies pixels into the window's
// backing buffer for the next Draw call.
func (h *Host) Present(pixels []byte, w, h2 int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w != h.width || h2 != h.height {
		h.width, h.height = w, h2
		h.pixels = make([]byte, w*h2*4)
		h.window = nil
	}
	copy(h.pixels, pixels)
	return nil
}

// PollEvents satisfies hostio.InputSource: it translates ebiten keys
// pressed or released since the previous tick into PS/2 scancodes.
func (h *Host) PollEvents(q *ps2.Queue) {
	for key, pk := range keyTable {
		switch {
		case inpututil.IsKeyJustPressed(key):
			q.Press(pk)
		case inpututil.IsKeyJustReleased(key):
			q.Release(pk)
		}
	}
}

// Update is ebiten.Game's per-tick hook; this backend has no simulation
// state of its own to advance (the machine loop runs independently), so
// it only checks for the window close request.
func (h *Host) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	return nil
}

// Draw uploads the most recently presented frame and blits it full-screen.
func (h *Host) Draw(screen *ebiten.Image) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.window == nil {
		h.window = ebiten.NewImage(h.width, h.height)
	}
	h.window.WritePixels(h.pixels)
	screen.DrawImage(h.window, nil)
}

// Layout reports the current logical screen size to ebiten: the size
// given to New, or that of the last Present with different dimensions.
func (h *Host) Layout(_, _ int) (int, int) {
	return h.width, h.height
}

// keyTable maps the subset of ebiten keys this host translates to their
// ps2 equivalents; unlisted keys are simply not forwarded.
var keyTable = map[ebiten.Key]ps2.Key{
	ebiten.KeyA: ps2.KeyA, ebiten.KeyB: ps2.KeyB, ebiten.KeyC: ps2.KeyC,
	ebiten.KeyD: ps2.KeyD, ebiten.KeyE: ps2.KeyE, ebiten.KeyF: ps2.KeyF,
	ebiten.KeyG: ps2.KeyG, ebiten.KeyH: ps2.KeyH, ebiten.KeyI: ps2.KeyI,
	ebiten.KeyJ: ps2.KeyJ, ebiten.KeyK: ps2.KeyK, ebiten.KeyL: ps2.KeyL,
	ebiten.KeyM: ps2.KeyM, ebiten.KeyN: ps2.KeyN, ebiten.KeyO: ps2.KeyO,
	ebiten.KeyP: ps2.KeyP, ebiten.KeyQ: ps2.KeyQ, ebiten.KeyR: ps2.KeyR,
	ebiten.KeyS: ps2.KeyS, ebiten.KeyT: ps2.KeyT, ebiten.KeyU: ps2.KeyU,
	ebiten.KeyV: ps2.KeyV, ebiten.KeyW: ps2.KeyW, ebiten.KeyX: ps2.KeyX,
	ebiten.KeyY: ps2.KeyY, ebiten.KeyZ: ps2.KeyZ,

	ebiten.Digit0: ps2.Key0, ebiten.Digit1: ps2.Key1, ebiten.Digit2: ps2.Key2,
	ebiten.Digit3: ps2.Key3, ebiten.Digit4: ps2.Key4, ebiten.Digit5: ps2.Key5,
	ebiten.Digit6: ps2.Key6, ebiten.Digit7: ps2.Key7, ebiten.Digit8: ps2.Key8,
	ebiten.Digit9: ps2.Key9,

	ebiten.KeyEnter: ps2.KeyEnter, ebiten.KeySpace: ps2.KeySpace,
	ebiten.KeyEscape: ps2.KeyEscape, ebiten.KeyBackspace: ps2.KeyBackspace,
	ebiten.KeyTab: ps2.KeyTab, ebiten.KeyShiftLeft: ps2.KeyLeftShift,
	ebiten.KeyControlLeft: ps2.KeyLeftCtrl, ebiten.KeyAltLeft: ps2.KeyLeftAlt,
	ebiten.KeyControlRight: ps2.KeyRightCtrl, ebiten.KeyAltRight: ps2.KeyRightAlt,

	ebiten.KeyArrowUp: ps2.KeyUp, ebiten.KeyArrowDown: ps2.KeyDown,
	ebiten.KeyArrowLeft: ps2.KeyLeft, ebiten.KeyArrowRight: ps2.KeyRight,
	ebiten.KeyInsert: ps2.KeyInsert, ebiten.KeyDelete: ps2.KeyDelete,
	ebiten.KeyHome: ps2.KeyHome, ebiten.KeyEnd: ps2.KeyEnd,
}
