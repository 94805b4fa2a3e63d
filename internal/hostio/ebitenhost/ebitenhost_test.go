package ebitenhost

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/nyuzi-go/nyuzigo/internal/ps2"
)

func TestLayoutReportsConfiguredSize(t *testing.T) {
	h := New("test", 320, 240)
	w, hh := h.Layout(0, 0)
	if w != 320 || hh != 240 {
		t.Fatalf("Layout() = (%d,%d), want (320,240)", w, hh)
	}
}

func TestPresentCopiesPixelsAndHandlesResize(t *testing.T) {
	h := New("test", 4, 4)
	frame := make([]byte, 4*4*4)
	for i := range frame {
		frame[i] = byte(i)
	}
	if err := h.Present(frame, 4, 4); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if h.pixels[0] != 0 || h.pixels[1] != 1 {
		t.Fatalf("pixels not copied: %v", h.pixels[:4])
	}

	bigger := make([]byte, 8*8*4)
	if err := h.Present(bigger, 8, 8); err != nil {
		t.Fatalf("Present (resize): %v", err)
	}
	w, hh := h.Layout(0, 0)
	if w != 8 || hh != 8 {
		t.Fatalf("Layout() after resize = (%d,%d), want (8,8)", w, hh)
	}
}

func TestKeyTableMapsLettersAndDigits(t *testing.T) {
	cases := map[ebiten.Key]ps2.Key{
		ebiten.KeyA:      ps2.KeyA,
		ebiten.Digit1:    ps2.Key1,
		ebiten.KeyEnter:  ps2.KeyEnter,
		ebiten.KeyArrowUp: ps2.KeyUp,
	}
	for ek, want := range cases {
		got, ok := keyTable[ek]
		if !ok {
			t.Fatalf("keyTable missing entry for %v", ek)
		}
		if got != want {
			t.Fatalf("keyTable[%v] = %v, want %v", ek, got, want)
		}
	}
}
