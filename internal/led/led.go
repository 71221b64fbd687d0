// Package led commits rendered frames to an addressable LED strip.
package led

import (
	"sync"
	"time"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// Strip is an addressable LED chain. SetPixel only buffers; Show pushes the
// whole buffer to the LEDs at once.
type Strip interface {
	Len() int
	SetPixel(i int, c logic.Color)
	Show() error
}

// DefaultCount is the number of LEDs on the device's chain.
const DefaultCount = 7

// Commit writes a frame to the strip and shows it once. LEDs beyond the
// logical indices are cleared.
func Commit(s Strip, f logic.Frame) error {
	for i := 0; i < s.Len(); i++ {
		c := logic.Off
		if i < logic.NumLEDs {
			c = f.Pixels[i]
		}
		s.SetPixel(i, c)
	}
	return s.Show()
}

// Clear turns every LED off.
func Clear(s Strip) error {
	return Commit(s, logic.Frame{})
}

// SelfTest lights status red, mute green and keycap blue for the given
// duration, then clears the strip.
func SelfTest(s Strip, d time.Duration, sleep func(time.Duration)) error {
	var f logic.Frame
	f.Pixels[logic.LEDStatus] = logic.Color{R: 255}
	f.Pixels[logic.LEDMute] = logic.Color{G: 255}
	f.Pixels[logic.LEDKeycap] = logic.Color{B: 255}
	if err := Commit(s, f); err != nil {
		return err
	}
	sleep(d)
	return Clear(s)
}

// Viewer reports the colors a strip last showed.
type Viewer interface {
	Snapshot() []logic.Color
}

// Shown returns the frame last shown on v. The animation kind comes from
// rendered since a strip holds only colors.
func Shown(v Viewer, rendered logic.Frame) logic.Frame {
	f := logic.Frame{Animation: rendered.Animation}
	copy(f.Pixels[:], v.Snapshot())
	return f
}

// Buffer is an in-memory strip. The last shown frame can be read
// concurrently, e.g. by the status page.
type Buffer struct {
	pending []logic.Color

	mu    sync.RWMutex
	shown []logic.Color
}

// NewBuffer creates a Buffer with n LEDs.
func NewBuffer(n int) *Buffer {
	return &Buffer{
		pending: make([]logic.Color, n),
		shown:   make([]logic.Color, n),
	}
}

// Len returns the number of LEDs.
func (b *Buffer) Len() int {
	return len(b.pending)
}

// SetPixel buffers a color. Out-of-range indices are ignored.
func (b *Buffer) SetPixel(i int, c logic.Color) {
	if i < 0 || i >= len(b.pending) {
		return
	}
	b.pending[i] = c
}

// Show publishes the pending colors.
func (b *Buffer) Show() error {
	b.mu.Lock()
	copy(b.shown, b.pending)
	b.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the last shown colors.
func (b *Buffer) Snapshot() []logic.Color {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]logic.Color, len(b.shown))
	copy(out, b.shown)
	return out
}
