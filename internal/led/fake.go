package led

import "github.com/sweeney/ptt-indicator/internal/logic"

// FakeStrip records every shown frame for test assertions.
type FakeStrip struct {
	// Count is the strip length.
	Count int

	// Shown holds a copy of the pixels at each Show call.
	Shown [][]logic.Color

	// Writes counts SetPixel calls.
	Writes int

	// ShowError, if set, will be returned by Show.
	ShowError error

	pixels []logic.Color
}

// NewFakeStrip creates a FakeStrip with n LEDs.
func NewFakeStrip(n int) *FakeStrip {
	return &FakeStrip{Count: n, pixels: make([]logic.Color, n)}
}

// Len returns Count.
func (f *FakeStrip) Len() int {
	return f.Count
}

// SetPixel buffers a color.
func (f *FakeStrip) SetPixel(i int, c logic.Color) {
	f.Writes++
	if i >= 0 && i < len(f.pixels) {
		f.pixels[i] = c
	}
}

// Show records the buffered pixels.
func (f *FakeStrip) Show() error {
	if f.ShowError != nil {
		return f.ShowError
	}
	frame := make([]logic.Color, len(f.pixels))
	copy(frame, f.pixels)
	f.Shown = append(f.Shown, frame)
	return nil
}

// Last returns the most recently shown frame, or nil.
func (f *FakeStrip) Last() []logic.Color {
	if len(f.Shown) == 0 {
		return nil
	}
	return f.Shown[len(f.Shown)-1]
}
