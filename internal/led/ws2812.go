//go:build tinygo

package led

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// WS2812 drives a chain of WS2812/SK6805 LEDs from a single data pin.
type WS2812 struct {
	dev ws2812.Device
	buf []color.RGBA
}

// NewWS2812 configures pin as output and returns a strip of n LEDs.
func NewWS2812(pin machine.Pin, n int) *WS2812 {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &WS2812{
		dev: ws2812.New(pin),
		buf: make([]color.RGBA, n),
	}
}

// Len returns the number of LEDs.
func (w *WS2812) Len() int {
	return len(w.buf)
}

// SetPixel buffers a color.
func (w *WS2812) SetPixel(i int, c logic.Color) {
	if i < 0 || i >= len(w.buf) {
		return
	}
	w.buf[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Show sends the whole buffer in GRB order.
func (w *WS2812) Show() error {
	return w.dev.WriteColors(w.buf)
}
