package logic

import (
	"math"
	"time"
)

// Logical LED indices.
const (
	LEDStatus = 0 // enabled/disabled
	LEDMute   = 1 // host mute state
	LEDKeycap = 2 // talk button
	NumLEDs   = 3
)

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// Off is the unlit color.
var Off = Color{}

// Palette holds the raw (unscaled) colors.
type Palette struct {
	Muted          Color
	MicOn          Color
	Standby        Color
	Boot           Color
	StatusEnabled  Color
	StatusDisabled Color
	SparkBright    Color
	SparkDim       Color
	BreathPeak     Color
}

// DefaultPalette returns the colors tuned for SK6805 LEDs.
func DefaultPalette() Palette {
	return Palette{
		Muted:          Color{28, 0, 0},
		MicOn:          Color{0, 28, 0},
		Standby:        Color{0, 0, 25},
		Boot:           Color{0, 25, 0},
		StatusEnabled:  Color{25, 25, 25},
		StatusDisabled: Color{25, 15, 0},
		SparkBright:    Color{0, 80, 0},
		SparkDim:       Color{0, 20, 0},
		BreathPeak:     Color{0, 0, 255},
	}
}

// Brightness scales every color: Global applies to all LEDs, the rest per LED.
type Brightness struct {
	Global uint8
	Status float64
	Mute   float64
	Keycap float64
}

// DefaultBrightness returns the shipped brightness tuning.
func DefaultBrightness() Brightness {
	return Brightness{
		Global: 155,
		Status: 0.6,
		Mute:   1.0,
		Keycap: 1.0,
	}
}

// Scale applies raw*factor*global/255 to each channel, clamped to 0..255.
func Scale(c Color, factor float64, global uint8) Color {
	ch := func(v uint8) uint8 {
		f := float64(v) * factor * float64(global) / 255.0
		if f <= 0 {
			return 0
		}
		if f >= 255 {
			return 255
		}
		return uint8(f)
	}
	return Color{R: ch(c.R), G: ch(c.G), B: ch(c.B)}
}

// Frame is one tick's render intent.
type Frame struct {
	Pixels    [NumLEDs]Color
	Animation AnimationKind
}

// Render maps device state and animation phase to LED colors.
func Render(cfg Config, d DeviceState, mode Mode, phase AnimationPhase, now time.Time) Frame {
	p := cfg.Palette
	b := cfg.Brightness
	var f Frame

	if mode == ModeBooting {
		f.Pixels[LEDStatus] = Scale(p.Boot, b.Status, b.Global)
		f.Pixels[LEDMute] = Scale(p.Standby, b.Mute, b.Global)
		f.Pixels[LEDKeycap] = Scale(p.Standby, b.Keycap, b.Global)
		f.Animation = AnimationNone
		return f
	}

	if d.Enabled {
		f.Pixels[LEDStatus] = Scale(p.StatusEnabled, b.Status, b.Global)
	} else {
		f.Pixels[LEDStatus] = Scale(p.StatusDisabled, b.Status, b.Global)
	}

	switch mode {
	case ModeEnabledStandby:
		f.Pixels[LEDMute] = Scale(breath(p.BreathPeak, now.Sub(phase.Start), cfg.BreathPeriod), b.Mute, b.Global)
	case ModeEnabledLinkedMuted:
		f.Pixels[LEDMute] = Scale(p.Muted, b.Mute, b.Global)
	case ModeEnabledLinkedUnmuted:
		f.Pixels[LEDMute] = Scale(p.MicOn, b.Mute, b.Global)
	case ModeDisabledLinked:
		if phase.On {
			f.Pixels[LEDMute] = Scale(p.SparkBright, b.Mute, b.Global)
		} else {
			f.Pixels[LEDMute] = Scale(p.SparkDim, b.Mute, b.Global)
		}
	default:
		f.Pixels[LEDMute] = Off
	}

	if d.Enabled && d.TalkActive {
		f.Pixels[LEDKeycap] = Scale(p.MicOn, b.Keycap, b.Global)
	}

	f.Animation = phase.Kind
	return f
}

// breath returns peak dimmed along a sine ramp of the given period.
func breath(peak Color, elapsed, period time.Duration) Color {
	if period <= 0 {
		return peak
	}
	phase := 2 * math.Pi * float64(elapsed) / float64(period)
	level := (math.Sin(phase) + 1) / 2
	dim := func(v uint8) uint8 { return uint8(float64(v) * level) }
	return Color{R: dim(peak.R), G: dim(peak.G), B: dim(peak.B)}
}

// advancePhase moves the animation phase to now. A change of kind restarts
// the clock; the spark is lit for SparkDuration at each SparkInterval.
func advancePhase(cfg Config, phase AnimationPhase, kind AnimationKind, now time.Time) AnimationPhase {
	if phase.Kind != kind || phase.Start.IsZero() {
		phase = AnimationPhase{Kind: kind, Start: now}
	}
	phase.On = false
	if kind == AnimationSpark && cfg.SparkInterval > 0 {
		elapsed := now.Sub(phase.Start)
		phase.On = elapsed >= cfg.SparkInterval && elapsed%cfg.SparkInterval < cfg.SparkDuration
	}
	return phase
}
