package logic

import "time"

// Config holds timing, palette and brightness settings for the state machine.
type Config struct {
	// Minimum hold of the disable button before enabled toggles.
	HoldDuration time.Duration
	// Minimum gap between "Device enabled" keep-alives.
	StatusInterval time.Duration
	// Inbound silence after which an active link drops to standby.
	LinkTimeout time.Duration
	// Warm-up window after start before normal rendering begins.
	BootSettle time.Duration

	SparkInterval time.Duration
	SparkDuration time.Duration
	BreathPeriod  time.Duration

	// Firmware version reported by the VERSION command.
	Version string

	Palette    Palette
	Brightness Brightness
}

// Default timings.
const (
	DefaultHoldDuration   = 100 * time.Millisecond
	DefaultStatusInterval = 1000 * time.Millisecond
	DefaultLinkTimeout    = 5000 * time.Millisecond
	DefaultBootSettle     = 1000 * time.Millisecond
	DefaultSparkInterval  = 2000 * time.Millisecond
	DefaultSparkDuration  = 50 * time.Millisecond
	DefaultBreathPeriod   = 2000 * time.Millisecond
)

// DefaultConfig returns the settings the device ships with.
func DefaultConfig() Config {
	return Config{
		HoldDuration:   DefaultHoldDuration,
		StatusInterval: DefaultStatusInterval,
		LinkTimeout:    DefaultLinkTimeout,
		BootSettle:     DefaultBootSettle,
		SparkInterval:  DefaultSparkInterval,
		SparkDuration:  DefaultSparkDuration,
		BreathPeriod:   DefaultBreathPeriod,
		Version:        "unknown",
		Palette:        DefaultPalette(),
		Brightness:     DefaultBrightness(),
	}
}
