// Package gpio provides button input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the button inputs.
type Reader interface {
	// Read returns the logical states of the talk and disable buttons.
	// The buttons are wired active-low: raw low = logical pressed.
	// Returns (talkPressed, disablePressed, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinTalk    = 17 // momentary push-to-talk button
	DefaultPinDisable = 27 // hold-to-toggle disable button
)
