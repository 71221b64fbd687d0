// Package link provides the serial line transport to the host.
// The real implementation uses a serial port; the fake allows testing
// without hardware.
package link

import (
	"errors"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// Port is a line-oriented serial link with a host presence signal.
type Port interface {
	// Presence reports whether a host is attached and listening (DTR).
	Presence() bool

	// ReadLine returns the next buffered inbound line without blocking.
	// ok is false when nothing is buffered.
	ReadLine() (line string, ok bool)

	// WriteLine sends one newline-terminated line. Lines written while no
	// host is present are dropped without error.
	WriteLine(text string) error

	// Close releases the port.
	Close() error
}

// DefaultBaud matches the device firmware.
const DefaultBaud = 115200

// Deliver writes each message to the port in order. Delivery is
// fire-and-forget: failed lines are not retried. It returns the number of
// lines handed to the port and the joined write errors.
func Deliver(p Port, msgs []logic.Message) (int, error) {
	var errs []error
	sent := 0
	for _, m := range msgs {
		if err := p.WriteLine(m.Text); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
