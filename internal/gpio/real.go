//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads buttons from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip       *gpiocdev.Chip
	talkPin    *gpiocdev.Line
	disablePin *gpiocdev.Line
}

// NewRealReader creates a button reader on gpiochip0.
func NewRealReader(pinTalk, pinDisable int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Buttons short to ground, so pull up and let the kernel invert:
	// Value() reports 1 while the button is held.
	talkLine, err := chip.RequestLine(pinTalk, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request talk pin %d: %w", pinTalk, err)
	}

	disableLine, err := chip.RequestLine(pinDisable, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		talkLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request disable pin %d: %w", pinDisable, err)
	}

	return &RealReader{
		chip:       chip,
		talkPin:    talkLine,
		disablePin: disableLine,
	}, nil
}

// Read returns the logical states of the talk and disable buttons.
func (r *RealReader) Read() (bool, bool, error) {
	talk, err := r.talkPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read talk pin: %w", err)
	}

	disable, err := r.disablePin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read disable pin: %w", err)
	}

	return talk == 1, disable == 1, nil
}

// Close releases GPIO resources.
// Pins are left as plain inputs with pull-up so an idle button reads released.
func (r *RealReader) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"talk", r.talkPin},
		{"disable", r.disablePin},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
