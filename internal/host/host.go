// Package host keeps the host's microphone mute in step with the device.
package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// Device identification on the USB bus.
const (
	VendorName  = "Storvik IT"
	ProductName = "PicoTalkButton"
)

// Mixer controls the system's capture sources.
type Mixer interface {
	// SetMuted mutes or unmutes every capture source.
	SetMuted(ctx context.Context, muted bool) error
	// Muted reports whether every capture source is muted.
	Muted(ctx context.Context) (bool, error)
}

// Action is what a line from the device asked the host to do.
type Action string

const (
	ActionNone    Action = ""
	ActionMute    Action = "MUTE"
	ActionUnmute  Action = "UNMUTE"
	ActionStarted Action = "STARTED" // first "Device enabled" seen
	ActionUnknown Action = "UNKNOWN"
)

// Session tracks one connection to the device.
type Session struct {
	mixer       Mixer
	initialized bool
	lastMuted   *bool
}

// NewSession creates a session that drives mixer.
func NewSession(mixer Mixer) *Session {
	return &Session{mixer: mixer}
}

// Attach mutes the microphone until the talk button is pressed and returns
// the command that reports the mixer state to the device.
func (s *Session) Attach(ctx context.Context) (string, error) {
	if err := s.mixer.SetMuted(ctx, true); err != nil {
		return "", fmt.Errorf("mute on attach: %w", err)
	}
	return s.Poll(ctx)
}

// Detach unmutes the microphone so a missing device never leaves it muted.
func (s *Session) Detach(ctx context.Context) error {
	s.initialized = false
	s.lastMuted = nil
	if err := s.mixer.SetMuted(ctx, false); err != nil {
		return fmt.Errorf("unmute on detach: %w", err)
	}
	return nil
}

// Poll reads the mixer state and returns the MUTE/UNMUTE command for the
// device. The device treats it as a keep-alive.
func (s *Session) Poll(ctx context.Context) (string, error) {
	muted, err := s.mixer.Muted(ctx)
	if err != nil {
		return "", fmt.Errorf("read mixer: %w", err)
	}
	if s.lastMuted == nil || *s.lastMuted != muted {
		log.Info().Bool("muted", muted).Msg("system mute changed")
	}
	s.remember(muted)
	return command(muted), nil
}

// HandleLine reacts to one line from the device. reply is the command to
// send back, empty if none.
func (s *Session) HandleLine(ctx context.Context, line string) (Action, string, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return ActionNone, "", nil
	case strings.Contains(line, logic.MsgPTTPressed):
		return s.apply(ctx, ActionUnmute, false)
	case strings.Contains(line, logic.MsgPTTReleased):
		return s.apply(ctx, ActionMute, true)
	case strings.Contains(line, logic.MsgDisabled):
		s.initialized = false
		return s.apply(ctx, ActionUnmute, false)
	case strings.Contains(line, logic.MsgEnabled):
		if s.initialized {
			return ActionNone, "", nil
		}
		s.initialized = true
		_, reply, err := s.apply(ctx, ActionMute, true)
		return ActionStarted, reply, err
	case line == logic.MsgAck, line == logic.MsgBooted, line == logic.MsgStandby,
		strings.HasPrefix(line, "VERSION:"):
		return ActionNone, "", nil
	default:
		log.Debug().Str("line", line).Msg("unknown message")
		return ActionUnknown, "", nil
	}
}

// Initialized reports whether the device has announced itself as enabled.
func (s *Session) Initialized() bool {
	return s.initialized
}

func (s *Session) apply(ctx context.Context, a Action, muted bool) (Action, string, error) {
	log.Info().Str("action", string(a)).Msg("device request")
	if err := s.mixer.SetMuted(ctx, muted); err != nil {
		return a, "", fmt.Errorf("set mute %v: %w", muted, err)
	}
	s.remember(muted)
	return a, command(muted), nil
}

func (s *Session) remember(muted bool) {
	s.lastMuted = &muted
}

func command(muted bool) string {
	if muted {
		return "MUTE"
	}
	return "UNMUTE"
}
