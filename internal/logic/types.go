// Package logic contains the pure control logic for the PTT indicator device.
// This package has NO external dependencies (no GPIO, serial, LED, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// DeviceState is the visible state of the device.
type DeviceState struct {
	Enabled    bool
	Muted      bool
	TalkActive bool
	LinkActive bool
	HostReady  bool // only meaningful while LinkActive
}

// BootDeviceState returns the state the device starts in.
// Muted defaults to true until the host says otherwise.
func BootDeviceState() DeviceState {
	return DeviceState{
		Enabled: true,
		Muted:   true,
	}
}

// Button tracks hold timing for a button with hold-to-toggle semantics.
type Button struct {
	Pressed bool
	// Time the current hold started counting; zero when not counting.
	PressStart time.Time
	// Set once the hold action fired; cleared on release.
	Latched bool
}

// LinkSession tracks liveness of the host link. Whether the link is active
// and ready lives in DeviceState.
type LinkSession struct {
	LastMessage time.Time
	// Last sampled presence signal, for edge detection.
	Presence bool
}

// AnimationKind selects the animation drawn on the mute LED.
type AnimationKind string

const (
	AnimationNone      AnimationKind = "NONE"
	AnimationBreathing AnimationKind = "BREATHING"
	AnimationSpark     AnimationKind = "SPARK"
)

// AnimationPhase is derived from elapsed time since Start, never from frame counts.
type AnimationPhase struct {
	Kind  AnimationKind
	Start time.Time
	On    bool // spark flash currently lit
}

// Input is a single tick's sample of the boundary signals.
type Input struct {
	Talk     bool   // talk button pressed (already normalised from active-low)
	Disable  bool   // disable button pressed
	Presence bool   // host presence signal (DTR)
	Line     string // one inbound line, empty if none
	Time     time.Time
}

// EventType identifies a local state transition.
type EventType string

const (
	EventSettled     EventType = "SETTLED"
	EventPTTPressed  EventType = "PTT_PRESSED"
	EventPTTReleased EventType = "PTT_RELEASED"
	EventEnabled     EventType = "ENABLED"
	EventDisabled    EventType = "DISABLED"
	EventLinkUp      EventType = "LINK_UP"
	EventLinkDown    EventType = "LINK_DOWN"
	EventLinkTimeout EventType = "LINK_TIMEOUT"
	EventHostReady   EventType = "HOST_READY"
	EventMuted       EventType = "MUTED"
	EventUnmuted     EventType = "UNMUTED"
)

// Event is a state transition, reported regardless of link state.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Mode      Mode
	State     DeviceState
}

// Message is an outbound line of text for the host.
type Message struct {
	Text string
	// Reply messages answer a host command directly and skip the link gate.
	Reply bool
}

// Outbound message texts.
const (
	MsgBooted      = "Device booted"
	MsgEnabled     = "Device enabled"
	MsgDisabled    = "Device disabled"
	MsgPTTPressed  = "PTT pressed"
	MsgPTTReleased = "PTT released"
	MsgAck         = "ACK"
	MsgStandby     = "Host inactive -> standby mode"
	MsgVersionFmt  = "VERSION: %s"
)

// EventCounts tracks the number of notable events since startup.
type EventCounts struct {
	PTTPressed  int
	PTTReleased int
	Toggles     int
	LinkUps     int
	Timeouts    int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Output is everything one tick produces.
type Output struct {
	Frame    Frame
	Messages []Message
	Events   []Event
}
