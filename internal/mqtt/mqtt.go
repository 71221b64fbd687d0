// Package mqtt mirrors device events to an MQTT broker, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// Topic is the MQTT topic for device state-machine events.
const Topic = "ptt/indicator/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "ptt/indicator/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a device event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	PTT EventPayload `json:"ptt"`
}

// EventPayload contains the device event details.
type EventPayload struct {
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	Mode      string       `json:"mode"`
	State     StatePayload `json:"state"`
}

// StatePayload is the device state after the event.
type StatePayload struct {
	Enabled    bool `json:"enabled"`
	Muted      bool `json:"muted"`
	Talk       bool `json:"talk"`
	LinkActive bool `json:"link_active"`
	HostReady  bool `json:"host_ready"`
}

// FormatPayload creates the JSON payload for a device event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		PTT: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			Mode:      string(event.Mode),
			State: StatePayload{
				Enabled:    event.State.Enabled,
				Muted:      event.State.Muted,
				Talk:       event.State.TalkActive,
				LinkActive: event.State.LinkActive,
				HostReady:  event.State.HostReady,
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
