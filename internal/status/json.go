package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Mode          string     `json:"mode"`
	Device        DeviceJSON `json:"device"`
	LEDs          []string   `json:"leds"`
	Animation     string     `json:"animation"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Link          LinkJSON   `json:"link"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// DeviceJSON is the JSON representation of the device state.
type DeviceJSON struct {
	Enabled    bool `json:"enabled"`
	Muted      bool `json:"muted"`
	Talk       bool `json:"talk"`
	LinkActive bool `json:"link_active"`
	HostReady  bool `json:"host_ready"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// LinkJSON is the JSON representation of the host link.
type LinkJSON struct {
	Port     string `json:"port"`
	Presence string `json:"presence"`
	Present  bool   `json:"present"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	PTTPressed  int `json:"ptt_pressed"`
	PTTReleased int `json:"ptt_released"`
	Toggles     int `json:"toggles"`
	LinkUps     int `json:"link_ups"`
	Timeouts    int `json:"timeouts"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs        int64  `json:"tick_ms"`
	HoldMs        int64  `json:"hold_ms"`
	LinkTimeoutMs int64  `json:"link_timeout_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
	Version       string `json:"version"`
}

// HexColor formats a pixel as #rrggbb.
func HexColor(c logic.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}
	anim := string(snap.Frame.Animation)
	if anim == "" {
		anim = string(logic.AnimationNone)
	}

	leds := make([]string, len(snap.Frame.Pixels))
	for i, c := range snap.Frame.Pixels {
		leds[i] = HexColor(c)
	}

	d := snap.Device
	return StatusInner{
		Mode: mode,
		Device: DeviceJSON{
			Enabled:    d.Enabled,
			Muted:      d.Muted,
			Talk:       d.TalkActive,
			LinkActive: d.LinkActive,
			HostReady:  d.HostReady,
		},
		LEDs:          leds,
		Animation:     anim,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Link: LinkJSON{
			Port:     snap.Link.Port,
			Presence: snap.Link.Presence,
			Present:  snap.Link.Present,
		},
		Counts: CountsJSON{
			PTTPressed:  snap.Counts.PTTPressed,
			PTTReleased: snap.Counts.PTTReleased,
			Toggles:     snap.Counts.Toggles,
			LinkUps:     snap.Counts.LinkUps,
			Timeouts:    snap.Counts.Timeouts,
		},
		Config: ConfigJSON{
			TickMs:        snap.Config.TickMs,
			HoldMs:        snap.Config.HoldMs,
			LinkTimeoutMs: snap.Config.LinkTimeoutMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			Version:       snap.Config.Version,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
