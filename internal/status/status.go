// Package status provides a thread-safe status tracker for the ptt-indicator daemon.
// It is read by HTTP handlers and by the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// LinkInfo describes the host link. This is a local copy to avoid
// importing internal/link from status.
type LinkInfo struct {
	Port     string
	Presence string // presence source, e.g. "dsr"
	Present  bool   // last sampled presence signal
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs        int64
	HoldMs        int64
	LinkTimeoutMs int64
	HeartbeatMs   int64
	Broker        string
	HTTPPort      string
	Version       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Device        logic.DeviceState
	Mode          logic.Mode
	Frame         logic.Frame
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Link          LinkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      logic.ModeBooting,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the device state, mode, rendered frame and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(d logic.DeviceState, mode logic.Mode, frame logic.Frame, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Device = d
	t.snap.Mode = mode
	t.snap.Frame = frame
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetLink sets the host link info.
func (t *Tracker) SetLink(info LinkInfo) {
	t.mu.Lock()
	t.snap.Link = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
