package logic

import (
	"fmt"
	"time"
)

// State is everything the state machine carries between ticks.
type State struct {
	Device     DeviceState
	Disable    Button
	Link       LinkSession
	Phase      AnimationPhase
	Booting    bool
	BootTime   time.Time
	LastStatus time.Time
}

// NewState returns the boot state at the given time.
func NewState(start time.Time) State {
	return State{
		Device:   BootDeviceState(),
		Booting:  true,
		BootTime: start,
	}
}

// Mode returns the derived mode of the state.
func (s State) Mode() Mode {
	return DeriveMode(s.Device, s.Booting)
}

// Reduce advances the state by one tick. It never blocks and has no side
// effects: outbound messages, events and the frame are returned in Output.
// The steps run in a fixed order; later steps see earlier mutations.
func Reduce(cfg Config, s State, in Input) (State, Output) {
	r := reducer{cfg: cfg, s: s, now: in.Time}

	r.keepAlive()
	r.talk(in.Talk)
	r.command(in.Line, in.Presence)
	r.disable(in.Disable)
	r.presence(in.Presence)
	r.settle()
	r.liveness()
	r.s.Phase = advancePhase(cfg, r.s.Phase, animationFor(r.s.Mode()), r.now)

	r.out.Frame = Render(cfg, r.s.Device, r.s.Mode(), r.s.Phase, r.now)
	return r.s, r.out
}

type reducer struct {
	cfg Config
	s   State
	now time.Time
	out Output
}

// send queues a status message. Status messages are dropped while the link is down.
func (r *reducer) send(text string) {
	if !r.s.Device.LinkActive {
		return
	}
	r.out.Messages = append(r.out.Messages, Message{Text: text})
}

func (r *reducer) reply(text string) {
	r.out.Messages = append(r.out.Messages, Message{Text: text, Reply: true})
}

func (r *reducer) emit(types ...EventType) {
	for _, t := range types {
		r.out.Events = append(r.out.Events, Event{
			Timestamp: r.now,
			Type:      t,
			Mode:      r.s.Mode(),
			State:     r.s.Device,
		})
	}
}

func (r *reducer) keepAlive() {
	d := r.s.Device
	if !d.Enabled || !d.LinkActive {
		return
	}
	if r.now.Sub(r.s.LastStatus) < r.cfg.StatusInterval {
		return
	}
	r.send(MsgEnabled)
	r.s.LastStatus = r.now
}

func (r *reducer) talk(pressed bool) {
	d := &r.s.Device
	if pressed == d.TalkActive {
		return
	}
	d.TalkActive = pressed

	if pressed {
		r.emit(EventPTTPressed)
	} else {
		r.emit(EventPTTReleased)
	}

	if d.Enabled && d.LinkActive {
		if pressed {
			r.send(MsgPTTPressed)
		} else {
			r.send(MsgPTTReleased)
		}
	}
}

func (r *reducer) command(line string, presence bool) {
	cmd, ok := ParseCommand(line)
	if !ok || !presence {
		return
	}
	d := &r.s.Device

	if !d.LinkActive {
		d.LinkActive = true
		d.HostReady = false
		r.emit(EventLinkUp)
	}
	r.s.Link.LastMessage = r.now

	switch cmd {
	case CmdMute:
		r.setMuted(true)
	case CmdUnmute:
		r.setMuted(false)
	case CmdAck:
		if !d.HostReady {
			d.HostReady = true
			r.emit(EventHostReady)
		}
		r.reply(MsgAck)
	case CmdVersion:
		r.send(fmt.Sprintf(MsgVersionFmt, r.cfg.Version))
	}
}

func (r *reducer) setMuted(muted bool) {
	d := &r.s.Device
	wasReady, wasMuted := d.HostReady, d.Muted
	d.HostReady = true
	d.Muted = muted

	if !wasReady {
		r.emit(EventHostReady)
	}
	if wasMuted != muted {
		if muted {
			r.emit(EventMuted)
		} else {
			r.emit(EventUnmuted)
		}
	}
}

// disable runs hold-to-toggle for the disable button. The hold only counts
// while the link is active and the device has settled; once fired the latch
// holds until release.
func (r *reducer) disable(pressed bool) {
	b := &r.s.Disable
	if !pressed {
		*b = Button{}
		return
	}
	b.Pressed = true

	if r.s.Booting || !r.s.Device.LinkActive {
		if !b.Latched {
			b.PressStart = time.Time{}
		}
		return
	}
	if b.Latched {
		return
	}
	if b.PressStart.IsZero() {
		b.PressStart = r.now
		return
	}
	if r.now.Sub(b.PressStart) < r.cfg.HoldDuration {
		return
	}

	r.toggle()
	b.Latched = true
}

func (r *reducer) toggle() {
	d := &r.s.Device
	d.Enabled = !d.Enabled
	if d.Enabled {
		r.send(MsgEnabled)
		r.emit(EventEnabled)
	} else {
		r.send(MsgDisabled)
		r.emit(EventDisabled)
	}
}

// presence handles edges of the host presence signal. Both edges force a new
// handshake; losing the host re-enables a disabled device.
func (r *reducer) presence(p bool) {
	if p == r.s.Link.Presence {
		return
	}
	r.s.Link.Presence = p
	d := &r.s.Device

	if p {
		d.LinkActive = true
		d.HostReady = false
		r.s.Link.LastMessage = r.now
		r.emit(EventLinkUp)
		return
	}

	wasActive, wasEnabled := d.LinkActive, d.Enabled
	d.LinkActive = false
	d.HostReady = false
	d.Enabled = true
	if wasActive {
		r.emit(EventLinkDown)
	}
	if !wasEnabled {
		r.emit(EventEnabled)
	}
}

func (r *reducer) settle() {
	if r.s.Booting && r.now.Sub(r.s.BootTime) >= r.cfg.BootSettle {
		r.s.Booting = false
		r.emit(EventSettled)
	}
}

// liveness drops an active link that has been silent for LinkTimeout.
// The standby notice goes out before the link is marked down. A disabled
// device is re-enabled since the disable button is unarmed without a link.
func (r *reducer) liveness() {
	d := &r.s.Device
	if !d.LinkActive || r.now.Sub(r.s.Link.LastMessage) < r.cfg.LinkTimeout {
		return
	}
	r.send(MsgStandby)
	wasEnabled := d.Enabled
	d.LinkActive = false
	d.HostReady = false
	d.Enabled = true
	r.emit(EventLinkTimeout)
	if !wasEnabled {
		r.emit(EventEnabled)
	}
}

// Machine owns a State and advances it tick by tick.
type Machine struct {
	cfg           Config
	state         State
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewMachine creates a machine in the boot state.
// The startTime is used for the boot settle window and heartbeat uptime.
func NewMachine(cfg Config, startTime time.Time) *Machine {
	return &Machine{
		cfg:           cfg,
		state:         NewState(startTime),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Boot returns the announcement sent when a host is already listening at start.
func (m *Machine) Boot(presence bool) []Message {
	if !presence {
		return nil
	}
	return []Message{
		{Text: MsgBooted},
		{Text: fmt.Sprintf(MsgVersionFmt, m.cfg.Version)},
		{Text: MsgEnabled},
	}
}

// Process runs one tick.
func (m *Machine) Process(in Input) Output {
	var out Output
	m.state, out = Reduce(m.cfg, m.state, in)

	for _, e := range out.Events {
		switch e.Type {
		case EventPTTPressed:
			m.eventCounts.PTTPressed++
		case EventPTTReleased:
			m.eventCounts.PTTReleased++
		case EventEnabled, EventDisabled:
			m.eventCounts.Toggles++
		case EventLinkUp:
			m.eventCounts.LinkUps++
		case EventLinkTimeout:
			m.eventCounts.Timeouts++
		}
	}
	return out
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state
}

// Mode returns the current derived mode.
func (m *Machine) Mode() Mode {
	return m.state.Mode()
}

// Config returns the machine's configuration.
func (m *Machine) Config() Config {
	return m.cfg
}

// EventCountsSnapshot returns the event counts since start.
func (m *Machine) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if still booting, if the interval
// has not elapsed, or if interval is <= 0 (disabled).
func (m *Machine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 || m.state.Booting {
		return nil
	}
	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.eventCounts,
	}
}
