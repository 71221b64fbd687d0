package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const tick = 10 * time.Millisecond

// harness drives Reduce at a fixed 10ms cadence. Button and presence levels in
// `in` are sticky between ticks; lines are passed per tick.
type harness struct {
	t   *testing.T
	cfg Config
	s   State
	now time.Time
	in  Input
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Version = "v1.2.3"
	return &harness{t: t, cfg: cfg, s: NewState(t0), now: t0}
}

func (h *harness) step(line string) Output {
	h.now = h.now.Add(tick)
	in := h.in
	in.Line = line
	in.Time = h.now
	var out Output
	h.s, out = Reduce(h.cfg, h.s, in)
	return out
}

// run steps with no inbound lines for the given duration.
func (h *harness) run(d time.Duration) []Output {
	var outs []Output
	for i := 0; i < int(d/tick); i++ {
		outs = append(outs, h.step(""))
	}
	return outs
}

// settle runs past the boot warm-up.
func (h *harness) settle() {
	h.t.Helper()
	h.run(h.cfg.BootSettle)
	if h.s.Booting {
		h.t.Fatal("still booting after settle window")
	}
}

// link raises presence and completes the handshake with the given command.
func (h *harness) link(cmd string) {
	h.t.Helper()
	h.in.Presence = true
	h.step("")
	h.step(cmd)
	if !h.s.Device.HostReady && cmd != "VERSION" {
		h.t.Fatalf("handshake with %q did not make host ready", cmd)
	}
}

// hold presses the disable button for d, then releases it.
func (h *harness) hold(d time.Duration) []Output {
	h.in.Disable = true
	outs := h.run(d)
	h.in.Disable = false
	outs = append(outs, h.step(""))
	return outs
}

func texts(outs ...Output) []string {
	var out []string
	for _, o := range outs {
		for _, m := range o.Messages {
			out = append(out, m.Text)
		}
	}
	return out
}

func count(msgs []string, want string) int {
	n := 0
	for _, m := range msgs {
		if m == want {
			n++
		}
	}
	return n
}

func eventTypes(outs ...Output) []EventType {
	var out []EventType
	for _, o := range outs {
		for _, e := range o.Events {
			out = append(out, e.Type)
		}
	}
	return out
}
