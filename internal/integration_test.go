package internal

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/ptt-indicator/internal/gpio"
	"github.com/sweeney/ptt-indicator/internal/led"
	"github.com/sweeney/ptt-indicator/internal/link"
	"github.com/sweeney/ptt-indicator/internal/logic"
	"github.com/sweeney/ptt-indicator/internal/mqtt"
	"github.com/sweeney/ptt-indicator/internal/status"
	"github.com/sweeney/ptt-indicator/internal/web"
)

const tick = 10 * time.Millisecond

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// sim runs the control loop by hand against fakes, one tick per step.
type sim struct {
	t       *testing.T
	cfg     logic.Config
	machine *logic.Machine
	port    *link.FakePort
	strip   *led.Buffer
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	n       int
}

func newSim(t *testing.T) *sim {
	cfg := logic.DefaultConfig()
	cfg.Version = "1.2.0"
	return &sim{
		t:       t,
		cfg:     cfg,
		machine: logic.NewMachine(cfg, startTime),
		port:    link.NewFakePort(),
		strip:   led.NewBuffer(led.DefaultCount),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(startTime, status.Config{Version: cfg.Version}),
	}
}

func (s *sim) now() time.Time {
	return startTime.Add(time.Duration(s.n) * tick)
}

// step runs count ticks with the given buttons held.
func (s *sim) step(sample gpio.Sample, count int) {
	s.t.Helper()
	reader := gpio.NewFakeReader([]gpio.Sample{sample})
	for i := 0; i < count; i++ {
		talk, disable, err := reader.Read()
		require.NoError(s.t, err)

		line, _ := s.port.ReadLine()
		out := s.machine.Process(logic.Input{
			Talk:     talk,
			Disable:  disable,
			Presence: s.port.Presence(),
			Line:     line,
			Time:     s.now(),
		})
		require.NoError(s.t, led.Commit(s.strip, out.Frame))
		_, err = link.Deliver(s.port, out.Messages)
		require.NoError(s.t, err)
		for _, e := range out.Events {
			require.NoError(s.t, s.pub.Publish(e))
		}
		st := s.machine.State()
		s.tracker.Update(st.Device, st.Mode(), out.Frame, s.machine.EventCountsSnapshot())
		s.n++
	}
}

func (s *sim) idle(count int) { s.step(gpio.Sample{}, count) }

func (s *sim) eventTypes() []logic.EventType {
	var out []logic.EventType
	for _, e := range s.pub.Events {
		out = append(out, e.Type)
	}
	return out
}

// statusLines drops keep-alives from the written lines.
func (s *sim) statusLines() []string {
	var out []string
	for _, l := range s.port.Written {
		if l != logic.MsgEnabled {
			out = append(out, l)
		}
	}
	return out
}

func (s *sim) led(i int) logic.Color {
	return s.strip.Snapshot()[i]
}

func TestIntegrationFullFlow(t *testing.T) {
	s := newSim(t)
	p, b := s.cfg.Palette, s.cfg.Brightness

	s.idle(101)
	assert.Equal(t, logic.ModeEnabledStandby, s.machine.Mode())
	assert.Equal(t, logic.Scale(p.StatusEnabled, b.Status, b.Global), s.led(logic.LEDStatus))

	// host opens the port and reports an unmuted microphone
	s.port.Present = true
	s.idle(1)
	s.port.Push("UNMUTE")
	s.idle(1)
	assert.Equal(t, logic.ModeEnabledLinkedUnmuted, s.machine.Mode())
	assert.Equal(t, logic.Scale(p.MicOn, b.Mute, b.Global), s.led(logic.LEDMute))

	s.step(gpio.Sample{Talk: true}, 3)
	assert.Equal(t, logic.Scale(p.MicOn, b.Keycap, b.Global), s.led(logic.LEDKeycap))
	s.idle(1)
	assert.Equal(t, logic.Off, s.led(logic.LEDKeycap))

	s.step(gpio.Sample{Disable: true}, 15)
	s.idle(1)
	assert.Equal(t, logic.ModeDisabledLinked, s.machine.Mode())
	assert.Equal(t, logic.Scale(p.StatusDisabled, b.Status, b.Global), s.led(logic.LEDStatus))

	s.port.Present = false
	s.idle(1)
	assert.Equal(t, logic.ModeEnabledStandby, s.machine.Mode())

	assert.Equal(t, []logic.EventType{
		logic.EventSettled,
		logic.EventLinkUp,
		logic.EventHostReady,
		logic.EventUnmuted,
		logic.EventPTTPressed,
		logic.EventPTTReleased,
		logic.EventDisabled,
		logic.EventLinkDown,
		logic.EventEnabled,
	}, s.eventTypes())
	assert.Equal(t, []string{logic.MsgPTTPressed, logic.MsgPTTReleased, logic.MsgDisabled}, s.statusLines())
	assert.Empty(t, s.port.Dropped)

	for _, e := range s.pub.Events {
		assert.Contains(t, logic.Modes, e.Mode)
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	s := newSim(t)
	s.idle(101)
	s.port.Present = true
	s.idle(1)
	s.port.Push("MUTE")
	s.idle(1)
	s.step(gpio.Sample{Disable: true}, 15)

	last := s.pub.Payloads[len(s.pub.Payloads)-1]
	var payload mqtt.Payload
	require.NoError(t, json.Unmarshal(last, &payload))
	assert.Equal(t, "DISABLED", payload.PTT.Event)
	assert.Equal(t, "DISABLED_LINKED", payload.PTT.Mode)
	assert.False(t, payload.PTT.State.Enabled)
	assert.True(t, payload.PTT.State.LinkActive)
	assert.True(t, payload.PTT.State.HostReady)
}

func TestIntegrationLinkTimeout(t *testing.T) {
	s := newSim(t)
	s.idle(101)
	s.port.Present = true
	s.idle(1)
	s.port.Push("MUTE")
	s.idle(1)
	require.Equal(t, logic.ModeEnabledLinkedMuted, s.machine.Mode())

	// host stays attached but silent for the full timeout
	s.idle(int(logic.DefaultLinkTimeout / tick))

	assert.Equal(t, logic.ModeEnabledStandby, s.machine.Mode())
	assert.Equal(t, logic.MsgStandby, s.port.Written[len(s.port.Written)-1])
	assert.Contains(t, s.eventTypes(), logic.EventLinkTimeout)
	assert.Equal(t, 1, s.machine.EventCountsSnapshot().Timeouts)

	// a fresh command re-establishes the link without a presence edge
	s.port.Push("ACK")
	s.idle(1)
	assert.Equal(t, logic.ModeEnabledLinkedMuted, s.machine.Mode())
	assert.Equal(t, logic.MsgAck, s.port.Written[len(s.port.Written)-1])
}

func TestIntegrationSilentWithoutHost(t *testing.T) {
	s := newSim(t)
	s.idle(101)
	s.step(gpio.Sample{Talk: true}, 5)
	s.step(gpio.Sample{Disable: true}, 50)
	s.idle(1)

	assert.Empty(t, s.port.Written)
	assert.Empty(t, s.port.Dropped)
	assert.True(t, s.machine.State().Device.Enabled, "disable hold is ignored without a link")
	assert.Equal(t, []logic.EventType{logic.EventSettled, logic.EventPTTPressed, logic.EventPTTReleased}, s.eventTypes())
}

func TestIntegrationStatusPage(t *testing.T) {
	s := newSim(t)
	s.idle(101)
	s.port.Present = true
	s.idle(1)
	s.port.Push("MUTE")
	s.idle(1)

	srv := web.New("", s.tracker)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + ln.Addr().String() + "/index.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(body, &sj))
	assert.Equal(t, "ENABLED_LINKED_MUTED", sj.Status.Mode)
	assert.Equal(t, status.HexColor(s.led(logic.LEDMute)), sj.Status.LEDs[logic.LEDMute])
	assert.Equal(t, 1, sj.Status.Counts.LinkUps)
	assert.Equal(t, "1.2.0", sj.Status.Config.Version)
}
