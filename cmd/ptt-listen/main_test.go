package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/sweeney/ptt-indicator/internal/host"
	"github.com/sweeney/ptt-indicator/internal/link"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// drive runs runSession for nTicks and then cancels it.
func drive(t *testing.T, port *link.FakePort, mixer *host.FakeMixer, step time.Duration, nTicks int) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runSession(ctx, port, host.NewSession(mixer), fakeClock(t0, step), tick)
	}()

	for i := 0; i < nTicks; i++ {
		select {
		case tick <- time.Time{}:
		case err := <-errCh:
			cancel()
			return err
		}
	}
	cancel()
	return <-errCh
}

func TestRunSessionHandshake(t *testing.T) {
	port := link.NewFakePort()
	port.Present = true
	port.Push("Device booted", "Device enabled")
	mixer := &host.FakeMixer{}

	require.NoError(t, drive(t, port, mixer, 10*time.Millisecond, 3))

	require.GreaterOrEqual(t, len(port.Written), 2)
	assert.Equal(t, "MUTE", port.Written[0]) // initial state after attach
	assert.Equal(t, "MUTE", port.Written[1]) // first "Device enabled"
	assert.True(t, mixer.State)
}

func TestRunSessionFollowsTalkButton(t *testing.T) {
	port := link.NewFakePort()
	port.Present = true
	mixer := &host.FakeMixer{}

	port.Push("Device enabled", "PTT pressed", "PTT released")

	require.NoError(t, drive(t, port, mixer, 10*time.Millisecond, 4))

	assert.Equal(t, []bool{true, true, false, true}, mixer.Calls)
	assert.Equal(t, []string{"MUTE", "MUTE", "UNMUTE", "MUTE"}, port.Written)
}

func TestRunSessionPollsMixerEverySecond(t *testing.T) {
	port := link.NewFakePort()
	port.Present = true
	port.Push("Device enabled")
	mixer := &host.FakeMixer{}

	// one clock read at attach, then one per tick at 500ms steps
	require.NoError(t, drive(t, port, mixer, 500*time.Millisecond, 4))

	polls := 0
	for _, w := range port.Written[2:] {
		if w == "MUTE" {
			polls++
		}
	}
	assert.Equal(t, 2, polls)
}

func TestRunSessionStartupTimeout(t *testing.T) {
	port := link.NewFakePort()
	port.Present = true

	err := drive(t, port, &host.FakeMixer{}, time.Second, 10)
	assert.ErrorIs(t, err, errNoStartup)
}

func TestRunSessionWriteError(t *testing.T) {
	port := link.NewFakePort()
	port.WriteError = errors.New("device gone")

	err := drive(t, port, &host.FakeMixer{}, 10*time.Millisecond, 1)
	assert.ErrorContains(t, err, "device gone")
}

func TestFindDevice(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, Product: "Other"},
		{Name: "/dev/ttyACM1", IsUSB: true, Product: host.ProductName},
	}
	assert.Equal(t, "/dev/ttyACM1", findDevice(ports))
	assert.Empty(t, findDevice(ports[:2]))
}
