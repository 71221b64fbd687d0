package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestAttachMutesAndReports(t *testing.T) {
	m := &FakeMixer{}
	s := NewSession(m)

	cmd, err := s.Attach(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MUTE", cmd)
	assert.Equal(t, []bool{true}, m.Calls)
}

func TestDetachUnmutes(t *testing.T) {
	m := &FakeMixer{State: true}
	s := NewSession(m)
	_, _, _ = s.HandleLine(ctx, "Device enabled")

	require.NoError(t, s.Detach(ctx))
	assert.False(t, m.State)
	assert.False(t, s.Initialized())
}

func TestHandleLine(t *testing.T) {
	tests := []struct {
		line   string
		action Action
		reply  string
		muted  bool
	}{
		{"PTT pressed", ActionUnmute, "UNMUTE", false},
		{"PTT released\r", ActionMute, "MUTE", true},
		{"Device disabled", ActionUnmute, "UNMUTE", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m := &FakeMixer{State: !tt.muted}
			a, reply, err := NewSession(m).HandleLine(ctx, tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.action, a)
			assert.Equal(t, tt.reply, reply)
			assert.Equal(t, tt.muted, m.State)
		})
	}
}

func TestFirstEnabledMutesOnce(t *testing.T) {
	m := &FakeMixer{}
	s := NewSession(m)

	a, reply, err := s.HandleLine(ctx, "Device enabled")
	require.NoError(t, err)
	assert.Equal(t, ActionStarted, a)
	assert.Equal(t, "MUTE", reply)
	assert.True(t, s.Initialized())

	a, reply, err = s.HandleLine(ctx, "Device enabled")
	require.NoError(t, err)
	assert.Equal(t, ActionNone, a)
	assert.Empty(t, reply)
	assert.Equal(t, []bool{true}, m.Calls)
}

func TestDisabledResetsInitialization(t *testing.T) {
	m := &FakeMixer{}
	s := NewSession(m)
	_, _, _ = s.HandleLine(ctx, "Device enabled")
	_, _, _ = s.HandleLine(ctx, "Device disabled")
	assert.False(t, s.Initialized())

	a, _, err := s.HandleLine(ctx, "Device enabled")
	require.NoError(t, err)
	assert.Equal(t, ActionStarted, a)
}

func TestIgnoredAndUnknownLines(t *testing.T) {
	s := NewSession(&FakeMixer{})
	for _, line := range []string{"", "ACK", "Device booted", "VERSION: 1.2.0", "Host inactive -> standby mode"} {
		a, reply, err := s.HandleLine(ctx, line)
		require.NoError(t, err)
		assert.Equal(t, ActionNone, a, line)
		assert.Empty(t, reply, line)
	}

	a, _, err := s.HandleLine(ctx, "garbage")
	require.NoError(t, err)
	assert.Equal(t, ActionUnknown, a)
}

func TestPollReportsMixer(t *testing.T) {
	m := &FakeMixer{State: false}
	s := NewSession(m)

	cmd, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "UNMUTE", cmd)

	m.State = true
	cmd, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MUTE", cmd)
	assert.Empty(t, m.Calls)
}

func TestMixerErrors(t *testing.T) {
	m := &FakeMixer{SetError: errors.New("no pulse")}
	s := NewSession(m)
	_, err := s.Attach(ctx)
	assert.ErrorContains(t, err, "no pulse")

	_, _, err = s.HandleLine(ctx, "PTT pressed")
	assert.ErrorContains(t, err, "set mute false")

	m = &FakeMixer{GetError: errors.New("busy")}
	_, err = NewSession(m).Poll(ctx)
	assert.ErrorContains(t, err, "read mixer")
}

// fakePactl emulates pactl over a map of source name to mute state.
type fakePactl struct {
	sources map[string]bool
	order   []string
	calls   []string
}

func (f *fakePactl) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	switch args[0] {
	case "list":
		var b strings.Builder
		for i, s := range f.order {
			fmt.Fprintf(&b, "%d\t%s\tmodule-alsa-card.c\ts16le 2ch 48000Hz\tSUSPENDED\n", i, s)
		}
		return []byte(b.String()), nil
	case "get-source-mute":
		if f.sources[args[1]] {
			return []byte("Mute: yes\n"), nil
		}
		return []byte("Mute: no\n"), nil
	case "set-source-mute":
		f.sources[args[1]] = args[2] == "1"
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected %v", args)
}

func TestPactlMixerSetMutedChangesOnlyDiffering(t *testing.T) {
	p := &fakePactl{
		sources: map[string]bool{"mic": false, "monitor": true},
		order:   []string{"mic", "monitor"},
	}
	m := NewPactlMixer(p.run)

	require.NoError(t, m.SetMuted(ctx, true))
	assert.Equal(t, map[string]bool{"mic": true, "monitor": true}, p.sources)
	assert.Contains(t, p.calls, "pactl set-source-mute mic 1")
	assert.NotContains(t, p.calls, "pactl set-source-mute monitor 1")

	muted, err := m.Muted(ctx)
	require.NoError(t, err)
	assert.True(t, muted)
}

func TestPactlMixerMutedRequiresAll(t *testing.T) {
	p := &fakePactl{
		sources: map[string]bool{"mic": true, "usb": false},
		order:   []string{"mic", "usb"},
	}
	muted, err := NewPactlMixer(p.run).Muted(ctx)
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestPactlMixerRunError(t *testing.T) {
	m := NewPactlMixer(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("pactl: not found")
	})
	assert.ErrorContains(t, m.SetMuted(ctx, true), "pactl list sources")
	_, err := m.Muted(ctx)
	assert.Error(t, err)
}
