package host

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PactlMixer drives PulseAudio/PipeWire sources through pactl.
type PactlMixer struct {
	run Runner
}

// NewPactlMixer creates a mixer using run; nil selects ExecRunner.
func NewPactlMixer(run Runner) *PactlMixer {
	if run == nil {
		run = ExecRunner
	}
	return &PactlMixer{run: run}
}

func (m *PactlMixer) sources(ctx context.Context) ([]string, error) {
	out, err := m.run(ctx, "pactl", "list", "short", "sources")
	if err != nil {
		return nil, fmt.Errorf("pactl list sources: %w", err)
	}
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 {
			names = append(names, fields[1])
		}
	}
	return names, sc.Err()
}

func (m *PactlMixer) sourceMuted(ctx context.Context, name string) (bool, error) {
	out, err := m.run(ctx, "pactl", "get-source-mute", name)
	if err != nil {
		return false, fmt.Errorf("pactl get-source-mute %s: %w", name, err)
	}
	return strings.HasSuffix(strings.TrimSpace(string(out)), "yes"), nil
}

// SetMuted changes only the sources whose state differs.
func (m *PactlMixer) SetMuted(ctx context.Context, muted bool) error {
	names, err := m.sources(ctx)
	if err != nil {
		return err
	}
	flag := "0"
	if muted {
		flag = "1"
	}
	for _, name := range names {
		cur, err := m.sourceMuted(ctx, name)
		if err != nil {
			return err
		}
		if cur == muted {
			continue
		}
		if _, err := m.run(ctx, "pactl", "set-source-mute", name, flag); err != nil {
			return fmt.Errorf("pactl set-source-mute %s: %w", name, err)
		}
		log.Info().Str("source", name).Bool("muted", muted).Msg("source mute changed")
	}
	return nil
}

// Muted reports true when every source is muted.
func (m *PactlMixer) Muted(ctx context.Context) (bool, error) {
	names, err := m.sources(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		muted, err := m.sourceMuted(ctx, name)
		if err != nil {
			return false, err
		}
		if !muted {
			return false, nil
		}
	}
	return true, nil
}
