// Package metrics reports device events to a DogStatsD agent.
package metrics

import (
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// Metric names.
const (
	MetricPressed    = "ptt.pressed"
	MetricToggled    = "ptt.toggled"
	MetricLinkActive = "link.active"
	MetricTimeout    = "link.timeout"
	MetricMuted      = "ptt.muted"
)

// Sink is the subset of the DogStatsD client used here.
type Sink interface {
	Incr(name string, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
}

// Recorder turns state-machine events into metrics. A nil Recorder or one
// without a sink records nothing.
type Recorder struct {
	sink Sink
}

// NewRecorder wraps an existing sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Dial connects to a DogStatsD agent. An empty addr disables metrics.
func Dial(addr, namespace string, tags []string) (*Recorder, func() error, error) {
	if addr == "" {
		return &Recorder{}, func() error { return nil }, nil
	}
	c, err := statsd.New(addr, statsd.WithNamespace(namespace), statsd.WithTags(tags))
	if err != nil {
		return nil, nil, fmt.Errorf("dogstatsd %s: %w", addr, err)
	}
	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("metrics initialized")
	return &Recorder{sink: c}, c.Close, nil
}

// Record emits metrics for each event.
func (r *Recorder) Record(events []logic.Event) {
	if r == nil || r.sink == nil {
		return
	}
	for _, e := range events {
		switch e.Type {
		case logic.EventPTTPressed:
			r.incr(MetricPressed, "enabled:"+boolTag(e.State.Enabled))
		case logic.EventEnabled, logic.EventDisabled:
			r.incr(MetricToggled, "enabled:"+boolTag(e.State.Enabled))
		case logic.EventLinkUp, logic.EventLinkDown:
			r.gauge(MetricLinkActive, e.State.LinkActive)
		case logic.EventLinkTimeout:
			r.incr(MetricTimeout)
			r.gauge(MetricLinkActive, false)
		case logic.EventMuted, logic.EventUnmuted:
			r.gauge(MetricMuted, e.State.Muted)
		}
	}
}

func (r *Recorder) incr(name string, tags ...string) {
	if err := r.sink.Incr(name, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit count metric")
	}
}

func (r *Recorder) gauge(name string, on bool) {
	v := 0.0
	if on {
		v = 1
	}
	if err := r.sink.Gauge(name, v, nil, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge metric")
	}
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
