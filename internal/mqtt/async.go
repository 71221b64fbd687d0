package mqtt

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ptt-indicator/internal/logic"
)

// QueueCapacity bounds the messages waiting for a slow publisher.
const QueueCapacity = 64

// closeTimeout bounds how long Close waits for queued messages to flush.
const closeTimeout = 2 * time.Second

type queued struct {
	event  *logic.Event
	system *SystemEvent
}

// AsyncPublisher hands messages to a goroutine that forwards them to the
// wrapped Publisher, so callers never wait on the broker. When the queue is
// full the oldest message is dropped.
type AsyncPublisher struct {
	next Publisher

	mu      sync.Mutex
	pending *ringBuffer[queued]
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewAsyncPublisher starts forwarding to next. capacity <= 0 uses
// QueueCapacity.
func NewAsyncPublisher(next Publisher, capacity int) *AsyncPublisher {
	if capacity <= 0 {
		capacity = QueueCapacity
	}
	a := &AsyncPublisher{
		next:    next,
		pending: newRingBuffer[queued](capacity),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Publish queues a device event.
func (a *AsyncPublisher) Publish(event logic.Event) error {
	a.enqueue(queued{event: &event})
	return nil
}

// PublishSystem queues a system lifecycle event.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	a.enqueue(queued{system: &event})
	return nil
}

// IsConnected reports the wrapped publisher's connection state, or false
// if it does not report one.
func (a *AsyncPublisher) IsConnected() bool {
	if cs, ok := a.next.(ConnectionStatus); ok {
		return cs.IsConnected()
	}
	return false
}

// Close flushes queued messages, waiting at most closeTimeout, then closes
// the wrapped publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.stop)
	select {
	case <-a.done:
	case <-time.After(closeTimeout):
		log.Warn().Msg("mqtt: queue did not flush before close")
	}
	return a.next.Close()
}

func (a *AsyncPublisher) enqueue(q queued) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.pending.push(q)
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *AsyncPublisher) loop() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.flush()
		case <-a.stop:
			a.flush()
			return
		}
	}
}

func (a *AsyncPublisher) flush() {
	for {
		a.mu.Lock()
		msgs := a.pending.drainAll()
		a.mu.Unlock()
		if len(msgs) == 0 {
			return
		}
		for _, q := range msgs {
			a.forward(q)
		}
	}
}

func (a *AsyncPublisher) forward(q queued) {
	if q.event != nil {
		if err := a.next.Publish(*q.event); err != nil {
			log.Warn().Err(err).Str("event", string(q.event.Type)).Msg("mqtt: publish error")
		}
		return
	}
	if err := a.next.PublishSystem(*q.system); err != nil {
		log.Warn().Err(err).Str("event", q.system.Event).Msg("mqtt: system publish error")
	}
}
