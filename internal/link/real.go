//go:build !tinygo

package link

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// PresenceSource selects which modem line carries the host's DTR.
type PresenceSource string

const (
	PresenceDSR    PresenceSource = "dsr"    // null-modem: host DTR wired to DSR
	PresenceDCD    PresenceSource = "dcd"    // host DTR wired to DCD
	PresenceCTS    PresenceSource = "cts"    // host RTS/DTR wired to CTS
	PresenceAlways PresenceSource = "always" // no handshake lines; always present
)

// ParsePresenceSource validates a presence source name.
func ParsePresenceSource(s string) (PresenceSource, error) {
	switch p := PresenceSource(strings.ToLower(s)); p {
	case PresenceDSR, PresenceDCD, PresenceCTS, PresenceAlways:
		return p, nil
	default:
		return "", fmt.Errorf("unknown presence source %q", s)
	}
}

// lineBuffer is the number of inbound lines held between ticks.
const lineBuffer = 16

// writeBuffer is the number of outbound lines queued for the writer.
const writeBuffer = 32

// ErrWriteBacklog is returned when the host has stopped reading and the
// outbound queue is full.
var ErrWriteBacklog = errors.New("write queue full")

// SerialPort is a Port backed by a real serial device. Writes are queued to
// a writer goroutine so a stalled host never blocks the caller.
type SerialPort struct {
	port   serial.Port
	name   string
	lines  chan string
	writes chan []byte

	mu       sync.Mutex
	presence PresenceSource
	closed   bool
	failed   error // first read or write failure; sticky

	readDone  chan struct{}
	writeDone chan struct{}
}

// OpenSerial opens the named serial device and starts reading lines.
func OpenSerial(name string, baud int, presence PresenceSource) (*SerialPort, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return newSerialPort(p, name, presence), nil
}

func newSerialPort(p serial.Port, name string, presence PresenceSource) *SerialPort {
	s := &SerialPort{
		port:      p,
		name:      name,
		presence:  presence,
		lines:     make(chan string, lineBuffer),
		writes:    make(chan []byte, writeBuffer),
		readDone:  make(chan struct{}),
		writeDone: make(chan struct{}),
	}
	go s.readLoop()
	go s.writeLoop()
	return s
}

func (s *SerialPort) readLoop() {
	defer close(s.readDone)
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		default:
			log.Warn().Str("port", s.name).Str("line", line).Msg("link: line buffer full, dropping")
		}
	}
	if err := scanner.Err(); err != nil && !s.isClosed() {
		log.Error().Err(err).Str("port", s.name).Msg("link: read failed")
		s.fail(err)
	}
}

func (s *SerialPort) writeLoop() {
	defer close(s.writeDone)
	for b := range s.writes {
		if _, err := s.port.Write(b); err != nil && !s.isClosed() {
			log.Error().Err(err).Str("port", s.name).Msg("link: write failed")
			s.fail(err)
		}
	}
}

func (s *SerialPort) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = err
	}
}

func (s *SerialPort) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Source returns the presence source in effect. It changes to
// PresenceAlways if the port cannot report modem status.
func (s *SerialPort) Source() PresenceSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

// Presence samples the configured modem status line. Ports without modem
// control, such as a USB gadget tty, fall back to always present.
func (s *SerialPort) Presence() bool {
	s.mu.Lock()
	source, closed := s.presence, s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	if source == PresenceAlways {
		return true
	}

	bits, err := s.port.GetModemStatusBits()
	if err != nil {
		log.Warn().Err(err).Str("port", s.name).Str("presence", string(source)).
			Msg("link: modem status unavailable, treating host as always present")
		s.mu.Lock()
		s.presence = PresenceAlways
		s.mu.Unlock()
		return true
	}
	switch source {
	case PresenceDCD:
		return bits.DCD
	case PresenceCTS:
		return bits.CTS
	default:
		return bits.DSR
	}
}

// ReadLine returns the next buffered line without blocking.
func (s *SerialPort) ReadLine() (string, bool) {
	select {
	case line := <-s.lines:
		return line, true
	default:
		return "", false
	}
}

// WriteLine queues text followed by CRLF if a host is present. It never
// blocks; a full queue returns ErrWriteBacklog and an earlier read or write
// failure is returned on every later call.
func (s *SerialPort) WriteLine(text string) error {
	if !s.Presence() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.failed != nil {
		return fmt.Errorf("write %s: %w", s.name, s.failed)
	}
	select {
	case s.writes <- []byte(text + "\r\n"):
		return nil
	default:
		return fmt.Errorf("write %s: %w", s.name, ErrWriteBacklog)
	}
}

// Close stops the reader and writer and closes the port.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.writes)
	s.mu.Unlock()

	err := s.port.Close()
	timeout := time.After(time.Second)
	for _, done := range []chan struct{}{s.readDone, s.writeDone} {
		select {
		case <-done:
		case <-timeout:
			log.Warn().Str("port", s.name).Msg("link: reader or writer did not stop")
			return closeErr(s.name, err)
		}
	}
	return closeErr(s.name, err)
}

func closeErr(name string, err error) error {
	if err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}
