//go:build !tinygo

package link

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// stubSerial is a serial.Port whose reads block until Close and whose
// writes are recorded, or held while gate is non-nil.
type stubSerial struct {
	mu        sync.Mutex
	bits      serial.ModemStatusBits
	statusErr error
	written   []string
	gate      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newStubSerial() *stubSerial {
	return &stubSerial{closed: make(chan struct{})}
}

func (p *stubSerial) Read(b []byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *stubSerial) Write(b []byte) (int, error) {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-p.closed:
			return 0, errors.New("port closed")
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, string(b))
	return len(b), nil
}

func (p *stubSerial) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.statusErr != nil {
		return nil, p.statusErr
	}
	bits := p.bits
	return &bits, nil
}

func (p *stubSerial) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *stubSerial) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

func (p *stubSerial) SetMode(*serial.Mode) error { return nil }
func (p *stubSerial) Drain() error { return nil }
func (p *stubSerial) ResetInputBuffer() error { return nil }
func (p *stubSerial) ResetOutputBuffer() error { return nil }
func (p *stubSerial) SetDTR(bool) error { return nil }
func (p *stubSerial) SetRTS(bool) error { return nil }
func (p *stubSerial) SetReadTimeout(time.Duration) error { return nil }
func (p *stubSerial) Break(time.Duration) error { return nil }

func TestSerialPresenceFollowsModemLine(t *testing.T) {
	stub := newStubSerial()
	s := newSerialPort(stub, "stub", PresenceDSR)
	defer s.Close()

	assert.False(t, s.Presence())

	stub.mu.Lock()
	stub.bits.DSR = true
	stub.mu.Unlock()
	assert.True(t, s.Presence())
	assert.Equal(t, PresenceDSR, s.Source())
}

func TestSerialPresenceFallsBackWithoutModemStatus(t *testing.T) {
	stub := newStubSerial()
	stub.statusErr = errors.New("inappropriate ioctl for device")
	s := newSerialPort(stub, "ttyGS0", PresenceDSR)
	defer s.Close()

	assert.True(t, s.Presence(), "a port without modem control is treated as present")
	assert.Equal(t, PresenceAlways, s.Source())

	require.NoError(t, s.WriteLine("Device enabled"))
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"Device enabled\r\n"}, stub.Written())
	}, time.Second, 5*time.Millisecond)
}

func TestSerialWriteDoesNotBlockOnStalledHost(t *testing.T) {
	stub := newStubSerial()
	stub.gate = make(chan struct{})
	s := newSerialPort(stub, "stub", PresenceAlways)
	defer s.Close()

	done := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i < writeBuffer+2 && err == nil; i++ {
			err = s.WriteLine("PTT pressed")
		}
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrWriteBacklog)
	case <-time.After(time.Second):
		t.Fatal("WriteLine blocked on a stalled host")
	}
	assert.Empty(t, stub.Written())
}

func TestSerialWriteAfterClose(t *testing.T) {
	stub := newStubSerial()
	s := newSerialPort(stub, "stub", PresenceAlways)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Presence())
	assert.NoError(t, s.WriteLine("dropped"))
}
