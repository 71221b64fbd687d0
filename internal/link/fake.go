package link

// FakePort is a test double that scripts inbound lines and records writes.
type FakePort struct {
	// Inbound lines, consumed one per ReadLine call.
	Inbound []string

	// Present controls the return value of Presence.
	Present bool

	// Written records every line accepted while Present.
	Written []string

	// Dropped records lines written while not Present.
	Dropped []string

	// WriteError, if set, will be returned by WriteLine.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePort creates a FakePort.
func NewFakePort() *FakePort {
	return &FakePort{}
}

// Push queues inbound lines.
func (f *FakePort) Push(lines ...string) {
	f.Inbound = append(f.Inbound, lines...)
}

// Presence returns Present.
func (f *FakePort) Presence() bool {
	return f.Present
}

// ReadLine pops the next inbound line.
func (f *FakePort) ReadLine() (string, bool) {
	if len(f.Inbound) == 0 {
		return "", false
	}
	line := f.Inbound[0]
	f.Inbound = f.Inbound[1:]
	return line, true
}

// WriteLine records the line.
func (f *FakePort) WriteLine(text string) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if !f.Present {
		f.Dropped = append(f.Dropped, text)
		return nil
	}
	f.Written = append(f.Written, text)
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakePort) Reset() {
	f.Written = nil
	f.Dropped = nil
	f.WriteError = nil
}
