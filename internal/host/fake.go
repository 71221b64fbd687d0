package host

import "context"

// FakeMixer records mute requests for test assertions.
type FakeMixer struct {
	State    bool
	Calls    []bool
	SetError error
	GetError error
}

// SetMuted records the request and updates State.
func (f *FakeMixer) SetMuted(_ context.Context, muted bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Calls = append(f.Calls, muted)
	f.State = muted
	return nil
}

// Muted returns State.
func (f *FakeMixer) Muted(context.Context) (bool, error) {
	return f.State, f.GetError
}
