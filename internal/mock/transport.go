// Package mock provides hand-rolled test doubles for the device
// transport and session interfaces.
package mock

import (
	"errors"
	"sync"

	"github.com/schaapsound/relayd/pkg/relay"
)

// ErrInjected is the default failure returned by programmed doubles.
var ErrInjected = errors.New("injected failure")

// Transport records every frame written to it and can be programmed to
// fail at a specific write.
type Transport struct {
	// Frames holds a copy of every frame written, in order.
	Frames [][]byte

	// FailAt makes the Nth write (1-based) fail; 0 disables failure.
	FailAt int

	// Err is the error returned by the failing write (ErrInjected if nil).
	Err error

	mu sync.Mutex
}

// WriteFrame records the frame or fails if this is the FailAt-th write.
// The failing frame is not recorded, matching a transfer that never
// reached the device.
func (t *Transport) WriteFrame(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FailAt > 0 && len(t.Frames)+1 == t.FailAt {
		if t.Err != nil {
			return t.Err
		}
		return ErrInjected
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	t.Frames = append(t.Frames, cp)
	return nil
}

// Commands returns the command byte (position 5) of each recorded frame.
func (t *Transport) Commands() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	cmds := make([]byte, len(t.Frames))
	for i, f := range t.Frames {
		cmds[i] = f[5]
	}
	return cmds
}

// Session is a programmable device session for daemon tests.
type Session struct {
	// Pushes records every mask passed to Push, including failed ones.
	Pushes []relay.Mask

	// OnPush, when set, decides the outcome of each Push call.
	OnPush func(mask relay.Mask) error

	// CloseCount counts Close calls.
	CloseCount int

	mu sync.Mutex
}

// Push records the mask and consults OnPush for the outcome.
func (s *Session) Push(mask relay.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Pushes = append(s.Pushes, mask)
	if s.OnPush != nil {
		return s.OnPush(mask)
	}
	return nil
}

// Close counts the call. Always succeeds; safe to call repeatedly.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CloseCount++
	return nil
}

// PushedMasks returns a snapshot of the recorded pushes.
func (s *Session) PushedMasks() []relay.Mask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]relay.Mask, len(s.Pushes))
	copy(out, s.Pushes)
	return out
}

// Closes returns the number of Close calls so far.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.CloseCount
}
