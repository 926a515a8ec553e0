// Package journal records the daemon's operational history as a CBOR
// event stream: session opens, mask pushes, failures and the marker
// events that triggered them. The journal is diagnostics only; it is
// never read back to restore relay state.
package journal

import (
	"time"

	"github.com/schaapsound/relayd/pkg/relay"
)

// Kind classifies a journal event.
type Kind uint8

const (
	// KindDeviceOpened records a successful board open after 0..N retries.
	KindDeviceOpened Kind = iota

	// KindDeviceLost records a push failure that discarded the session.
	KindDeviceLost

	// KindPush records a successfully pushed mask.
	KindPush

	// KindMarker records one folded marker-file event.
	KindMarker

	// KindShutdown records an orderly daemon exit.
	KindShutdown
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDeviceOpened:
		return "DEVICE_OPENED"
	case KindDeviceLost:
		return "DEVICE_LOST"
	case KindPush:
		return "PUSH"
	case KindMarker:
		return "MARKER"
	case KindShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Event is one journal record. CBOR encoding uses integer keys for
// compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the daemon run that wrote the event (UUID).
	RunID string `cbor:"2,keyasint"`

	// Kind classifies the event.
	Kind Kind `cbor:"3,keyasint"`

	// Mask is the relay mask involved, for PUSH and DEVICE_LOST events.
	Mask uint8 `cbor:"4,keyasint,omitempty"`

	// Channel is the affected channel, for MARKER events.
	Channel int `cbor:"5,keyasint,omitempty"`

	// Detail carries free-form context, typically an error string.
	Detail string `cbor:"6,keyasint,omitempty"`
}

// MarkerEvent builds a MARKER journal record from a folded relay event.
func MarkerEvent(runID string, ev relay.Event) Event {
	return Event{
		Timestamp: time.Now(),
		RunID:     runID,
		Kind:      KindMarker,
		Channel:   ev.Channel,
		Detail:    ev.Kind.String(),
	}
}
