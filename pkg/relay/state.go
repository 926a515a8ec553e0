package relay

// EventKind classifies a marker-file change.
type EventKind uint8

const (
	// EventCreated indicates a marker file appeared: the channel goes on.
	EventCreated EventKind = iota

	// EventDeleted indicates a marker file disappeared: the channel goes off.
	EventDeleted
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "CREATED"
	case EventDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Event is one marker-file change for a single channel.
type Event struct {
	Kind    EventKind
	Channel int
}

// State tracks the desired relay mask against the mask last confirmed
// written to the hardware. The daemon loop is the only writer; no
// locking is needed.
type State struct {
	desired Mask
	written Mask
	dirty   bool
}

// Desired returns the mask accumulated from filesystem events.
func (s *State) Desired() Mask { return s.desired }

// Written returns the mask last confirmed pushed to the device.
func (s *State) Written() Mask { return s.written }

// Dirty reports whether the desired mask still needs to reach the device.
func (s *State) Dirty() bool { return s.dirty }

// SetDesired replaces the desired mask and marks it pending.
func (s *State) SetDesired(m Mask) {
	s.desired = m
	s.dirty = true
}

// ForceDirty marks the current desired mask as pending even if it equals
// the last written one. Used for the unconditional initial push that
// establishes a known physical state.
func (s *State) ForceDirty() { s.dirty = true }

// Fold applies events in arrival order: Created sets the channel bit,
// Deleted clears it. No reordering, no de-duplication; the last event
// for a channel within a batch wins. Any event marks the state dirty.
func (s *State) Fold(events []Event) {
	for _, ev := range events {
		switch ev.Kind {
		case EventCreated:
			s.desired.Set(ev.Channel)
		case EventDeleted:
			s.desired.Clear(ev.Channel)
		}
	}
	if len(events) > 0 {
		s.dirty = true
	}
}

// MarkWritten records a successful push of mask m. The dirty flag is
// cleared only if the desired mask has not moved on in the meantime.
func (s *State) MarkWritten(m Mask) {
	s.written = m
	if s.desired == m {
		s.dirty = false
	}
}
