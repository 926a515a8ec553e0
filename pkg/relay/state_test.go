package relay

import "testing"

func TestFoldAppliesInOrder(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   Mask
	}{
		{
			name: "create sets bit",
			events: []Event{
				{Kind: EventCreated, Channel: 4},
			},
			want: 0b00001000,
		},
		{
			name: "create then delete same channel is off",
			events: []Event{
				{Kind: EventCreated, Channel: 2},
				{Kind: EventDeleted, Channel: 2},
			},
			want: 0,
		},
		{
			name: "delete then create same channel is on",
			events: []Event{
				{Kind: EventDeleted, Channel: 2},
				{Kind: EventCreated, Channel: 2},
			},
			want: 0b00000010,
		},
		{
			name: "mixed channels, order per channel wins",
			events: []Event{
				{Kind: EventCreated, Channel: 1},
				{Kind: EventCreated, Channel: 3},
				{Kind: EventDeleted, Channel: 1},
				{Kind: EventCreated, Channel: 1},
			},
			want: 0b00000101,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s State
			s.Fold(tt.events)
			if got := s.Desired(); got != tt.want {
				t.Errorf("desired = %08b, want %08b", uint8(got), uint8(tt.want))
			}
			if !s.Dirty() {
				t.Error("state not dirty after folding events")
			}
		})
	}
}

func TestFoldEmptyBatchKeepsClean(t *testing.T) {
	var s State
	s.Fold(nil)
	if s.Dirty() {
		t.Error("empty fold marked state dirty")
	}
}

func TestMarkWrittenClearsDirty(t *testing.T) {
	var s State
	s.SetDesired(0b00000101)
	if !s.Dirty() {
		t.Fatal("SetDesired did not mark dirty")
	}

	s.MarkWritten(0b00000101)
	if s.Dirty() {
		t.Error("still dirty after successful push of current mask")
	}
	if s.Written() != 0b00000101 {
		t.Errorf("written = %08b, want 00000101", uint8(s.Written()))
	}
}

func TestMarkWrittenStaleMaskStaysDirty(t *testing.T) {
	// Events arrived while the push was in flight: the confirmed mask
	// is already stale and must not clear the dirty flag.
	var s State
	s.SetDesired(0b00000001)
	s.Fold([]Event{{Kind: EventCreated, Channel: 2}})

	s.MarkWritten(0b00000001)
	if !s.Dirty() {
		t.Error("dirty flag cleared by stale write confirmation")
	}
}

func TestFailedPushNeverUpdatesWritten(t *testing.T) {
	// A failed push simply never calls MarkWritten; the bookkeeping
	// must still claim the old mask.
	var s State
	s.MarkWritten(0b11110000)
	s.SetDesired(0b00001111)

	if s.Written() != 0b11110000 {
		t.Errorf("written = %08b, want 11110000", uint8(s.Written()))
	}
	if !s.Dirty() {
		t.Error("pending mask lost")
	}
}

func TestForceDirty(t *testing.T) {
	var s State
	s.MarkWritten(0)
	if s.Dirty() {
		t.Fatal("fresh state dirty")
	}
	s.ForceDirty()
	if !s.Dirty() {
		t.Error("ForceDirty had no effect")
	}
	if s.Desired() != 0 {
		t.Error("ForceDirty changed the desired mask")
	}
}

func TestEventKindString(t *testing.T) {
	if EventCreated.String() != "CREATED" || EventDeleted.String() != "DELETED" {
		t.Error("unexpected event kind names")
	}
	if EventKind(99).String() != "UNKNOWN" {
		t.Error("unknown kind not reported as UNKNOWN")
	}
}
