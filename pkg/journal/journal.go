package journal

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Journal is the interface the daemon records events through.
// Pass Nop to disable journaling.
type Journal interface {
	// Record writes one event. Implementations must not disrupt the
	// daemon on write errors; journaling is best-effort.
	Record(event Event)
}

// Nop discards all events. Safe for concurrent use as a zero value.
type Nop struct{}

// Record discards the event.
func (Nop) Record(Event) {}

// File writes journal events to a file in CBOR format.
// It is safe for concurrent use from multiple goroutines.
type File struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// OpenFile creates a File journal appending to path. The file is
// created with permissions 0644 if it does not exist.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &File{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Record writes one event to the journal file.
// Encoding errors are ignored; journaling must not disrupt the daemon.
func (j *File) Record(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return
	}
	_ = j.encoder.Encode(event)
}

// Close closes the journal file. Safe to call more than once; events
// recorded after Close are silently dropped.
func (j *File) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Journal = Nop{}
	_ Journal = (*File)(nil)
)
