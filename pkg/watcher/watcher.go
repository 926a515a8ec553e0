// Package watcher keeps the relay mask in sync with a watched
// directory: marker file D_OUT_<n> present means channel n on, absent
// means off. It scans the directory once for the initial mask and then
// turns filesystem change notifications into relay events.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/schaapsound/relayd/pkg/relay"
)

// ErrNotify indicates the change-notification subsystem itself failed.
// The watcher does not recover from this; the caller decides whether
// to exit or rebuild the watch.
var ErrNotify = errors.New("filesystem notification error")

// Watcher observes one directory for marker-file changes. It never
// creates or deletes files itself; the directory contents belong to
// external actors.
type Watcher struct {
	dir string
	log logrus.FieldLogger
	fsw *fsnotify.Watcher
}

// New starts watching dir. The directory must already exist.
func New(dir string, log logrus.FieldLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, log: log, fsw: fsw}, nil
}

// Dir returns the watched directory path.
func (w *Watcher) Dir() string { return w.dir }

// InitialState derives the relay mask from the directory's current
// contents by testing each marker file for existence. Pre-existing
// files are honored this way even though no event ever fires for them.
// The scan is idempotent against an unchanged directory.
func (w *Watcher) InitialState() (relay.Mask, error) {
	var mask relay.Mask
	for ch := relay.MinChannel; ch <= relay.MaxChannel; ch++ {
		_, err := os.Lstat(filepath.Join(w.dir, MarkerName(ch)))
		switch {
		case err == nil:
			mask.Set(ch)
		case os.IsNotExist(err):
			// channel off
		default:
			return 0, fmt.Errorf("scan %s: %w", w.dir, err)
		}
	}
	return mask, nil
}

// NextBatch blocks until at least one filesystem change occurs under
// the watched directory, then returns every marker event that can be
// drained without blocking, in arrival order. Batches of size 1..N
// must be tolerated uniformly by the caller. The wait has no timeout;
// it is unblocked only by an event, a notification error (ErrNotify)
// or cancellation of ctx.
func (w *Watcher) NextBatch(ctx context.Context) ([]relay.Event, error) {
	var batch []relay.Event

	// Block for the first notification.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err, ok := <-w.fsw.Errors:
		if !ok {
			return nil, fmt.Errorf("%w: channel closed", ErrNotify)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotify, err)
	case ev, ok := <-w.fsw.Events:
		if !ok {
			return nil, fmt.Errorf("%w: channel closed", ErrNotify)
		}
		batch = w.fold(batch, ev)
	}

	// Drain whatever else is already pending.
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return batch, nil
			}
			batch = w.fold(batch, ev)
		default:
			return batch, nil
		}
	}
}

// fold translates one fsnotify event into a relay event, dropping
// directory-level events and non-marker names.
func (w *Watcher) fold(batch []relay.Event, ev fsnotify.Event) []relay.Event {
	name := filepath.Base(ev.Name)
	ch, ok := Channel(name)
	if !ok {
		w.log.WithField("name", name).Debug("ignoring non-marker entry")
		return batch
	}

	switch {
	case ev.Has(fsnotify.Create):
		// A subdirectory named like a marker is not a marker.
		if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
			w.log.WithField("name", name).Debug("ignoring directory event")
			return batch
		}
		w.log.WithField("channel", ch).Debug("marker created")
		return append(batch, relay.Event{Kind: relay.EventCreated, Channel: ch})
	case ev.Has(fsnotify.Remove):
		w.log.WithField("channel", ch).Debug("marker deleted")
		return append(batch, relay.Event{Kind: relay.EventDeleted, Channel: ch})
	default:
		// Writes, chmods and renames carry no on/off meaning.
		return batch
	}
}

// Close releases the notification handle. The next NextBatch call, if
// any, returns ErrNotify.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
