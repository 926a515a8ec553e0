package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/schaapsound/relayd/pkg/relay"
)

const batchTimeout = 5 * time.Second

func newTestWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(os.Stderr)

	w, err := New(dir, log)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, dir
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// nextBatch wraps NextBatch with a timeout so a missed notification
// fails the test instead of hanging it.
func nextBatch(t *testing.T, w *Watcher) []relay.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	events, err := w.NextBatch(ctx)
	require.NoError(t, err)
	return events
}

func TestInitialStateEmptyDir(t *testing.T) {
	w, _ := newTestWatcher(t)

	mask, err := w.InitialState()
	require.NoError(t, err)
	require.Equal(t, relay.Mask(0), mask)
}

func TestInitialStateHonorsExistingMarkers(t *testing.T) {
	dir := t.TempDir()
	touch0 := func(name string) {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	// Files created before the watch starts never produce events.
	touch0("D_OUT_1")
	touch0("D_OUT_3")
	touch0("D_OUT_9")  // out of range
	touch0("NOT_A_MARKER")

	w, err := New(dir, logrus.New())
	require.NoError(t, err)
	defer w.Close()

	mask, err := w.InitialState()
	require.NoError(t, err)
	require.Equal(t, relay.Mask(0b00000101), mask)
}

func TestInitialStateIdempotent(t *testing.T) {
	w, dir := newTestWatcher(t)
	touch(t, dir, "D_OUT_7")

	first, err := w.InitialState()
	require.NoError(t, err)
	second, err := w.InitialState()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, relay.Mask(0b01000000), first)
}

func TestNextBatchCreate(t *testing.T) {
	w, dir := newTestWatcher(t)

	touch(t, dir, "D_OUT_2")

	events := nextBatch(t, w)
	require.NotEmpty(t, events)
	require.Equal(t, relay.Event{Kind: relay.EventCreated, Channel: 2}, events[0])
}

func TestNextBatchDelete(t *testing.T) {
	w, dir := newTestWatcher(t)

	touch(t, dir, "D_OUT_4")
	events := nextBatch(t, w)
	require.Equal(t, relay.EventCreated, events[0].Kind)

	require.NoError(t, os.Remove(filepath.Join(dir, "D_OUT_4")))
	events = nextBatch(t, w)
	require.NotEmpty(t, events)
	require.Equal(t, relay.Event{Kind: relay.EventDeleted, Channel: 4}, events[0])
}

func TestNextBatchIgnoresNonMarkers(t *testing.T) {
	w, dir := newTestWatcher(t)

	touch(t, dir, "D_OUT_99")
	touch(t, dir, "random.txt")
	touch(t, dir, "D_OUT_5")

	// Collect until the marker event shows up; only channel 5 may
	// ever be reported.
	deadline := time.Now().Add(batchTimeout)
	for time.Now().Before(deadline) {
		for _, ev := range nextBatch(t, w) {
			require.Equal(t, 5, ev.Channel)
			require.Equal(t, relay.EventCreated, ev.Kind)
			return
		}
	}
	t.Fatal("marker event for channel 5 never arrived")
}

func TestNextBatchIgnoresSubdirectories(t *testing.T) {
	w, dir := newTestWatcher(t)

	// A subdirectory named like a marker is not a marker.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "D_OUT_6"), 0755))
	touch(t, dir, "D_OUT_1")

	deadline := time.Now().Add(batchTimeout)
	for time.Now().Before(deadline) {
		for _, ev := range nextBatch(t, w) {
			require.Equal(t, 1, ev.Channel)
			return
		}
	}
	t.Fatal("marker event for channel 1 never arrived")
}

func TestNextBatchContextCancel(t *testing.T) {
	w, _ := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := w.NextBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNextBatchNotifyErrorAfterClose(t *testing.T) {
	w, _ := newTestWatcher(t)
	require.NoError(t, w.Close())

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	_, err := w.NextBatch(ctx)
	require.ErrorIs(t, err, ErrNotify)
}

func TestFoldedBatchRoundTrip(t *testing.T) {
	// Creating each marker and folding the resulting events must set
	// exactly that channel's bit, for every channel.
	w, dir := newTestWatcher(t)

	var state relay.State
	for ch := relay.MinChannel; ch <= relay.MaxChannel; ch++ {
		touch(t, dir, MarkerName(ch))
		state.Fold(nextBatch(t, w))
		require.True(t, state.Desired().Test(ch), "channel %d not set", ch)
	}
	require.Equal(t, relay.Mask(0xff), state.Desired())

	for ch := relay.MinChannel; ch <= relay.MaxChannel; ch++ {
		require.NoError(t, os.Remove(filepath.Join(dir, MarkerName(ch))))
		state.Fold(nextBatch(t, w))
		require.False(t, state.Desired().Test(ch), "channel %d still set", ch)
	}
	require.Equal(t, relay.Mask(0), state.Desired())
}
