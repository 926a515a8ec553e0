// Package daemon runs the long-lived loop that keeps the relay board
// in sync with the watched directory: connect (retrying forever),
// initial scan and unconditional push, then alternate "wait for the
// next batch of marker events" and "push the mask", reconnecting
// whenever a push fails.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schaapsound/relayd/pkg/journal"
	"github.com/schaapsound/relayd/pkg/relay"
	"github.com/schaapsound/relayd/pkg/watcher"
)

// DefaultRetryDelay is the fixed pause between board open attempts.
// There is deliberately no retry cap: the board may be plugged in long
// after the daemon starts.
const DefaultRetryDelay = time.Second

// Session is the device connection as the loop sees it. A Push failure
// renders the session unusable; Close must be idempotent.
type Session interface {
	Push(mask relay.Mask) error
	Close() error
}

// Opener acquires a fresh device session.
type Opener func() (Session, error)

// Batcher supplies the initial directory state and blocking batches of
// marker events.
type Batcher interface {
	InitialState() (relay.Mask, error)
	NextBatch(ctx context.Context) ([]relay.Event, error)
}

// Config holds the loop parameters.
type Config struct {
	// RetryDelay is the pause between failed open attempts.
	// Zero means DefaultRetryDelay.
	RetryDelay time.Duration
}

// Daemon owns the relay state and the device session exclusively.
// Run drives everything from a single goroutine; there are no
// concurrent writers to either.
type Daemon struct {
	cfg   Config
	open  Opener
	watch Batcher
	log   logrus.FieldLogger
	jrnl  journal.Journal

	runID string
	state relay.State
}

// New assembles a daemon. A nil jrnl disables journaling.
func New(cfg Config, open Opener, watch Batcher, log logrus.FieldLogger, jrnl journal.Journal) *Daemon {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if jrnl == nil {
		jrnl = journal.Nop{}
	}
	return &Daemon{
		cfg:   cfg,
		open:  open,
		watch: watch,
		log:   log,
		jrnl:  jrnl,
		runID: uuid.NewString(),
	}
}

// State exposes the desired/last-written masks for inspection.
func (d *Daemon) State() *relay.State { return &d.state }

// Run executes the loop until ctx is cancelled (clean shutdown,
// returns nil) or the notification subsystem fails (returns the
// error rather than spinning on a broken watch).
func (d *Daemon) Run(ctx context.Context) error {
	d.log.WithField("run_id", d.runID).Info("relay daemon starting")

	sess, err := d.connect(ctx)
	if err != nil {
		return d.finish(err)
	}
	defer func() {
		if sess != nil {
			sess.Close()
		}
	}()

	initial, err := d.watch.InitialState()
	if err != nil {
		return d.finish(fmt.Errorf("initial directory scan: %w", err))
	}
	d.log.WithField("mask", initial.String()).Info("initial state from directory")

	// The first push happens even for an all-zero mask, establishing a
	// known physical state.
	d.state.SetDesired(initial)

	for {
		for d.state.Dirty() {
			mask := d.state.Desired()
			if err := sess.Push(mask); err != nil {
				d.log.WithError(err).Warn("push failed, reconnecting")
				d.jrnl.Record(journal.Event{
					Timestamp: time.Now(),
					RunID:     d.runID,
					Kind:      journal.KindDeviceLost,
					Mask:      uint8(mask),
					Detail:    err.Error(),
				})
				sess.Close()
				sess, err = d.connect(ctx)
				if err != nil {
					return d.finish(err)
				}
				// Desired mask survived the outage; push it now.
				continue
			}
			d.state.MarkWritten(mask)
			d.log.WithField("mask", mask.String()).Info("mask pushed")
			d.jrnl.Record(journal.Event{
				Timestamp: time.Now(),
				RunID:     d.runID,
				Kind:      journal.KindPush,
				Mask:      uint8(mask),
			})
		}

		events, err := d.watch.NextBatch(ctx)
		if err != nil {
			if errors.Is(err, watcher.ErrNotify) {
				// A broken watch would make this loop spin; exit instead
				// and let the service manager restart us.
				d.log.WithError(err).Error("notification subsystem failed")
			}
			return d.finish(err)
		}
		for _, ev := range events {
			d.jrnl.Record(journal.MarkerEvent(d.runID, ev))
		}
		d.state.Fold(events)
	}
}

// connect retries the opener with a fixed delay until it succeeds or
// ctx is cancelled. Every failed attempt is logged.
func (d *Daemon) connect(ctx context.Context) (Session, error) {
	for attempt := 1; ; attempt++ {
		sess, err := d.open()
		if err == nil {
			d.log.WithField("attempt", attempt).Info("relay board connected")
			d.jrnl.Record(journal.Event{
				Timestamp: time.Now(),
				RunID:     d.runID,
				Kind:      journal.KindDeviceOpened,
				Detail:    fmt.Sprintf("attempt %d", attempt),
			})
			return sess, nil
		}
		d.log.WithError(err).WithField("attempt", attempt).Debug("open failed, retrying")

		timer := time.NewTimer(d.cfg.RetryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// finish maps context cancellation to a clean exit and records the
// shutdown in the journal.
func (d *Daemon) finish(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		d.log.Info("relay daemon shutting down")
		d.jrnl.Record(journal.Event{
			Timestamp: time.Now(),
			RunID:     d.runID,
			Kind:      journal.KindShutdown,
		})
		return nil
	}
	return err
}
