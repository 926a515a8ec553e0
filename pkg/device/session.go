// Package device owns the USB connection to the relay board: the
// open/claim/release lifecycle and the "push full output mask"
// operation layered on the protocol handshake.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"

	"github.com/schaapsound/relayd/pkg/protocol"
	"github.com/schaapsound/relayd/pkg/relay"
)

// Config identifies the board and the transfer parameters.
// The values are board identification constants, not tunables; they are
// overridable only for board revisions with a different USB identity.
type Config struct {
	VendorID  uint16
	ProductID uint16
	Endpoint  int
	Timeout   time.Duration
}

// DefaultConfig returns the identity of the stock CH341A relay board.
func DefaultConfig() Config {
	return Config{
		VendorID:  0x1a86,
		ProductID: 0x5512,
		Endpoint:  2,
		Timeout:   100 * time.Millisecond,
	}
}

// Session is an open, claimed connection to exactly one relay board.
// It is owned by a single goroutine; methods are not safe for
// concurrent use. A failed push closes the session; it cannot be
// reused afterwards.
type Session struct {
	cfg Config
	log logrus.FieldLogger

	usb     *gousb.Context
	dev     *gousb.Device
	release func()
	out     *gousb.OutEndpoint

	written relay.Mask
	closed  bool
}

// Open locates the board by its vendor/product identity, detaches any
// kernel driver holding interface 0, claims it and resolves the OUT
// endpoint. Every failure releases the resources acquired so far and
// wraps ErrUnavailable.
func Open(cfg Config, log logrus.FieldLogger) (*Session, error) {
	usb := gousb.NewContext()

	dev, err := usb.OpenDeviceWithVIDPID(gousb.ID(cfg.VendorID), gousb.ID(cfg.ProductID))
	if err != nil {
		usb.Close()
		return nil, fmt.Errorf("%w: open %04x:%04x: %v", ErrUnavailable, cfg.VendorID, cfg.ProductID, err)
	}
	if dev == nil {
		usb.Close()
		return nil, fmt.Errorf("%w: no device %04x:%04x on the bus", ErrUnavailable, cfg.VendorID, cfg.ProductID)
	}

	// The CH341A ships bound to the ch341 serial driver; it must be
	// detached before the interface can be claimed.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		usb.Close()
		return nil, fmt.Errorf("%w: detach kernel driver: %v", ErrUnavailable, err)
	}

	intf, release, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		usb.Close()
		return nil, fmt.Errorf("%w: claim interface: %v", ErrUnavailable, err)
	}

	out, err := intf.OutEndpoint(cfg.Endpoint)
	if err != nil {
		release()
		dev.Close()
		usb.Close()
		return nil, fmt.Errorf("%w: endpoint %d: %v", ErrUnavailable, cfg.Endpoint, err)
	}

	log.WithFields(logrus.Fields{
		"device":   fmt.Sprintf("%04x:%04x", cfg.VendorID, cfg.ProductID),
		"endpoint": cfg.Endpoint,
	}).Debug("relay board opened")

	return &Session{
		cfg:     cfg,
		log:     log,
		usb:     usb,
		dev:     dev,
		release: release,
		out:     out,
	}, nil
}

// WriteFrame issues one command frame as a bulk transfer with the
// configured timeout. A short write is an error. At debug level the
// frame is logged byte-by-byte before transmission.
func (s *Session) WriteFrame(frame []byte) error {
	for i, b := range frame {
		s.log.Debugf("frame pos=%02d val=%02x", i, b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	n, err := s.out.WriteContext(ctx, frame)
	if err != nil {
		return fmt.Errorf("bulk transfer: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("bulk transfer short: %d of %d bytes", n, len(frame))
	}
	return nil
}

// Push writes the full handshake for mask to the board. On success the
// mask is recorded as last written. On any frame failure the session is
// closed immediately and ErrWriteFailed is returned; the physical
// outputs are then in an unspecified intermediate state until the next
// successful full push.
func (s *Session) Push(mask relay.Mask) error {
	if err := protocol.Push(s, mask); err != nil {
		s.log.WithError(err).Warn("push failed, discarding session")
		s.Close()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	s.written = mask
	s.log.WithField("mask", mask.String()).Debug("mask pushed")
	return nil
}

// LastWritten returns the mask last confirmed pushed over this session.
func (s *Session) LastWritten() relay.Mask { return s.written }

// Close releases the interface, the device handle and the transport
// context. Safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.release != nil {
		s.release()
	}
	if s.dev != nil {
		s.dev.Close()
	}
	return s.usb.Close()
}

// Compile-time interface satisfaction check.
var _ protocol.Transport = (*Session)(nil)
