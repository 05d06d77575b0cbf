package wire

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/softbus/bus"
	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
)

// Polling interval bounds for the receive wait.
const (
	minPoll = 10 * time.Microsecond
	maxPoll = time.Millisecond
)

// Controller is the dispatcher owner of one two-wire bus.
type Controller = bus.Controller[Config]

// NewController creates a controller for the two-wire peripheral h.
func NewController(ctx context.Context, name string, h hal.Wire, opts ...bus.Option) *Controller {
	return bus.NewController[Config](ctx, name, NewStrategy(h), opts...)
}

// Strategy transfers two-wire transactions on one peripheral.
type Strategy struct {
	hal hal.Wire
}

// NewStrategy creates a strategy driving h.
func NewStrategy(h hal.Wire) *Strategy {
	return &Strategy{hal: h}
}

// Open enables the peripheral.
func (s *Strategy) Open() error {
	if err := s.hal.Begin(); err != nil {
		return fmt.Errorf("wire: begin: %w", err)
	}
	return nil
}

// Close disables the peripheral.
func (s *Strategy) Close() error {
	if err := s.hal.End(); err != nil {
		return fmt.Errorf("wire: end: %w", err)
	}
	return nil
}

// Transfer runs one transaction and completes its response.
func (s *Strategy) Transfer(ctx context.Context, tx *bus.Transaction[Config]) {
	cfg := &tx.Config
	req := tx.Request

	written := 0
	if len(req.Write) > 0 {
		s.hal.BeginTransmission(cfg.Address)
		for _, b := range req.Write {
			if err := s.hal.Write(b); err != nil {
				s.fail(tx, written, 0, err)
				return
			}
			written++
		}

		stop := !(cfg.Restart && len(req.Read) > 0)
		if err := s.hal.EndTransmission(stop); err != nil {
			s.fail(tx, written, 0, err)
			return
		}
	}

	read := 0
	if len(req.Read) > 0 {
		if _, err := s.hal.RequestFrom(cfg.Address, len(req.Read), cfg.Stop); err != nil {
			s.fail(tx, written, 0, err)
			return
		}

		waitErr := s.awaitAvailable(ctx, len(req.Read), cfg.Timeout)

		for read < len(req.Read) && s.hal.Available() > 0 {
			b, err := s.hal.ReadByte()
			if err != nil {
				s.fail(tx, written, read, err)
				return
			}
			req.Read[read] = b
			read++
		}

		if waitErr != nil {
			s.fail(tx, written, read, waitErr)
			return
		}
	}

	tx.Complete(pkg.TransferStatusSuccess, written, read, nil)
}

// awaitAvailable polls until n bytes are available, the timeout elapses or
// ctx ends.
func (s *Strategy) awaitAvailable(ctx context.Context, n int, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)

	poll := minPoll
	for s.hal.Available() < n {
		if ctx.Err() != nil {
			return pkg.ErrCancelled
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d of %d bytes after %v: %w",
				s.hal.Available(), n, timeout, pkg.ErrTimeout)
		}
		time.Sleep(poll)
		if poll < maxPoll {
			poll *= 2
		}
	}
	return nil
}

func (s *Strategy) fail(tx *bus.Transaction[Config], written, read int, err error) {
	status := pkg.StatusOf(err)
	pkg.LogDebug(pkg.ComponentWire, "transfer failed",
		"address", tx.Config.Address,
		"status", status.String(),
		"written", written,
		"read", read,
		"error", err)
	tx.Complete(status, written, read, fmt.Errorf("wire: address 0x%02x: %w", tx.Config.Address, err))
}
