package spi

import (
	"context"
	"fmt"

	"github.com/ardnew/softbus/bus"
	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
)

// Controller is the dispatcher owner of one SPI bus.
type Controller = bus.Controller[Config]

// NewController creates a controller for the SPI peripheral h.
func NewController(ctx context.Context, name string, h hal.SPI, opts ...bus.Option) *Controller {
	return bus.NewController[Config](ctx, name, NewStrategy(h), opts...)
}

// Strategy transfers SPI transactions on one peripheral.
type Strategy struct {
	hal hal.SPI
}

// NewStrategy creates a strategy driving h.
func NewStrategy(h hal.SPI) *Strategy {
	return &Strategy{hal: h}
}

// Open enables the peripheral.
func (s *Strategy) Open() error {
	if err := s.hal.Begin(); err != nil {
		return fmt.Errorf("spi: begin: %w", err)
	}
	return nil
}

// Close disables the peripheral.
func (s *Strategy) Close() error {
	if err := s.hal.End(); err != nil {
		return fmt.Errorf("spi: end: %w", err)
	}
	return nil
}

// Transfer runs one transaction and completes its response.
func (s *Strategy) Transfer(_ context.Context, tx *bus.Transaction[Config]) {
	cfg := &tx.Config
	req := tx.Request

	if cfg.Select != nil {
		cfg.Select()
	}
	defer func() {
		if cfg.Deselect != nil {
			cfg.Deselect()
		}
	}()

	if err := s.hal.BeginTransaction(cfg.Settings); err != nil {
		s.fail(tx, 0, 0, err)
		return
	}

	written, read, err := s.exchange(req, cfg.FillSymbol)
	if endErr := s.hal.EndTransaction(); err == nil {
		err = endErr
	}
	if err != nil {
		s.fail(tx, written, read, err)
		return
	}

	tx.Complete(pkg.TransferStatusSuccess, written, read, nil)
}

// exchange runs the write phase then the read phase. Bytes received while
// writing are discarded so the request's write buffer is never modified.
func (s *Strategy) exchange(req *bus.Request, fill byte) (written, read int, err error) {
	for _, b := range req.Write {
		if _, err = s.hal.Transfer(b); err != nil {
			return written, read, err
		}
		written++
	}
	for i := range req.Read {
		if req.Read[i], err = s.hal.Transfer(fill); err != nil {
			return written, read, err
		}
		read++
	}
	return written, read, nil
}

func (s *Strategy) fail(tx *bus.Transaction[Config], written, read int, err error) {
	pkg.LogDebug(pkg.ComponentSPI, "transfer failed",
		"written", written,
		"read", read,
		"error", err)
	tx.Complete(pkg.TransferStatusError, written, read, fmt.Errorf("spi: %w", err))
}
