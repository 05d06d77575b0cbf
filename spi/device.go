package spi

import (
	"context"

	"github.com/ardnew/softbus/bus"
)

// Device is one chip on a shared SPI bus.
// Methods are safe for concurrent use.
type Device struct {
	ctrl *Controller
	cfg  Config
}

// NewDevice binds a device configuration to a bus controller.
func NewDevice(ctrl *Controller, cfg Config) *Device {
	return &Device{ctrl: ctrl, cfg: cfg}
}

// Config returns the device configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// Transfer dispatches req without waiting. It returns [pkg.ErrMailboxFull]
// when the bus is saturated; the request was not submitted.
func (d *Device) Transfer(req *bus.Request) (*bus.Response, error) {
	return d.ctrl.Dispatch(req, d.cfg)
}

// Read fills buf, shifting out the configured fill symbol.
func (d *Device) Read(ctx context.Context, buf []byte) error {
	return d.run(ctx, bus.NewRequest(nil, buf), d.cfg)
}

// ReadFill fills buf, shifting out fill instead of the configured symbol.
func (d *Device) ReadFill(ctx context.Context, buf []byte, fill byte) error {
	cfg := d.cfg
	cfg.FillSymbol = fill
	return d.run(ctx, bus.NewRequest(nil, buf), cfg)
}

// Write shifts out buf.
func (d *Device) Write(ctx context.Context, buf []byte) error {
	return d.run(ctx, bus.NewRequest(buf, nil), d.cfg)
}

// WriteThenRead shifts out w then fills r in one chip-select frame.
func (d *Device) WriteThenRead(ctx context.Context, w, r []byte) error {
	return d.run(ctx, bus.NewRequest(w, r), d.cfg)
}

// run dispatches req and waits for it. If ctx ends first the transaction
// still runs and the buffers stay in use until it completes.
func (d *Device) run(ctx context.Context, req *bus.Request, cfg Config) error {
	rsp, err := d.ctrl.Dispatch(req, cfg)
	if err != nil {
		return err
	}
	if err := rsp.Wait(ctx); err != nil {
		return err
	}
	return rsp.Check(req)
}
