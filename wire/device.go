package wire

import (
	"context"

	"github.com/ardnew/softbus/bus"
)

// Device is one target on a shared two-wire bus.
// Methods are safe for concurrent use.
type Device struct {
	ctrl *Controller
	cfg  Config

	override bool
	stop     bool
}

// NewDevice binds a device configuration to a bus controller.
func NewDevice(ctrl *Controller, cfg Config) *Device {
	return &Device{ctrl: ctrl, cfg: cfg}
}

// WithStop returns a copy of the device whose synchronous calls override the
// configured bus release. Read ends with a stop condition only if stop is
// true; WriteThenRead uses a repeated start between phases only if stop is
// false.
func (d *Device) WithStop(stop bool) *Device {
	c := *d
	c.override = true
	c.stop = stop
	return &c
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

// Read fills buf from the target.
func (d *Device) Read(ctx context.Context, buf []byte) error {
	cfg := d.cfg
	if d.override {
		cfg.Stop = d.stop
	}
	return d.run(ctx, bus.NewRequest(nil, buf), cfg)
}

// Write sends buf to the target.
func (d *Device) Write(ctx context.Context, buf []byte) error {
	return d.run(ctx, bus.NewRequest(buf, nil), d.writeConfig())
}

// WriteThenRead sends w then fills r from the target.
func (d *Device) WriteThenRead(ctx context.Context, w, r []byte) error {
	return d.run(ctx, bus.NewRequest(w, r), d.writeConfig())
}

func (d *Device) writeConfig() Config {
	cfg := d.cfg
	if d.override {
		cfg.Restart = !d.stop
	}
	return cfg
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
