package bus

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/softbus/pkg"
)

// Controller owns the single dispatcher of one resource.
//
// It is the explicit context object handed to every device on a bus. The
// dispatcher is created and started on first use; creation, dispatch
// admission and Close are serialized by the controller's own mutex, so
// concurrent first-time callers and shutdown are safe.
type Controller[C any] struct {
	ctx      context.Context
	name     string
	strategy Strategy[C]
	opts     []Option

	mutex      sync.Mutex
	dispatcher *Dispatcher[C]
}

// NewController creates a controller. No goroutine is started until the
// first Dispatch. The context bounds the lifetime of dispatchers it starts.
func NewController[C any](ctx context.Context, name string, s Strategy[C], opts ...Option) *Controller[C] {
	return &Controller[C]{
		ctx:      ctx,
		name:     name,
		strategy: s,
		opts:     opts,
	}
}

// Name returns the controller name.
func (c *Controller[C]) Name() string {
	return c.name
}

// Dispatcher returns the running dispatcher, starting it if needed.
func (c *Controller[C]) Dispatcher() (*Dispatcher[C], error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.ensureLocked()
}

// Dispatch queues req on the controller's dispatcher.
// See [Dispatcher.Dispatch].
//
// Dispatch shares the controller mutex with Close, so while Close drains the
// queue Dispatch blocks until the drain and its bus transfers have finished.
// After the controller's context ends Dispatch returns [pkg.ErrNotRunning].
func (c *Controller[C]) Dispatch(req *Request, cfg C) (*Response, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	d, err := c.ensureLocked()
	if err != nil {
		return nil, err
	}
	return d.Dispatch(req, cfg)
}

// Close stops the dispatcher, if one is running. A later Dispatch starts a
// fresh one.
func (c *Controller[C]) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.dispatcher == nil {
		return nil
	}
	err := c.dispatcher.Stop()
	c.dispatcher = nil
	return err
}

// Stats returns the current dispatcher's counters, zero if none is running.
func (c *Controller[C]) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.dispatcher == nil {
		return Stats{}
	}
	return c.dispatcher.Stats()
}

// ensureLocked returns the running dispatcher, starting one if needed. A
// dispatcher whose worker exited with the controller's context is stopped
// first so the resource is released before it is opened again.
func (c *Controller[C]) ensureLocked() (*Dispatcher[C], error) {
	if c.dispatcher != nil {
		if c.dispatcher.IsRunning() {
			return c.dispatcher, nil
		}
		if err := c.dispatcher.Stop(); err != nil {
			pkg.LogWarn(pkg.ComponentDispatcher, "stale dispatcher stop failed",
				"name", c.name,
				"error", err)
		}
		c.dispatcher = nil
	}
	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", c.name, pkg.ErrNotRunning, err)
	}
	d := NewDispatcher(c.name, c.strategy, c.opts...)
	if err := d.Start(c.ctx); err != nil {
		return nil, err
	}
	c.dispatcher = d
	return d, nil
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

// Close calls f.
func (f CloserFunc) Close() error { return f() }

// Hub closes a set of bus components together.
type Hub struct {
	mutex   sync.Mutex
	names   []string
	closers []io.Closer
}

// Add registers a component to be closed by Close.
func (h *Hub) Add(name string, c io.Closer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.names = append(h.names, name)
	h.closers = append(h.closers, c)
}

// Close closes every registered component in reverse registration order and
// returns all failures combined.
func (h *Hub) Close() error {
	h.mutex.Lock()
	names, closers := h.names, h.closers
	h.names, h.closers = nil, nil
	h.mutex.Unlock()

	var result *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", names[i], err))
		}
	}
	return result.ErrorOrNil()
}
