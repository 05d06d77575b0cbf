package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/softbus/mailbox"
	"github.com/ardnew/softbus/pkg"
	"github.com/ardnew/softbus/task"
)

// DefaultCapacity is the default number of transaction slots per dispatcher.
const DefaultCapacity = 32

// Strategy performs transfers on one physical resource.
// All methods are called from the dispatcher's worker goroutine only, so an
// implementation needs no locking of its own.
type Strategy[C any] interface {
	// Open prepares the resource. Called once before the first transfer.
	Open() error

	// Transfer executes tx and must complete tx.Response.
	Transfer(ctx context.Context, tx *Transaction[C])

	// Close releases the resource. Called once after the last transfer.
	Close() error
}

// ShutdownPolicy selects what Stop does with transactions still queued.
type ShutdownPolicy uint8

// Shutdown policies.
const (
	// ShutdownDrain transfers every queued transaction before stopping.
	ShutdownDrain ShutdownPolicy = iota

	// ShutdownAbort completes queued transactions with TransferStatusCancelled
	// without touching the resource. The transaction in progress finishes.
	ShutdownAbort
)

// String returns a human-readable policy name.
func (p ShutdownPolicy) String() string {
	switch p {
	case ShutdownDrain:
		return "drain"
	case ShutdownAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Stats holds dispatcher counters.
type Stats struct {
	Dispatched uint64 // Transactions accepted into the mailbox
	Completed  uint64 // Transactions completed by the worker
	Rejected   uint64 // Dispatch calls refused with ErrMailboxFull
	Cancelled  uint64 // Transactions cancelled at shutdown
}

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	capacity int
	policy   ShutdownPolicy
}

// WithCapacity sets the number of transaction slots.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithShutdownPolicy sets the policy applied to queued transactions by Stop.
func WithShutdownPolicy(p ShutdownPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// Dispatcher serializes every transfer to one resource onto a single worker
// goroutine. Any number of goroutines may call Dispatch concurrently; each
// gets a Response to wait on for its own transaction only.
type Dispatcher[C any] struct {
	id       uuid.UUID
	name     string
	strategy Strategy[C]
	opts     options

	// State
	running bool
	mutex   sync.RWMutex
	mailbox *mailbox.Mailbox[*Transaction[C]]
	runner  *task.Runner
	reaped  chan struct{} // closed once the worker has exited and the mailbox is emptied

	dispatched atomic.Uint64
	completed  atomic.Uint64
	rejected   atomic.Uint64
	cancelled  atomic.Uint64
}

// NewDispatcher creates a stopped dispatcher for the given strategy.
func NewDispatcher[C any](name string, s Strategy[C], opts ...Option) *Dispatcher[C] {
	o := options{capacity: DefaultCapacity, policy: ShutdownDrain}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity <= 0 {
		o.capacity = DefaultCapacity
	}
	return &Dispatcher[C]{
		id:       uuid.New(),
		name:     name,
		strategy: s,
		opts:     o,
	}
}

// ID returns the dispatcher's unique identity.
func (d *Dispatcher[C]) ID() uuid.UUID {
	return d.id
}

// Name returns the dispatcher name.
func (d *Dispatcher[C]) Name() string {
	return d.name
}

// Capacity returns the number of transaction slots.
func (d *Dispatcher[C]) Capacity() int {
	return d.opts.capacity
}

// Start opens the resource on a new worker goroutine and returns once the
// worker is running.
func (d *Dispatcher[C]) Start(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.running {
		return pkg.ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: start: %w", d.name, err)
	}

	mb := mailbox.New[*Transaction[C]](d.opts.capacity)
	runner := task.Start(ctx, d.name, &worker[C]{d: d, mailbox: mb})
	if err := runner.WaitStarted(ctx); err != nil {
		runner.Stop()
		select {
		case <-runner.Started():
			d.strategy.Close()
		default:
		}
		return fmt.Errorf("%s: start: %w", d.name, err)
	}

	reaped := make(chan struct{})
	go d.reap(runner, mb, reaped)

	d.mailbox = mb
	d.runner = runner
	d.reaped = reaped
	d.running = true

	pkg.LogDebug(pkg.ComponentDispatcher, "dispatcher started",
		"name", d.name,
		"id", d.id,
		"capacity", d.opts.capacity)
	return nil
}

// IsRunning returns true if the dispatcher accepts transactions. It turns
// false once Stop is called or the worker exits with its context.
func (d *Dispatcher[C]) IsRunning() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.aliveLocked()
}

func (d *Dispatcher[C]) aliveLocked() bool {
	if !d.running {
		return false
	}
	select {
	case <-d.runner.Done():
		return false
	default:
		return true
	}
}

// Dispatch queues req for transfer with cfg and returns its Response without
// waiting. It returns [pkg.ErrMailboxFull] when every slot is in flight: the
// request was not submitted and the caller decides whether to retry.
func (d *Dispatcher[C]) Dispatch(req *Request, cfg C) (*Response, error) {
	if req == nil {
		return nil, pkg.ErrInvalidParameter
	}

	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if !d.aliveLocked() {
		return nil, pkg.ErrNotRunning
	}

	tx := &Transaction[C]{
		Request:  req,
		Response: NewResponse(),
		Config:   cfg,
	}
	if !d.mailbox.TryPut(tx) {
		if d.mailbox.Closed() {
			return nil, pkg.ErrNotRunning
		}
		d.rejected.Add(1)
		return nil, pkg.ErrMailboxFull
	}
	d.dispatched.Add(1)
	return tx.Response, nil
}

// Stop stops accepting transactions, applies the shutdown policy to queued
// ones, waits for the worker to exit and closes the resource.
// No transaction is left incomplete.
func (d *Dispatcher[C]) Stop() error {
	d.mutex.Lock()
	if !d.running {
		d.mutex.Unlock()
		return nil
	}
	d.running = false
	mb := d.mailbox
	runner := d.runner
	reaped := d.reaped
	d.mutex.Unlock()

	if d.opts.policy == ShutdownAbort {
		d.cancelAll(mb.Drain())
	}
	mb.Close()

	var result *multierror.Error
	if err := runner.Wait(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: worker: %w", d.name, err))
	}

	<-reaped

	if err := d.strategy.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: close: %w", d.name, err))
	}

	pkg.LogDebug(pkg.ComponentDispatcher, "dispatcher stopped",
		"name", d.name,
		"id", d.id,
		"policy", d.opts.policy.String(),
		"completed", d.completed.Load(),
		"cancelled", d.cancelled.Load())
	return result.ErrorOrNil()
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher[C]) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Completed:  d.completed.Load(),
		Rejected:   d.rejected.Load(),
		Cancelled:  d.cancelled.Load(),
	}
}

// reap waits for the worker to exit, for whatever reason, and cancels every
// transaction it left queued. New transactions are refused from then on.
func (d *Dispatcher[C]) reap(runner *task.Runner, mb *mailbox.Mailbox[*Transaction[C]], reaped chan struct{}) {
	defer close(reaped)
	<-runner.Done()

	mb.Close()
	if txs := mb.Drain(); len(txs) > 0 {
		pkg.LogDebug(pkg.ComponentDispatcher, "worker exited, cancelling queued transactions",
			"name", d.name,
			"id", d.id,
			"queued", len(txs))
		d.cancelAll(txs)
	}
}

// cancelAll completes transactions that will never be transferred.
func (d *Dispatcher[C]) cancelAll(txs []*Transaction[C]) {
	for _, tx := range txs {
		tx.Complete(pkg.TransferStatusCancelled, 0, 0, pkg.ErrCancelled)
		d.cancelled.Add(1)
	}
}

// process transfers one transaction. Runs on the worker goroutine.
func (d *Dispatcher[C]) process(ctx context.Context, tx *Transaction[C]) {
	tx.Response.Start()
	d.strategy.Transfer(ctx, tx)

	if !tx.Response.IsCompleted() {
		pkg.LogWarn(pkg.ComponentDispatcher, "strategy left transaction incomplete",
			"name", d.name)
		tx.Complete(pkg.TransferStatusError, 0, 0, fmt.Errorf("%s: %w", d.name, pkg.ErrBus))
	}
	d.completed.Add(1)
}

// worker is the dispatcher's task body.
type worker[C any] struct {
	d       *Dispatcher[C]
	mailbox *mailbox.Mailbox[*Transaction[C]]
}

func (w *worker[C]) Setup(context.Context) error {
	return w.d.strategy.Open()
}

func (w *worker[C]) Loop(ctx context.Context) error {
	err := w.mailbox.Process(ctx, func(tx *Transaction[C]) {
		w.d.process(ctx, tx)
	})
	if err == pkg.ErrClosed {
		return pkg.ErrStopLoop
	}
	return err
}
