package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardnew/softbus/event"
	"github.com/ardnew/softbus/pkg"
)

// Task is the body run by a [Runner].
type Task interface {
	// Setup is called once on the task goroutine before the first Loop.
	Setup(ctx context.Context) error

	// Loop is called repeatedly until the runner stops.
	// Returning pkg.ErrStopLoop ends the task without error.
	Loop(ctx context.Context) error
}

// Func adapts a loop function with no setup to the [Task] interface.
type Func func(ctx context.Context) error

// Setup does nothing.
func (f Func) Setup(context.Context) error { return nil }

// Loop calls f.
func (f Func) Loop(ctx context.Context) error { return f(ctx) }

// Option configures a Runner.
type Option func(*Runner)

// WithStartFlags delays the first Loop until every bit of mask is set in flags.
func WithStartFlags(flags *event.Flags, mask uint32) Option {
	return func(r *Runner) {
		r.startFlags = flags
		r.startMask = mask
	}
}

// WithStopFlags ends the task after a Loop iteration when every bit of mask
// is set in flags. The bits are cleared on exit.
func WithStopFlags(flags *event.Flags, mask uint32) Option {
	return func(r *Runner) {
		r.stopFlags = flags
		r.stopMask = mask
	}
}

// WithLoopDelay inserts a pause between Loop iterations.
func WithLoopDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.loopDelay = d
	}
}

// Runner owns the goroutine executing a Task.
type Runner struct {
	name string
	task Task

	startFlags *event.Flags
	startMask  uint32
	stopFlags  *event.Flags
	stopMask   uint32
	loopDelay  time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	started chan struct{}
	done    chan struct{}

	mutex sync.Mutex
	err   error
}

// Start spawns a goroutine running t and returns immediately.
func Start(ctx context.Context, name string, t Task, opts ...Option) *Runner {
	r := &Runner{
		name:    name,
		task:    t,
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	go r.run()
	return r
}

// Name returns the task name.
func (r *Runner) Name() string {
	return r.name
}

// Started is closed once setup has completed and the loop is about to run.
// It is never closed if setup fails or the runner stops first.
func (r *Runner) Started() <-chan struct{} {
	return r.started
}

// Done is closed when the task goroutine has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// WaitStarted blocks until the loop is running.
// If the task exits first, its error (or [pkg.ErrNotRunning]) is returned.
func (r *Runner) WaitStarted(ctx context.Context) error {
	select {
	case <-r.started:
		return nil
	case <-r.done:
		if err := r.Err(); err != nil {
			return err
		}
		return pkg.ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the task, waits for it to exit and returns its error.
func (r *Runner) Stop() error {
	r.cancel()
	<-r.done
	return r.Err()
}

// Wait blocks until the task exits and returns its error.
func (r *Runner) Wait() error {
	<-r.done
	return r.Err()
}

// Err returns the error that ended the task, if any.
func (r *Runner) Err() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.err
}

func (r *Runner) setErr(err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.err = err
}

// run is the task goroutine.
func (r *Runner) run() {
	defer close(r.done)
	defer r.cancel()

	if err := r.task.Setup(r.ctx); err != nil {
		pkg.LogWarn(pkg.ComponentTask, "task setup failed",
			"task", r.name,
			"error", err)
		r.setErr(err)
		return
	}

	if r.startFlags != nil && r.startMask != 0 {
		if _, err := r.startFlags.Wait(r.ctx, r.startMask, event.WaitAll, false); err != nil {
			return
		}
	}

	close(r.started)
	pkg.LogDebug(pkg.ComponentTask, "task started", "task", r.name)

	for {
		if r.ctx.Err() != nil {
			break
		}

		if err := r.task.Loop(r.ctx); err != nil {
			if errors.Is(err, pkg.ErrStopLoop) || r.ctx.Err() != nil {
				break
			}
			pkg.LogWarn(pkg.ComponentTask, "task loop failed",
				"task", r.name,
				"error", err)
			r.setErr(err)
			return
		}

		if r.stopFlags != nil && r.stopMask != 0 &&
			r.stopFlags.Get()&r.stopMask == r.stopMask {
			r.stopFlags.Clear(r.stopMask)
			break
		}

		if r.loopDelay > 0 {
			select {
			case <-r.ctx.Done():
			case <-time.After(r.loopDelay):
			}
		}
	}

	pkg.LogDebug(pkg.ComponentTask, "task stopped", "task", r.name)
}
