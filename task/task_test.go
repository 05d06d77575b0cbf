package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/softbus/event"
	"github.com/ardnew/softbus/pkg"
)

// countingTask records how often each method ran.
type countingTask struct {
	setups   atomic.Int32
	loops    atomic.Int32
	setupErr error
	stopAt   int32
}

func (c *countingTask) Setup(context.Context) error {
	c.setups.Add(1)
	return c.setupErr
}

func (c *countingTask) Loop(context.Context) error {
	n := c.loops.Add(1)
	if c.stopAt > 0 && n >= c.stopAt {
		return pkg.ErrStopLoop
	}
	return nil
}

func TestRunnerSetupThenLoop(t *testing.T) {
	ct := &countingTask{stopAt: 5}
	r := Start(context.Background(), "count", ct)

	if err := r.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := ct.setups.Load(); got != 1 {
		t.Errorf("Setup called %d times, want 1", got)
	}
	if got := ct.loops.Load(); got != 5 {
		t.Errorf("Loop called %d times, want 5", got)
	}
	select {
	case <-r.Started():
	default:
		t.Error("Started() should be closed after the loop ran")
	}
}

func TestRunnerSetupError(t *testing.T) {
	setupErr := errors.New("no bus")
	ct := &countingTask{setupErr: setupErr}
	r := Start(context.Background(), "broken", ct)

	if err := r.WaitStarted(context.Background()); !errors.Is(err, setupErr) {
		t.Errorf("WaitStarted() error = %v, want %v", err, setupErr)
	}
	if ct.loops.Load() != 0 {
		t.Error("Loop must not run when Setup fails")
	}
}

func TestRunnerLoopError(t *testing.T) {
	loopErr := errors.New("transfer failed")
	r := Start(context.Background(), "failing", Func(func(context.Context) error {
		return loopErr
	}))

	if err := r.Wait(); !errors.Is(err, loopErr) {
		t.Errorf("Wait() error = %v, want %v", err, loopErr)
	}
}

func TestRunnerStop(t *testing.T) {
	r := Start(context.Background(), "idle", Func(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	if err := r.WaitStarted(context.Background()); err != nil {
		t.Fatalf("WaitStarted() error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("Stop() error = %v, want nil", err)
	}
}

func TestRunnerStartFlags(t *testing.T) {
	flags := event.New()
	ct := &countingTask{stopAt: 1}
	r := Start(context.Background(), "gated", ct, WithStartFlags(flags, 0x03))

	flags.Set(0x01)
	select {
	case <-r.Started():
		t.Fatal("task started before all start flags were set")
	case <-time.After(20 * time.Millisecond):
	}

	flags.Set(0x02)
	if err := r.WaitStarted(context.Background()); err != nil {
		t.Fatalf("WaitStarted() error = %v", err)
	}
	if err := r.Wait(); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestRunnerStopFlags(t *testing.T) {
	flags := event.New()
	ct := &countingTask{}
	r := Start(context.Background(), "stoppable", ct,
		WithStopFlags(flags, 0x04),
		WithLoopDelay(time.Millisecond))

	if err := r.WaitStarted(context.Background()); err != nil {
		t.Fatalf("WaitStarted() error = %v", err)
	}
	flags.Set(0x04)

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop on stop flags")
	}
	if flags.Get()&0x04 != 0 {
		t.Error("stop flags should be cleared on exit")
	}
}

func TestRunnerName(t *testing.T) {
	r := Start(context.Background(), "named", &countingTask{stopAt: 1})
	defer r.Stop()
	if r.Name() != "named" {
		t.Errorf("Name() = %q, want \"named\"", r.Name())
	}
}
