// Package task runs a setup-then-loop body on its own goroutine.
//
// A [Task] is any type with Setup and Loop methods. [Start] spawns a
// goroutine that calls Setup once, optionally waits for a group of start
// flags, then calls Loop repeatedly until the context is cancelled, the task
// returns [pkg.ErrStopLoop], or a group of stop flags is raised:
//
//	flags := event.New()
//	r := task.Start(ctx, "sampler", sampler,
//	    task.WithStartFlags(flags, 0x01),
//	    task.WithLoopDelay(10*time.Millisecond))
//
//	// Release every task gated on bit 0 at the same time.
//	flags.Set(0x01)
//
//	defer r.Stop()
//
// [Runner.Started] is a one-shot barrier closed when the goroutine has
// finished setup and is about to enter its loop. Components that must not
// accept work before their worker is running (the bus dispatcher, the serial
// writer) block on it with [Runner.WaitStarted].
package task
