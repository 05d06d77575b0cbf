// Package bus implements the request/response dispatch core shared by every
// bus type.
//
// A [Dispatcher] owns one worker goroutine and one bounded
// [mailbox.Mailbox] of transactions. Only the worker ever touches the
// physical resource, through a [Strategy] chosen at construction time. Any
// goroutine may submit a [Request]; it receives a [Response] to wait on and
// is never blocked by other callers' transfers:
//
//	d := bus.NewDispatcher("spi0", strategy, bus.WithCapacity(32))
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//	defer d.Stop()
//
//	rsp, err := d.Dispatch(bus.NewRequest(cmd, reply), cfg)
//	if errors.Is(err, pkg.ErrMailboxFull) {
//	    // Backpressure: not submitted, retry later
//	}
//	if err := rsp.Wait(ctx); err != nil {
//	    // Transfer failed or ctx expired
//	}
//
// # Ordering
//
// Transactions admitted by one dispatcher are transferred strictly in the
// order Dispatch accepted them. A call rejected with [pkg.ErrMailboxFull]
// has no place in that order.
//
// # Lifecycle
//
// Each transaction moves through [StateQueued], [StateInProgress] and
// [StateCompleted]. There is no retry state: a failed transfer still
// completes, with partial byte counts and a non-success status.
//
// Stop applies the dispatcher's [ShutdownPolicy]: [ShutdownDrain] (the
// default) transfers everything still queued, [ShutdownAbort] completes it
// with [pkg.TransferStatusCancelled]. Either way every Response completes.
//
// A [Controller] wraps a dispatcher as an explicit, lazily started context
// object so devices sharing a bus share one worker without global state.
package bus
