package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardnew/softbus/pkg"
)

// Kind describes the direction mix of a Request.
type Kind uint8

// Request kinds.
const (
	KindEmpty        Kind = iota // Nothing to transfer
	KindWrite                    // Write phase only
	KindRead                     // Read phase only
	KindWriteThenRead            // Write phase immediately followed by read phase
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindRead:
		return "read"
	case KindWriteThenRead:
		return "write-then-read"
	default:
		return "empty"
	}
}

// Request describes one transfer. Write is transmitted first, then Read is
// filled, with no bus release in between. The caller owns both buffers and
// must not touch them until the matching Response completes.
type Request struct {
	Write []byte
	Read  []byte
}

// NewRequest creates a request from a write and a read buffer.
// Either may be nil.
func NewRequest(write, read []byte) *Request {
	return &Request{Write: write, Read: read}
}

// Kind returns the direction mix implied by the buffer lengths.
func (r *Request) Kind() Kind {
	switch {
	case len(r.Write) > 0 && len(r.Read) > 0:
		return KindWriteThenRead
	case len(r.Write) > 0:
		return KindWrite
	case len(r.Read) > 0:
		return KindRead
	default:
		return KindEmpty
	}
}

// State is the lifecycle position of a transaction.
type State int32

// Transaction states.
const (
	StateQueued     State = iota // Waiting in the mailbox
	StateInProgress              // Being transferred by the worker
	StateCompleted               // Response fields are final
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInProgress:
		return "in-progress"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Response is the completion handle of a dispatched Request.
// It is shared between the submitting goroutine, which waits on it, and the
// dispatcher worker, which completes it.
type Response struct {
	mutex    sync.Mutex
	state    State
	status   pkg.TransferStatus
	written  int
	read     int
	err      error
	done     chan struct{}
	callback func(*Response)
}

// NewResponse creates a response in the queued state.
func NewResponse() *Response {
	return &Response{done: make(chan struct{})}
}

// OnComplete registers a callback run by the completing goroutine.
// If the response is already complete the callback runs immediately.
func (r *Response) OnComplete(cb func(*Response)) {
	r.mutex.Lock()
	if r.state != StateCompleted {
		r.callback = cb
		r.mutex.Unlock()
		return
	}
	r.mutex.Unlock()
	cb(r)
}

// Start marks the response as in progress.
func (r *Response) Start() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.state == StateQueued {
		r.state = StateInProgress
	}
}

// Complete records the outcome and wakes every waiter.
// Only the first call has any effect; it reports whether this call completed
// the response.
func (r *Response) Complete(status pkg.TransferStatus, written, read int, err error) bool {
	r.mutex.Lock()
	if r.state == StateCompleted {
		r.mutex.Unlock()
		return false
	}
	r.state = StateCompleted
	r.status = status
	r.written = written
	r.read = read
	if err == nil {
		err = status.Error()
	}
	r.err = err
	cb := r.callback
	close(r.done)
	r.mutex.Unlock()

	if cb != nil {
		cb(r)
	}
	return true
}

// Done is closed when the response completes.
func (r *Response) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the response completes or ctx is done.
// It returns ctx.Err() if the context ends first; otherwise the transfer
// error, which is nil on success.
func (r *Response) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (r *Response) State() State {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state
}

// IsCompleted returns true once Complete has been called.
func (r *Response) IsCompleted() bool {
	return r.State() == StateCompleted
}

// Status returns the completion status.
// Only meaningful after completion.
func (r *Response) Status() pkg.TransferStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.status
}

// BytesWritten returns the number of bytes transmitted.
// Only meaningful after completion.
func (r *Response) BytesWritten() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.written
}

// BytesRead returns the number of bytes received.
// Only meaningful after completion.
func (r *Response) BytesRead() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.read
}

// Err returns the transfer error, nil on success.
func (r *Response) Err() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.err
}

// Check returns the transfer error of a completed response. A successful
// transfer that moved fewer bytes than req asked for yields
// [pkg.ErrShortTransfer] wrapped with the counts.
func (r *Response) Check(req *Request) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.err != nil {
		return r.err
	}
	if r.written < len(req.Write) || r.read < len(req.Read) {
		return fmt.Errorf("%d/%d written, %d/%d read: %w",
			r.written, len(req.Write), r.read, len(req.Read), pkg.ErrShortTransfer)
	}
	return nil
}

// Transaction pairs a Request with its Response and the resource-specific
// configuration it must be transferred with. It occupies one mailbox slot
// from dispatch until the worker has finished with it.
type Transaction[C any] struct {
	Request  *Request
	Response *Response
	Config   C
}

// Complete completes the transaction's response.
func (t *Transaction[C]) Complete(status pkg.TransferStatus, written, read int, err error) {
	t.Response.Complete(status, written, read, err)
}
