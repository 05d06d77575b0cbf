// Package mailbox implements a fixed-capacity pool of slots with FIFO
// delivery.
//
// A Mailbox is the only channel between goroutines that submit work and the
// single goroutine that services it. Capacity bounds the number of items in
// flight, counting both items waiting in the queue and the item currently
// being processed, so memory never grows with load:
//
//	mb := mailbox.New[*Job](32)
//	if !mb.TryPut(job) {
//	    // Backpressure: every slot is in use
//	}
//
//	// Consumer goroutine
//	for {
//	    if err := mb.Process(ctx, handle); err != nil {
//	        return err
//	    }
//	}
//
// There is no separate allocate or free call. TryPut claims a slot and
// Process releases it after the handler returns, so a slot cannot leak.
package mailbox

import (
	"context"
	"sync"

	"github.com/ardnew/softbus/pkg"
)

// DefaultCapacity is the slot count used when a non-positive capacity is given.
const DefaultCapacity = 32

// Mailbox is a bounded FIFO of T with slot accounting.
type Mailbox[T any] struct {
	mutex    sync.Mutex
	items    []T // ring buffer, len(items) == capacity
	head     int // index of the oldest queued item
	queued   int // items waiting for delivery
	inflight int // queued items plus items being processed
	closed   bool
	notify   chan struct{} // closed and replaced on every state change
}

// New creates a mailbox with the given number of slots.
func New[T any](capacity int) *Mailbox[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Mailbox[T]{items: make([]T, capacity)}
}

// Cap returns the number of slots.
func (m *Mailbox[T]) Cap() int {
	return len(m.items)
}

// Len returns the number of items waiting for delivery.
func (m *Mailbox[T]) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queued
}

// InFlight returns the number of occupied slots.
func (m *Mailbox[T]) InFlight() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.inflight
}

// Full reports whether every slot is occupied.
func (m *Mailbox[T]) Full() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.inflight >= len(m.items)
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closed
}

// TryPut enqueues v if a slot is free. It never blocks.
// Returns false when the mailbox is full or closed.
func (m *Mailbox[T]) TryPut(v T) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed || m.inflight >= len(m.items) {
		return false
	}
	m.items[(m.head+m.queued)%len(m.items)] = v
	m.queued++
	m.inflight++
	m.wakeLocked()
	return true
}

// Get removes the oldest item and frees its slot, blocking until an item is
// available. Returns [pkg.ErrClosed] once the mailbox is closed and empty.
func (m *Mailbox[T]) Get(ctx context.Context) (T, error) {
	v, err := m.take(ctx)
	if err != nil {
		return v, err
	}
	m.release()
	return v, nil
}

// TryGet removes the oldest item and frees its slot without blocking.
func (m *Mailbox[T]) TryGet() (T, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.queued == 0 {
		var zero T
		return zero, false
	}
	v := m.popLocked()
	m.inflight--
	m.wakeLocked()
	return v, true
}

// Process removes the oldest item, blocking until one is available, and calls
// fn with it. The item's slot stays occupied until fn returns.
// Returns [pkg.ErrClosed] once the mailbox is closed and empty.
func (m *Mailbox[T]) Process(ctx context.Context, fn func(T)) error {
	v, err := m.take(ctx)
	if err != nil {
		return err
	}
	defer m.release()
	fn(v)
	return nil
}

// Drain removes every queued item and frees their slots.
// Items currently being processed are not affected.
func (m *Mailbox[T]) Drain() []T {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([]T, 0, m.queued)
	for m.queued > 0 {
		out = append(out, m.popLocked())
		m.inflight--
	}
	m.wakeLocked()
	return out
}

// Close stops accepting new items. Queued items remain deliverable.
func (m *Mailbox[T]) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	m.wakeLocked()
}

// take blocks until an item is queued and dequeues it without freeing its slot.
func (m *Mailbox[T]) take(ctx context.Context) (T, error) {
	var zero T
	for {
		m.mutex.Lock()
		if m.queued > 0 {
			v := m.popLocked()
			m.mutex.Unlock()
			return v, nil
		}
		if m.closed {
			m.mutex.Unlock()
			return zero, pkg.ErrClosed
		}
		if m.notify == nil {
			m.notify = make(chan struct{})
		}
		ch := m.notify
		m.mutex.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ch:
		}
	}
}

// release frees one slot.
func (m *Mailbox[T]) release() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.inflight--
	m.wakeLocked()
}

// popLocked dequeues the oldest item. The caller holds the mutex.
func (m *Mailbox[T]) popLocked() T {
	var zero T
	v := m.items[m.head]
	m.items[m.head] = zero
	m.head = (m.head + 1) % len(m.items)
	m.queued--
	return v
}

// wakeLocked wakes every goroutine blocked in take. The caller holds the mutex.
func (m *Mailbox[T]) wakeLocked() {
	if m.notify != nil {
		close(m.notify)
		m.notify = nil
	}
}
