// Package shared provides a latest-value variable shared between goroutines,
// backed by a bounded history of recent values.
//
// Readers that only care about the current value use [Shared.Peek]. Readers
// that must see every value use [Shared.Pop], which returns history
// oldest-first. When producers outrun a history reader the oldest entries are
// discarded and counted by [Shared.Dropped].
package shared

import (
	"context"
	"sync"

	"github.com/ardnew/softbus/pipe"
	"github.com/ardnew/softbus/pkg"
)

// DefaultHistory is the history capacity used when none is set.
const DefaultHistory = 16

// Option configures a Shared.
type Option func(*options)

type options struct {
	history int
}

// WithHistory sets the number of values kept for Pop.
func WithHistory(n int) Option {
	return func(o *options) {
		o.history = n
	}
}

// Shared is a variable published by one or more producers.
// The zero value is not usable; create one with New.
type Shared[T any] struct {
	mutex   sync.Mutex
	latest  T
	set     bool
	history *pipe.Ring[T]
	dropped uint64
	changed chan struct{} // closed and replaced on every Push
}

// New creates a Shared holding the zero value of T.
func New[T any](opts ...Option) *Shared[T] {
	o := options{history: DefaultHistory}
	for _, opt := range opts {
		opt(&o)
	}
	if o.history <= 0 {
		o.history = DefaultHistory
	}
	return &Shared[T]{history: pipe.NewRing[T](o.history)}
}

// Push publishes v as the latest value and appends it to the history,
// discarding the oldest unread entry if the history is full.
func (s *Shared[T]) Push(v T) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.latest = v
	s.set = true
	if s.history.Overwrite(v) {
		s.dropped++
		if s.dropped == 1 {
			pkg.LogDebug(pkg.ComponentShared, "history overflow, discarding oldest",
				"capacity", s.history.Cap())
		}
	}
	if s.changed != nil {
		close(s.changed)
		s.changed = nil
	}
}

// Peek returns the latest value without consuming history.
func (s *Shared[T]) Peek() T {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.latest
}

// Latest returns the latest value and whether any value was ever pushed.
func (s *Shared[T]) Latest() (T, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.latest, s.set
}

// Pop removes and returns the oldest value in the history, blocking until one
// is pushed. If ctx ends first, Pop returns the latest value with ctx.Err().
func (s *Shared[T]) Pop(ctx context.Context) (T, error) {
	s.mutex.Lock()
	for {
		if v, ok := s.history.Pop(); ok {
			s.mutex.Unlock()
			return v, nil
		}
		if s.changed == nil {
			s.changed = make(chan struct{})
		}
		ch := s.changed
		s.mutex.Unlock()

		select {
		case <-ctx.Done():
			s.mutex.Lock()
			v := s.latest
			s.mutex.Unlock()
			return v, ctx.Err()
		case <-ch:
		}
		s.mutex.Lock()
	}
}

// TryPop removes and returns the oldest value in the history without
// blocking. If the history is empty it returns the latest value and false.
func (s *Shared[T]) TryPop() (T, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if v, ok := s.history.Pop(); ok {
		return v, true
	}
	return s.latest, false
}

// Len returns the number of unread history entries.
func (s *Shared[T]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.history.Len()
}

// Dropped returns the number of history entries discarded on overflow.
func (s *Shared[T]) Dropped() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.dropped
}
