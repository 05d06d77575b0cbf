package pipe

import (
	"context"
	"sync"
)

// Discipline selects how a Sink stores values and when Inject blocks.
type Discipline uint8

// Sink disciplines.
const (
	Latest  Discipline = iota // Overwrite a single value, never block
	Handoff                   // Single slot, block until the value is taken
	Queue                     // Bounded FIFO, block while full
)

// String returns a human-readable discipline name.
func (d Discipline) String() string {
	switch d {
	case Latest:
		return "latest"
	case Handoff:
		return "handoff"
	case Queue:
		return "queue"
	default:
		return "unknown"
	}
}

// Sink is the consumer end of a Source.
type Sink[T any] struct {
	discipline Discipline

	mutex   sync.Mutex
	value   T // Latest
	set     bool
	ring    *Ring[T] // Handoff and Queue
	put     uint64
	taken   uint64
	next    *Sink[T]
	changed chan struct{} // closed and replaced on every state change
}

// NewLatestSink creates a sink that keeps only the newest value.
func NewLatestSink[T any]() *Sink[T] {
	return &Sink[T]{discipline: Latest}
}

// NewHandoffSink creates a sink whose Inject waits for a consumer to take
// each value.
func NewHandoffSink[T any]() *Sink[T] {
	return &Sink[T]{discipline: Handoff, ring: NewRing[T](1)}
}

// NewQueueSink creates a sink buffering up to depth values.
func NewQueueSink[T any](depth int) *Sink[T] {
	return &Sink[T]{discipline: Queue, ring: NewRing[T](depth)}
}

// Discipline returns the sink's discipline.
func (s *Sink[T]) Discipline() Discipline {
	return s.discipline
}

// RegisterWith connects the sink to src.
func (s *Sink[T]) RegisterWith(src *Source[T]) {
	src.Connect(s)
}

// ConnectTo forwards every value stored in s to next and returns next.
func (s *Sink[T]) ConnectTo(next *Sink[T]) *Sink[T] {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.next = next
	return next
}

// Inject stores v according to the discipline, then forwards it to the
// chained sink, if any. It returns ctx.Err() if ctx ends while blocked.
func (s *Sink[T]) Inject(ctx context.Context, v T) error {
	s.mutex.Lock()

	switch s.discipline {
	case Latest:
		s.value = v
		s.set = true

	default:
		for s.ring.Full() {
			if err := s.waitLocked(ctx); err != nil {
				s.mutex.Unlock()
				return err
			}
		}
		s.ring.Push(v)
		s.put++

		if s.discipline == Handoff {
			seq := s.put
			s.wakeLocked()
			for s.taken < seq {
				if err := s.waitLocked(ctx); err != nil {
					s.mutex.Unlock()
					return err
				}
			}
		}
	}

	s.wakeLocked()
	next := s.next
	s.mutex.Unlock()

	if next != nil {
		return next.Inject(ctx, v)
	}
	return nil
}

// Pop returns the next value, blocking until one is available or ctx ends.
// A latest sink returns its value without consuming it and blocks only
// until the first value arrives.
func (s *Sink[T]) Pop(ctx context.Context) (T, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for {
		if v, ok := s.tryPopLocked(); ok {
			return v, nil
		}
		if err := s.waitLocked(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
}

// TryPop returns the next value without blocking.
func (s *Sink[T]) TryPop() (T, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.tryPopLocked()
}

// Len returns the number of values available to Pop.
func (s *Sink[T]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.discipline == Latest {
		if s.set {
			return 1
		}
		return 0
	}
	return s.ring.Len()
}

func (s *Sink[T]) tryPopLocked() (T, bool) {
	if s.discipline == Latest {
		return s.value, s.set
	}
	v, ok := s.ring.Pop()
	if ok {
		s.taken++
		s.wakeLocked()
	}
	return v, ok
}

// waitLocked releases the mutex until the next state change or ctx ends.
// The caller holds the mutex; it is held again on return.
func (s *Sink[T]) waitLocked(ctx context.Context) error {
	if s.changed == nil {
		s.changed = make(chan struct{})
	}
	ch := s.changed
	s.mutex.Unlock()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-ch:
	}
	s.mutex.Lock()
	return err
}

func (s *Sink[T]) wakeLocked() {
	if s.changed != nil {
		close(s.changed)
		s.changed = nil
	}
}
