package pipe

import (
	"context"
	"sync"

	"github.com/ardnew/softbus/pkg"
)

// Source is the producer end of a fan-out channel.
// The zero value is ready to use.
type Source[T any] struct {
	mutex sync.RWMutex
	sinks []*Sink[T]
}

// NewSource creates a source with no sinks.
func NewSource[T any]() *Source[T] {
	return &Source[T]{}
}

// Connect appends sinks to the delivery order.
func (s *Source[T]) Connect(sinks ...*Sink[T]) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sinks = append(s.sinks, sinks...)
	for _, sink := range sinks {
		pkg.LogDebug(pkg.ComponentPipe, "sink connected",
			"discipline", sink.Discipline().String(),
			"sinks", len(s.sinks))
	}
}

// Sinks returns the number of connected sinks.
func (s *Source[T]) Sinks() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sinks)
}

// Push delivers v to every sink in connection order, blocking as long as
// any sink's discipline requires.
func (s *Source[T]) Push(v T) {
	s.PushContext(context.Background(), v)
}

// PushContext delivers v to every sink in connection order. If ctx ends
// while a sink blocks, delivery stops there and ctx.Err() is returned;
// sinks after it do not receive v.
func (s *Source[T]) PushContext(ctx context.Context, v T) error {
	s.mutex.RLock()
	sinks := s.sinks
	s.mutex.RUnlock()

	for _, sink := range sinks {
		if err := sink.Inject(ctx, v); err != nil {
			return err
		}
	}
	return nil
}
