package pipe

// Ring is a fixed-capacity circular buffer.
// It is not safe for concurrent use.
type Ring[T any] struct {
	items []T
	head  int
	count int
}

// NewRing creates a ring holding up to capacity items (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Len returns the number of stored items.
func (r *Ring[T]) Len() int {
	return r.count
}

// Free returns the number of items that can be pushed before the ring is full.
func (r *Ring[T]) Free() int {
	return len(r.items) - r.count
}

// Empty reports whether the ring holds no items.
func (r *Ring[T]) Empty() bool {
	return r.count == 0
}

// Full reports whether the ring is at capacity.
func (r *Ring[T]) Full() bool {
	return r.count == len(r.items)
}

// Push appends v. Returns false if the ring is full.
func (r *Ring[T]) Push(v T) bool {
	if r.Full() {
		return false
	}
	r.items[(r.head+r.count)%len(r.items)] = v
	r.count++
	return true
}

// Overwrite appends v, discarding the oldest item if the ring is full.
// Returns true if an item was discarded.
func (r *Ring[T]) Overwrite(v T) bool {
	if !r.Full() {
		r.Push(v)
		return false
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	return true
}

// Write pushes as many items of p as fit and returns how many were stored.
func (r *Ring[T]) Write(p []T) int {
	n := 0
	for _, v := range p {
		if !r.Push(v) {
			break
		}
		n++
	}
	return n
}

// Pop removes and returns the oldest item.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	v := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return v, true
}

// Peek returns the oldest item without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.items[r.head], true
}

// Read pops up to len(p) items into p and returns how many were copied.
func (r *Ring[T]) Read(p []T) int {
	n := 0
	for n < len(p) {
		v, ok := r.Pop()
		if !ok {
			break
		}
		p[n] = v
		n++
	}
	return n
}

// Drain removes and returns every stored item, oldest first.
func (r *Ring[T]) Drain() []T {
	out := make([]T, r.count)
	r.Read(out)
	return out
}

// Reset discards every stored item.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.count = 0
}
