// Package event provides event flags: a 32-bit word of independent signal
// bits that goroutines can set, clear and wait on.
//
// Flags replace the RTOS event-flag groups used for "data available"
// signaling between registrants and the serial writer, and for start/stop
// synchronization between tasks. The zero value is ready to use.
package event

import (
	"context"
	"sync"

	"github.com/ardnew/softbus/pkg"
)

// All is the mask of every usable flag bit. The top bit is reserved.
const All uint32 = 0x7fffffff

// MaxBits is the number of usable flag bits.
const MaxBits = 31

// WaitMode selects how Wait interprets its mask.
type WaitMode uint8

// Wait modes.
const (
	WaitAny WaitMode = iota // Return when any bit in the mask is set
	WaitAll                 // Return when every bit in the mask is set
)

// Flags is a set of event flag bits.
type Flags struct {
	mutex   sync.Mutex
	bits    uint32
	changed chan struct{} // closed and replaced whenever bits are set
}

// New creates an empty flag set.
func New() *Flags {
	return &Flags{}
}

// Set sets the bits in mask and wakes all waiters.
// Returns the flags after setting.
func (f *Flags) Set(mask uint32) uint32 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.bits |= mask & All
	if f.changed != nil {
		close(f.changed)
		f.changed = nil
	}
	return f.bits
}

// Clear clears the bits in mask.
// Returns the flags before clearing.
func (f *Flags) Clear(mask uint32) uint32 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	prev := f.bits
	f.bits &^= mask
	return prev
}

// Get returns the current flags.
func (f *Flags) Get() uint32 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.bits
}

// Wait blocks until the bits in mask satisfy mode or ctx is done.
// It returns the matched bits. When clear is true the matched bits are
// cleared atomically with the return.
func (f *Flags) Wait(ctx context.Context, mask uint32, mode WaitMode, clear bool) (uint32, error) {
	mask &= All
	if mask == 0 {
		return 0, pkg.ErrInvalidParameter
	}

	for {
		f.mutex.Lock()
		got := f.bits & mask
		if (mode == WaitAny && got != 0) || (mode == WaitAll && got == mask) {
			if clear {
				f.bits &^= got
			}
			f.mutex.Unlock()
			return got, nil
		}
		if f.changed == nil {
			f.changed = make(chan struct{})
		}
		ch := f.changed
		f.mutex.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ch:
		}
	}
}

// Allocator hands out unique flag bits, lowest first.
type Allocator struct {
	mutex sync.Mutex
	used  uint32
}

// Alloc reserves a free bit.
// Returns [pkg.ErrNoResources] when all [MaxBits] bits are taken.
func (a *Allocator) Alloc() (uint32, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	for i := 0; i < MaxBits; i++ {
		bit := uint32(1) << i
		if a.used&bit == 0 {
			a.used |= bit
			return bit, nil
		}
	}
	return 0, pkg.ErrNoResources
}

// Release returns a bit to the allocator.
func (a *Allocator) Release(bit uint32) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.used &^= bit
}
