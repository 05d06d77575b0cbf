package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/softbus/pkg"
)

func TestFlagsSetClear(t *testing.T) {
	var f Flags

	if got := f.Set(0x05); got != 0x05 {
		t.Errorf("Set() = %#x, want 0x05", got)
	}
	if got := f.Clear(0x01); got != 0x05 {
		t.Errorf("Clear() = %#x, want previous 0x05", got)
	}
	if got := f.Get(); got != 0x04 {
		t.Errorf("Get() = %#x, want 0x04", got)
	}
	if got := f.Set(0x80000000); got != 0x04 {
		t.Errorf("reserved bit should be ignored, got %#x", got)
	}
}

func TestFlagsWaitAlreadySet(t *testing.T) {
	tests := []struct {
		name    string
		set     uint32
		mask    uint32
		mode    WaitMode
		clear   bool
		want    uint32
		wantRem uint32
	}{
		{"any one bit", 0x03, 0x06, WaitAny, false, 0x02, 0x03},
		{"any with clear", 0x03, 0x06, WaitAny, true, 0x02, 0x01},
		{"all bits", 0x07, 0x06, WaitAll, true, 0x06, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			f.Set(tt.set)
			got, err := f.Wait(context.Background(), tt.mask, tt.mode, tt.clear)
			if err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Wait() = %#x, want %#x", got, tt.want)
			}
			if rem := f.Get(); rem != tt.wantRem {
				t.Errorf("remaining = %#x, want %#x", rem, tt.wantRem)
			}
		})
	}
}

func TestFlagsWaitBlocks(t *testing.T) {
	f := New()
	done := make(chan uint32, 1)

	go func() {
		got, _ := f.Wait(context.Background(), 0x03, WaitAll, true)
		done <- got
	}()

	f.Set(0x01)
	select {
	case <-done:
		t.Fatal("WaitAll returned with only one bit set")
	case <-time.After(20 * time.Millisecond):
	}

	f.Set(0x02)
	select {
	case got := <-done:
		if got != 0x03 {
			t.Errorf("Wait() = %#x, want 0x03", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after all bits set")
	}
}

func TestFlagsWaitContext(t *testing.T) {
	f := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx, 0x01, WaitAny, false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestFlagsWaitInvalidMask(t *testing.T) {
	f := New()
	if _, err := f.Wait(context.Background(), 0, WaitAny, false); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Wait(0) error = %v, want ErrInvalidParameter", err)
	}
}

func TestAllocator(t *testing.T) {
	var a Allocator
	seen := uint32(0)
	for i := 0; i < MaxBits; i++ {
		bit, err := a.Alloc()
		if err != nil {
			t.Fatalf("Alloc() #%d error = %v", i, err)
		}
		if seen&bit != 0 {
			t.Fatalf("bit %#x allocated twice", bit)
		}
		seen |= bit
	}
	if _, err := a.Alloc(); !errors.Is(err, pkg.ErrNoResources) {
		t.Errorf("Alloc() on exhausted allocator error = %v, want ErrNoResources", err)
	}

	a.Release(0x04)
	bit, err := a.Alloc()
	if err != nil || bit != 0x04 {
		t.Errorf("Alloc() after release = %#x, %v; want 0x04", bit, err)
	}
}
