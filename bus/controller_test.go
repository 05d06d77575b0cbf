package bus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/softbus/pkg"
)

func TestControllerLazyStart(t *testing.T) {
	s := &mockStrategy{}
	c := NewController[int](context.Background(), "spi1", s)
	defer c.Close()

	if c.Stats() != (Stats{}) {
		t.Errorf("Stats() before first use = %+v, want zero", c.Stats())
	}
	if s.opened != 0 {
		t.Fatal("strategy opened before first dispatch")
	}

	rsp, err := c.Dispatch(NewRequest([]byte{1}, nil), 7)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitResponse(t, rsp)

	d1, err := c.Dispatcher()
	if err != nil {
		t.Fatalf("Dispatcher() error = %v", err)
	}
	d2, _ := c.Dispatcher()
	if d1 != d2 {
		t.Error("Dispatcher() returned different instances while running")
	}
	if c.Name() != "spi1" || d1.Name() != "spi1" {
		t.Errorf("names = %q %q, want spi1", c.Name(), d1.Name())
	}
}

func TestControllerConcurrentFirstUse(t *testing.T) {
	s := &mockStrategy{}
	c := NewController[int](context.Background(), "i2c1", s)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rsp, err := c.Dispatch(NewRequest([]byte{byte(i)}, nil), i)
			if err != nil {
				t.Errorf("Dispatch() error = %v", err)
				return
			}
			if err := rsp.Wait(context.Background()); err != nil {
				t.Errorf("Wait() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.opened != 1 {
		t.Errorf("strategy opened %d times, want 1", s.opened)
	}
	if got := len(s.transferred()); got != n {
		t.Errorf("transferred %d, want %d", got, n)
	}
}

func TestControllerRestartAfterClose(t *testing.T) {
	s := &mockStrategy{}
	c := NewController[int](context.Background(), "spi2", s, WithCapacity(2))

	d1, err := c.Dispatcher()
	if err != nil {
		t.Fatalf("Dispatcher() error = %v", err)
	}
	if d1.Capacity() != 2 {
		t.Errorf("Capacity() = %d, want 2", d1.Capacity())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	rsp, err := c.Dispatch(NewRequest([]byte{1}, nil), 0)
	if err != nil {
		t.Fatalf("Dispatch() after Close error = %v", err)
	}
	waitResponse(t, rsp)

	d2, _ := c.Dispatcher()
	if d1 == d2 || d1.ID() == d2.ID() {
		t.Error("expected a fresh dispatcher after Close")
	}
	c.Close()
	if s.opened != 2 || s.closed != 2 {
		t.Errorf("opened=%d closed=%d, want 2 2", s.opened, s.closed)
	}
}

func TestControllerContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &mockStrategy{}
	c := NewController[int](ctx, "spi2", s)
	defer c.Close()

	rsp, err := c.Dispatch(NewRequest([]byte{1}, nil), 1)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitResponse(t, rsp)
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		if _, err = c.Dispatch(NewRequest([]byte{2}, nil), 2); errors.Is(err, pkg.ErrNotRunning) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Dispatch() after cancel error = %v, want ErrNotRunning", err)
		}
		time.Sleep(time.Millisecond)
	}

	_, err = c.Dispatch(NewRequest([]byte{3}, nil), 3)
	if !errors.Is(err, pkg.ErrNotRunning) || !errors.Is(err, context.Canceled) {
		t.Errorf("Dispatch() error = %v, want ErrNotRunning and context.Canceled", err)
	}

	s.mutex.Lock()
	opened, closed := s.opened, s.closed
	s.mutex.Unlock()
	if opened != 1 || closed != 1 {
		t.Errorf("opened = %d, closed = %d, want 1 and 1", opened, closed)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestControllerOpenError(t *testing.T) {
	openErr := errors.New("no device")
	c := NewController[int](context.Background(), "spi3", &mockStrategy{openErr: openErr})

	if _, err := c.Dispatch(NewRequest([]byte{1}, nil), 0); !errors.Is(err, openErr) {
		t.Errorf("Dispatch() error = %v, want %v", err, openErr)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestHubClose(t *testing.T) {
	var order []string
	closer := func(name string, err error) CloserFunc {
		return func() error {
			order = append(order, name)
			return err
		}
	}

	var h Hub
	h.Add("spi", closer("spi", nil))
	h.Add("wire", closer("wire", errors.New("stuck")))
	h.Add("serial", closer("serial", errors.New("busy")))

	err := h.Close()
	if err == nil {
		t.Fatal("Close() error = nil, want combined error")
	}
	for _, want := range []string{"wire: stuck", "serial: busy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Close() error %q missing %q", err, want)
		}
	}
	if got := strings.Join(order, ","); got != "serial,wire,spi" {
		t.Errorf("close order = %s, want serial,wire,spi", got)
	}

	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestHubCloseController(t *testing.T) {
	s := &mockStrategy{}
	c := NewController[int](context.Background(), "spi4", s)
	if _, err := c.Dispatcher(); err != nil {
		t.Fatal(err)
	}

	var h Hub
	h.Add(c.Name(), c)
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if s.closed != 1 {
		t.Errorf("strategy closed %d times, want 1", s.closed)
	}
}
