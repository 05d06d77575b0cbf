package serial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/softbus/hal/sim"
	"github.com/ardnew/softbus/pkg"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartStop(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw, WithBaud(9600))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if !s.IsRunning() || !hw.IsOpen() || hw.Baud() != 9600 {
		t.Errorf("IsRunning()=%v IsOpen()=%v Baud()=%d", s.IsRunning(), hw.IsOpen(), hw.Baud())
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() || hw.IsOpen() {
		t.Error("line still open after Stop")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestAtomicFraming(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const writers = 4
	const tokens = 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		port, err := s.Register()
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		wg.Add(1)
		go func(id byte, port *Port) {
			defer wg.Done()
			for i := 0; i < tokens; i++ {
				if _, err := fmt.Fprintf(port, "[%c:%02d]", id, i); err != nil {
					t.Errorf("write: %v", err)
				}
			}
		}(byte('a'+w), port)
	}
	wg.Wait()
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	const tokenLen = len("[a:00]")
	next := map[byte]int{}
	for _, msg := range hw.Messages() {
		if len(msg)%tokenLen != 0 {
			t.Fatalf("message %q is not whole tokens", msg)
		}
		id := msg[1]
		for i := 0; i < len(msg); i += tokenLen {
			tok := string(msg[i : i+tokenLen])
			if tok[1] != id {
				t.Fatalf("message %q mixes ports", msg)
			}
			if want := fmt.Sprintf("[%c:%02d]", id, next[id]); tok != want {
				t.Fatalf("token %q, want %q", tok, want)
			}
			next[id]++
		}
	}
	for w := 0; w < writers; w++ {
		if got := next[byte('a'+w)]; got != tokens {
			t.Errorf("port %c transmitted %d tokens, want %d", 'a'+w, got, tokens)
		}
	}
}

func TestPrefixSuffix(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw)
	s.SetGlobalPrefix(func(msg string) string { return "[G]" })
	s.SetGlobalSuffix(func(prefix, msg string) string {
		return fmt.Sprintf("<%s%d>", prefix, len(msg))
	})

	own, _ := s.Register()
	own.SetPrefix(func(msg string) string { return "[1]" })
	global, _ := s.Register()
	plain, _ := s.Register()
	plain.SetPrefix(func(string) string { return "" })
	plain.SetSuffix(func(string, string) string { return "\n" })

	own.WriteString("hi")
	global.WriteString("yo")
	plain.WriteString("ok")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := []string{"[1]hi<[1]2>", "[G]yo<[G]2>", "ok\n"}
	got := hw.Messages()
	if len(got) != len(want) {
		t.Fatalf("Messages() = %q, want %q", got, want)
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBlockUnblock(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	held, _ := s.Register()
	free, _ := s.Register()

	held.Block()
	held.WriteString("held")
	free.WriteString("free")

	waitFor(t, "free output", func() bool {
		return strings.Contains(string(hw.Output()), "free")
	})
	if strings.Contains(string(hw.Output()), "held") {
		t.Fatal("blocked port transmitted")
	}
	if held.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", held.Pending())
	}

	held.Unblock()
	waitFor(t, "held output", func() bool {
		return strings.Contains(string(hw.Output()), "held")
	})
}

func TestOverrun(t *testing.T) {
	s := New(sim.NewSerial(), WithTxBufferSize(4))
	port, _ := s.Register()

	n, err := port.WriteString("abcdef")
	if n != 4 || !errors.Is(err, pkg.ErrOverrun) {
		t.Errorf("Write() = %d, %v, want 4 ErrOverrun", n, err)
	}
	if port.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", port.Pending())
	}
	if n, err := port.WriteString("g"); n != 0 || !errors.Is(err, pkg.ErrOverrun) {
		t.Errorf("Write() on full buffer = %d, %v, want 0 ErrOverrun", n, err)
	}
}

func TestRegisterLimit(t *testing.T) {
	s := New(sim.NewSerial())

	var ports []*Port
	for i := 0; i < 31; i++ {
		p, err := s.Register()
		if err != nil {
			t.Fatalf("Register(%d) error = %v", i, err)
		}
		ports = append(ports, p)
	}
	if _, err := s.Register(); !errors.Is(err, pkg.ErrNoResources) {
		t.Fatalf("Register beyond limit error = %v, want ErrNoResources", err)
	}

	ports[5].Close()
	if s.Ports() != 30 {
		t.Errorf("Ports() = %d, want 30", s.Ports())
	}
	if _, err := ports[5].WriteString("x"); !errors.Is(err, pkg.ErrNotRegistered) {
		t.Errorf("Write on closed port error = %v, want ErrNotRegistered", err)
	}
	if _, err := s.Register(); err != nil {
		t.Errorf("Register after Close error = %v", err)
	}
}

func TestCloseWhileRunning(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	port, _ := s.Register()
	port.Block()
	port.WriteString("bye")
	port.Close()

	waitFor(t, "port retired", func() bool { return s.Ports() == 0 })
	if string(hw.Output()) != "bye" {
		t.Errorf("Output() = %q, want bye", hw.Output())
	}
}

func TestWriterContextCancelled(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	port, _ := s.Register()
	cancel()
	waitFor(t, "writer exit", func() bool { return !s.IsRunning() })

	// No writer is left to retire the port, so Close removes it directly.
	port.Close()
	if n := s.Ports(); n != 0 {
		t.Errorf("Ports() after Close = %d, want 0", n)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if !s.IsRunning() || !hw.IsOpen() {
		t.Fatalf("IsRunning()=%v IsOpen()=%v after restart", s.IsRunning(), hw.IsOpen())
	}

	next, err := s.Register()
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	next.WriteString("again")
	waitFor(t, "output", func() bool { return string(hw.Output()) == "again" })
}

func TestReaderFanOut(t *testing.T) {
	hw := sim.NewSerial()
	s := New(hw, WithRxBufferSize(4))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	a, _ := s.Register()
	b, _ := s.Register()

	hw.Feed([]byte("xyz"))
	if n := a.Available(); n != 3 {
		t.Fatalf("a.Available() = %d, want 3", n)
	}
	// b was not reading when xyz arrived.
	if n := b.Available(); n != 0 {
		t.Fatalf("b.Available() = %d, want 0", n)
	}

	hw.Feed([]byte("12"))
	if n := b.Available(); n != 2 {
		t.Errorf("b.Available() = %d, want 2", n)
	}
	// a's buffer holds 4 bytes; the last one was dropped.
	if n := a.Available(); n != 4 {
		t.Errorf("a.Available() = %d, want 4", n)
	}

	if c, err := a.Peek(); err != nil || c != 'x' {
		t.Errorf("a.Peek() = %q, %v, want x", c, err)
	}
	buf := make([]byte, 8)
	n, err := a.Read(buf)
	if err != nil || string(buf[:n]) != "xyz1" {
		t.Errorf("a.Read() = %q, %v, want xyz1", buf[:n], err)
	}
	if _, err := a.Read(buf); !errors.Is(err, pkg.ErrNoData) {
		t.Errorf("a.Read() on empty error = %v, want ErrNoData", err)
	}

	c1, _ := b.ReadByte()
	c2, _ := b.ReadByte()
	if c1 != '1' || c2 != '2' {
		t.Errorf("b read %q%q, want 12", c1, c2)
	}
	if _, err := b.ReadByte(); !errors.Is(err, pkg.ErrNoData) {
		t.Errorf("b.ReadByte() on empty error = %v, want ErrNoData", err)
	}
}
