package serial

import (
	"fmt"
	"sync"

	"github.com/ardnew/softbus/pipe"
	"github.com/ardnew/softbus/pkg"
)

// Port is one writer's handle on a shared serial line.
// A Port is safe for concurrent use, though output from concurrent Write
// calls on the same port is ordered only by the port's lock.
type Port struct {
	serial *Serial
	bit    uint32

	// Transmit state
	mutex   sync.Mutex
	tx      *pipe.Ring[byte]
	blocked bool
	closed  bool
	prefix  PrefixFunc
	suffix  SuffixFunc

	// Receive buffer, allocated on first read; guarded by serial.mutex
	rx *pipe.Ring[byte]
}

// Write stores p for transmission and signals the writer task.
// When the transmit buffer cannot hold all of p, the bytes that fit are
// stored and [pkg.ErrOverrun] is returned with their count.
func (p *Port) Write(b []byte) (int, error) {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return 0, pkg.ErrNotRegistered
	}
	n := p.tx.Write(b)
	p.mutex.Unlock()

	if n > 0 {
		p.serial.flags.Set(p.bit)
	}
	if n < len(b) {
		pkg.LogDebug(pkg.ComponentSerial, "transmit buffer overrun",
			"bit", p.bit,
			"stored", n,
			"dropped", len(b)-n)
		return n, fmt.Errorf("%d of %d bytes stored: %w", n, len(b), pkg.ErrOverrun)
	}
	return n, nil
}

// WriteString stores s for transmission. See [Port.Write].
func (p *Port) WriteString(s string) (int, error) {
	return p.Write([]byte(s))
}

// Pending returns the number of bytes waiting for transmission.
func (p *Port) Pending() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.tx.Len()
}

// Block holds this port's output until Unblock.
func (p *Port) Block() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.blocked = true
}

// Unblock releases held output for transmission.
func (p *Port) Unblock() {
	p.mutex.Lock()
	p.blocked = false
	p.mutex.Unlock()
	p.serial.flags.Set(p.bit)
}

// SetPrefix sets this port's prefix, overriding the global one.
// Pass nil to fall back to the global prefix.
func (p *Port) SetPrefix(f PrefixFunc) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.prefix = f
}

// SetSuffix sets this port's suffix, overriding the global one.
// Pass nil to fall back to the global suffix.
func (p *Port) SetSuffix(f SuffixFunc) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.suffix = f
}

// Available returns the number of received bytes ready to read.
func (p *Port) Available() int {
	s := p.serial
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p.prepareLocked()
	s.receiveLocked()
	return p.rx.Len()
}

// Peek returns the next received byte without removing it.
func (p *Port) Peek() (byte, error) {
	s := p.serial
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p.prepareLocked()
	s.receiveLocked()
	b, ok := p.rx.Peek()
	if !ok {
		return 0, pkg.ErrNoData
	}
	return b, nil
}

// ReadByte removes and returns the next received byte.
func (p *Port) ReadByte() (byte, error) {
	s := p.serial
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p.prepareLocked()
	s.receiveLocked()
	b, ok := p.rx.Pop()
	if !ok {
		return 0, pkg.ErrNoData
	}
	return b, nil
}

// Read copies received bytes into b without blocking.
// Returns [pkg.ErrNoData] if nothing has been received.
func (p *Port) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	s := p.serial
	s.mutex.Lock()
	defer s.mutex.Unlock()
	p.prepareLocked()
	s.receiveLocked()
	n := p.rx.Read(b)
	if n == 0 {
		return 0, pkg.ErrNoData
	}
	return n, nil
}

// Close unregisters the port. While the line is running, pending output is
// transmitted first; otherwise it is discarded.
func (p *Port) Close() error {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return nil
	}
	p.closed = true
	p.mutex.Unlock()

	s := p.serial
	if s.IsRunning() {
		s.flags.Set(p.bit)
		return nil
	}
	s.remove(p)
	return nil
}

// prepareLocked allocates the receive buffer. The caller holds serial.mutex.
func (p *Port) prepareLocked() {
	if p.rx == nil {
		p.rx = pipe.NewRing[byte](p.serial.rxSize)
	}
}

// take removes pending output unless the port is blocked, and returns it
// with the port's framing hooks. closed reports the port should be retired.
func (p *Port) take() (msg []byte, prefix PrefixFunc, suffix SuffixFunc, closed bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.blocked || p.closed {
		msg = p.tx.Drain()
	}
	return msg, p.prefix, p.suffix, p.closed
}
