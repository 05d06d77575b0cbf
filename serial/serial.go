package serial

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/softbus/event"
	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
	"github.com/ardnew/softbus/pipe"
	"github.com/ardnew/softbus/task"
)

// Default buffer sizes and line rate.
const (
	DefaultBaud         = 115200
	DefaultTxBufferSize = 128
	DefaultRxBufferSize = 256
)

// PrefixFunc returns the text transmitted before msg.
type PrefixFunc func(msg string) string

// SuffixFunc returns the text transmitted after msg, given the prefix that
// preceded it.
type SuffixFunc func(prefix, msg string) string

// Option configures a Serial.
type Option func(*Serial)

// WithBaud sets the line rate passed to the HAL.
func WithBaud(baud int) Option {
	return func(s *Serial) {
		s.baud = baud
	}
}

// WithTxBufferSize sets each port's transmit buffer size.
func WithTxBufferSize(n int) Option {
	return func(s *Serial) {
		s.txSize = n
	}
}

// WithRxBufferSize sets each port's receive buffer size.
func WithRxBufferSize(n int) Option {
	return func(s *Serial) {
		s.rxSize = n
	}
}

// Serial owns a serial line shared by registered ports.
type Serial struct {
	hal    hal.Serial
	baud   int
	txSize int
	rxSize int

	// Pending-output signal, one bit per port
	flags event.Flags
	bits  event.Allocator

	// State
	mutex        sync.Mutex
	ports        []*Port // registration order
	globalPrefix PrefixFunc
	globalSuffix SuffixFunc
	running      bool
	runner       *task.Runner

	// Serializes transmission between the writer task and Stop
	txMutex sync.Mutex
}

// New creates a stopped multiplexer for the line h.
func New(h hal.Serial, opts ...Option) *Serial {
	s := &Serial{
		hal:    h,
		baud:   DefaultBaud,
		txSize: DefaultTxBufferSize,
		rxSize: DefaultRxBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.txSize <= 0 {
		s.txSize = DefaultTxBufferSize
	}
	if s.rxSize <= 0 {
		s.rxSize = DefaultRxBufferSize
	}
	return s
}

// Start opens the line and starts the writer task. A line whose writer
// exited with its context is stopped and reopened.
func (s *Serial) Start(ctx context.Context) error {
	if s.stale() {
		if err := s.Stop(); err != nil {
			pkg.LogWarn(pkg.ComponentSerial, "stale writer stop failed", "error", err)
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return pkg.ErrAlreadyRunning
	}
	if err := s.hal.Begin(s.baud); err != nil {
		return fmt.Errorf("serial: begin: %w", err)
	}

	runner := task.Start(ctx, "serial", task.Func(s.loop))
	if err := runner.WaitStarted(ctx); err != nil {
		runner.Stop()
		s.hal.End()
		return fmt.Errorf("serial: start: %w", err)
	}
	s.runner = runner
	s.running = true

	pkg.LogDebug(pkg.ComponentSerial, "serial started",
		"baud", s.baud,
		"ports", len(s.ports))

	// Output written before Start is pending.
	for _, p := range s.ports {
		s.flags.Set(p.bit)
	}
	return nil
}

// IsRunning returns true if the writer task is running. It turns false once
// Stop is called or the writer exits with its context.
func (s *Serial) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running && !s.exitedLocked()
}

// stale reports the line is open but its writer has exited.
func (s *Serial) stale() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running && s.exitedLocked()
}

func (s *Serial) exitedLocked() bool {
	select {
	case <-s.runner.Done():
		return true
	default:
		return false
	}
}

// Stop stops the writer task, transmits what every unblocked port still
// holds, then flushes and closes the line.
func (s *Serial) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	runner := s.runner
	s.runner = nil
	s.mutex.Unlock()

	var result *multierror.Error
	if err := runner.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("serial: writer: %w", err))
	}
	if err := s.transmit(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.hal.Flush(); err != nil {
		result = multierror.Append(result, fmt.Errorf("serial: flush: %w", err))
	}
	if err := s.hal.End(); err != nil {
		result = multierror.Append(result, fmt.Errorf("serial: end: %w", err))
	}

	pkg.LogDebug(pkg.ComponentSerial, "serial stopped")
	return result.ErrorOrNil()
}

// Register creates a new port. Returns [pkg.ErrNoResources] when the maximum
// number of ports is registered.
func (s *Serial) Register() (*Port, error) {
	bit, err := s.bits.Alloc()
	if err != nil {
		return nil, err
	}

	p := &Port{
		serial: s,
		bit:    bit,
		tx:     pipe.NewRing[byte](s.txSize),
	}

	s.mutex.Lock()
	s.ports = append(s.ports, p)
	n := len(s.ports)
	s.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentSerial, "port registered",
		"bit", bit,
		"ports", n)
	return p, nil
}

// Ports returns the number of registered ports.
func (s *Serial) Ports() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.ports)
}

// SetGlobalPrefix sets the prefix used by ports without their own.
// Pass nil to remove it.
func (s *Serial) SetGlobalPrefix(f PrefixFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.globalPrefix = f
}

// SetGlobalSuffix sets the suffix used by ports without their own.
// Pass nil to remove it.
func (s *Serial) SetGlobalSuffix(f SuffixFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.globalSuffix = f
}

// Flush blocks until the line has transmitted everything written to it.
// Output still held in port buffers is not affected.
func (s *Serial) Flush() error {
	s.txMutex.Lock()
	defer s.txMutex.Unlock()
	return s.hal.Flush()
}

// loop is the writer task body. Line errors are logged by send and do not
// stop the writer.
func (s *Serial) loop(ctx context.Context) error {
	if _, err := s.flags.Wait(ctx, event.All, event.WaitAny, true); err != nil {
		return err
	}
	s.transmit()
	return nil
}

// transmit writes one framed message for every unblocked port with pending
// output, in registration order, and retires closed ports.
func (s *Serial) transmit() error {
	s.txMutex.Lock()
	defer s.txMutex.Unlock()

	s.mutex.Lock()
	ports := append([]*Port(nil), s.ports...)
	globalPrefix, globalSuffix := s.globalPrefix, s.globalSuffix
	s.mutex.Unlock()

	var result *multierror.Error
	for _, p := range ports {
		msg, prefixFn, suffixFn, closed := p.take()
		if len(msg) > 0 {
			if prefixFn == nil {
				prefixFn = globalPrefix
			}
			if suffixFn == nil {
				suffixFn = globalSuffix
			}
			if err := s.send(string(msg), prefixFn, suffixFn); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if closed {
			s.remove(p)
		}
	}
	return result.ErrorOrNil()
}

// send writes prefix, msg and suffix with a single call to the line.
func (s *Serial) send(msg string, prefixFn PrefixFunc, suffixFn SuffixFunc) error {
	var prefix, suffix string
	if prefixFn != nil {
		prefix = prefixFn(msg)
	}
	if suffixFn != nil {
		suffix = suffixFn(prefix, msg)
	}

	var b strings.Builder
	b.Grow(len(prefix) + len(msg) + len(suffix))
	b.WriteString(prefix)
	b.WriteString(msg)
	b.WriteString(suffix)

	out := b.String()
	n, err := s.hal.Write([]byte(out))
	if err != nil {
		pkg.LogWarn(pkg.ComponentSerial, "line write failed",
			"written", n,
			"length", len(out),
			"error", err)
		return fmt.Errorf("serial: write: %w", err)
	}
	return nil
}

// remove unregisters p and frees its bit.
func (s *Serial) remove(p *Port) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, q := range s.ports {
		if q == p {
			s.ports = append(s.ports[:i], s.ports[i+1:]...)
			s.flags.Clear(p.bit)
			s.bits.Release(p.bit)
			pkg.LogDebug(pkg.ComponentSerial, "port unregistered",
				"bit", p.bit,
				"ports", len(s.ports))
			return
		}
	}
}

// receiveLocked copies every byte waiting on the line into the receive
// buffer of each reading port with room. The caller holds s.mutex.
func (s *Serial) receiveLocked() {
	for s.hal.Available() > 0 {
		b, err := s.hal.ReadByte()
		if err != nil {
			return
		}
		for _, p := range s.ports {
			if p.rx != nil {
				p.rx.Push(b)
			}
		}
	}
}
