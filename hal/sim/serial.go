package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/softbus/pkg"
)

// Serial is a serial line that records every Write call as one message and
// serves bytes injected with Feed. With Loopback set, written bytes are also
// received.
type Serial struct {
	Loopback bool

	mutex    sync.Mutex
	baud     int
	open     bool
	messages [][]byte
	rx       []byte
	flushes  int
}

// NewSerial creates a closed serial line.
func NewSerial() *Serial {
	return &Serial{}
}

// Begin implements hal.Serial.
func (s *Serial) Begin(baud int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.baud = baud
	s.open = true
	pkg.LogDebug(pkg.ComponentHAL, "sim serial begin", "baud", baud)
	return nil
}

// End implements hal.Serial.
func (s *Serial) End() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.open = false
	pkg.LogDebug(pkg.ComponentHAL, "sim serial end")
	return nil
}

// Write implements hal.Serial.
func (s *Serial) Write(p []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.open {
		return 0, fmt.Errorf("sim serial: %w", pkg.ErrClosed)
	}
	s.messages = append(s.messages, append([]byte(nil), p...))
	if s.Loopback {
		s.rx = append(s.rx, p...)
	}
	return len(p), nil
}

// Available implements hal.Serial.
func (s *Serial) Available() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.rx)
}

// ReadByte implements hal.Serial.
func (s *Serial) ReadByte() (byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.rx) == 0 {
		return 0, pkg.ErrNoData
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	return b, nil
}

// Flush implements hal.Serial.
func (s *Serial) Flush() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.flushes++
	return nil
}

// Feed injects received bytes.
func (s *Serial) Feed(p []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rx = append(s.rx, p...)
}

// Messages returns a copy of every Write call's bytes in order.
func (s *Serial) Messages() [][]byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([][]byte, len(s.messages))
	for i, m := range s.messages {
		out[i] = append([]byte(nil), m...)
	}
	return out
}

// Output returns every written byte concatenated.
func (s *Serial) Output() []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var out []byte
	for _, m := range s.messages {
		out = append(out, m...)
	}
	return out
}

// Baud returns the rate passed to the last Begin.
func (s *Serial) Baud() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.baud
}

// IsOpen reports whether the line is between Begin and End.
func (s *Serial) IsOpen() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.open
}
