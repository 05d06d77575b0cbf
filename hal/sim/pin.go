package sim

import "sync"

// Pin is a digital output that records every level it is driven to.
type Pin struct {
	mutex   sync.Mutex
	level   bool
	history []bool
}

// NewPin creates a pin at the given initial level.
func NewPin(high bool) *Pin {
	return &Pin{level: high}
}

// Set implements hal.Pin.
func (p *Pin) Set(high bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.level = high
	p.history = append(p.history, high)
}

// High reports the current level.
func (p *Pin) High() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.level
}

// History returns every level set, in order.
func (p *Pin) History() []bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]bool(nil), p.history...)
}
