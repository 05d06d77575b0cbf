package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/softbus/pkg"
)

// Registers is a 256-byte register file behind one I2C address.
// The first byte of a write sets the register pointer; following bytes are
// stored at the pointer, which advances after every byte read or written.
type Registers struct {
	mutex   sync.Mutex
	data    [256]byte
	pointer uint8
}

// Set stores p starting at register reg.
func (r *Registers) Set(reg uint8, p ...byte) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i, b := range p {
		r.data[reg+uint8(i)] = b
	}
}

// Get returns n bytes starting at register reg.
func (r *Registers) Get(reg uint8, n int) []byte {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = r.data[reg+uint8(i)]
	}
	return out
}

func (r *Registers) write(p []byte) {
	if len(p) == 0 {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.pointer = p[0]
	for _, b := range p[1:] {
		r.data[r.pointer] = b
		r.pointer++
	}
}

func (r *Registers) read(n int) []byte {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = r.data[r.pointer]
		r.pointer++
	}
	return out
}

// Wire is a two-wire bus with any number of register-file targets.
type Wire struct {
	// Latency delays received bytes becoming available after RequestFrom.
	Latency time.Duration

	mutex     sync.Mutex
	begun     bool
	targets   map[uint8]*Registers
	address   uint8
	pending   []byte
	inTx      bool
	held      bool // bus held by a repeated start
	rx        []byte
	readyAt   time.Time
	stops     int
	restarts  int
	overlaps  int
	requested int
}

// NewWire creates an empty bus.
func NewWire() *Wire {
	return &Wire{targets: make(map[uint8]*Registers)}
}

// Attach adds a register-file target at address and returns it.
func (w *Wire) Attach(address uint8) *Registers {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	r := &Registers{}
	w.targets[address] = r
	return r
}

// Begin implements hal.Wire.
func (w *Wire) Begin() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.begun = true
	pkg.LogDebug(pkg.ComponentHAL, "sim wire begin", "targets", len(w.targets))
	return nil
}

// End implements hal.Wire.
func (w *Wire) End() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.begun = false
	pkg.LogDebug(pkg.ComponentHAL, "sim wire end")
	return nil
}

// BeginTransmission implements hal.Wire.
func (w *Wire) BeginTransmission(address uint8) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.inTx {
		w.overlaps++
	}
	w.inTx = true
	w.address = address
	w.pending = w.pending[:0]
}

// Write implements hal.Wire.
func (w *Wire) Write(b byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if !w.inTx {
		return fmt.Errorf("sim wire: write outside transmission: %w", pkg.ErrBus)
	}
	w.pending = append(w.pending, b)
	return nil
}

// EndTransmission implements hal.Wire.
func (w *Wire) EndTransmission(stop bool) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.begun {
		return fmt.Errorf("sim wire: %w", pkg.ErrNotRunning)
	}
	w.inTx = false
	w.endLocked(stop)

	target, ok := w.targets[w.address]
	if !ok {
		return fmt.Errorf("sim wire: address 0x%02x: %w", w.address, pkg.ErrNACK)
	}
	target.write(w.pending)
	return nil
}

// RequestFrom implements hal.Wire.
func (w *Wire) RequestFrom(address uint8, n int, stop bool) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.begun {
		return 0, fmt.Errorf("sim wire: %w", pkg.ErrNotRunning)
	}
	w.endLocked(stop)
	w.requested++

	target, ok := w.targets[address]
	if !ok {
		return 0, fmt.Errorf("sim wire: address 0x%02x: %w", address, pkg.ErrNACK)
	}
	w.rx = append(w.rx[:0], target.read(n)...)
	w.readyAt = time.Now().Add(w.Latency)
	return n, nil
}

// Available implements hal.Wire.
func (w *Wire) Available() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if time.Now().Before(w.readyAt) {
		return 0
	}
	return len(w.rx)
}

// ReadByte implements hal.Wire.
func (w *Wire) ReadByte() (byte, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if len(w.rx) == 0 || time.Now().Before(w.readyAt) {
		return 0, pkg.ErrNoData
	}
	b := w.rx[0]
	w.rx = w.rx[1:]
	return b, nil
}

// Stops returns the number of stop conditions generated.
func (w *Wire) Stops() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.stops
}

// Restarts returns the number of operations that ended holding the bus for
// a repeated start.
func (w *Wire) Restarts() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.restarts
}

// Overlaps returns the number of transmissions begun while another was open.
func (w *Wire) Overlaps() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.overlaps
}

// Held reports whether the last operation kept the bus for a repeated start.
func (w *Wire) Held() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.held
}

func (w *Wire) endLocked(stop bool) {
	w.held = !stop
	if stop {
		w.stops++
	} else {
		w.restarts++
	}
}
