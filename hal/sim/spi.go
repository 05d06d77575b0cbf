package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
)

// Interface compliance.
var (
	_ hal.SPI    = (*SPI)(nil)
	_ hal.Wire   = (*Wire)(nil)
	_ hal.Serial = (*Serial)(nil)
	_ hal.Pin    = (*Pin)(nil)
)

// Idle is the byte a simulated slave drives when it has nothing to say.
const Idle byte = 0xFF

// SPI is an echo slave. A byte other than Fill is latched into an internal
// FIFO; clocking Fill shifts the oldest latched byte back out. Both return
// Idle when nothing is latched.
type SPI struct {
	// Fill is the byte that clocks latched data out. Defaults to Idle.
	Fill byte

	// FailAfter makes Transfer fail once this many bytes were exchanged.
	// Zero disables the failure.
	FailAfter int

	mutex     sync.Mutex
	begun     bool
	inTx      bool
	latched   []byte
	exchanged int
	txCount   int
	overlaps  int
	settings  []hal.SPISettings
	mosi      []byte
}

// NewSPI creates an echo slave with Fill set to Idle.
func NewSPI() *SPI {
	return &SPI{Fill: Idle}
}

// Begin implements hal.SPI.
func (s *SPI) Begin() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.begun = true
	pkg.LogDebug(pkg.ComponentHAL, "sim spi begin")
	return nil
}

// End implements hal.SPI.
func (s *SPI) End() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.begun = false
	pkg.LogDebug(pkg.ComponentHAL, "sim spi end")
	return nil
}

// BeginTransaction implements hal.SPI.
func (s *SPI) BeginTransaction(settings hal.SPISettings) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.begun {
		return fmt.Errorf("sim spi: %w", pkg.ErrNotRunning)
	}
	if s.inTx {
		s.overlaps++
	}
	s.inTx = true
	s.txCount++
	s.settings = append(s.settings, settings)
	return nil
}

// Transfer implements hal.SPI.
func (s *SPI) Transfer(tx byte) (byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.inTx {
		return 0, fmt.Errorf("sim spi: transfer outside transaction: %w", pkg.ErrBus)
	}
	if s.FailAfter > 0 && s.exchanged >= s.FailAfter {
		return 0, fmt.Errorf("sim spi: %w", pkg.ErrBus)
	}
	s.exchanged++
	s.mosi = append(s.mosi, tx)

	if tx != s.Fill {
		s.latched = append(s.latched, tx)
		return Idle, nil
	}
	if len(s.latched) == 0 {
		return Idle, nil
	}
	rx := s.latched[0]
	s.latched = s.latched[1:]
	return rx, nil
}

// EndTransaction implements hal.SPI.
func (s *SPI) EndTransaction() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.inTx = false
	return nil
}

// Transactions returns the number of BeginTransaction calls.
func (s *SPI) Transactions() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.txCount
}

// Overlaps returns the number of transactions begun while another was open.
func (s *SPI) Overlaps() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.overlaps
}

// Settings returns the settings of every transaction in order.
func (s *SPI) Settings() []hal.SPISettings {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]hal.SPISettings(nil), s.settings...)
}

// MOSI returns every byte shifted out by the master.
func (s *SPI) MOSI() []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]byte(nil), s.mosi...)
}
