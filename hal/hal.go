package hal

// BitOrder selects which end of a byte is shifted out first.
type BitOrder uint8

// Bit orders.
const (
	MSBFirst BitOrder = iota // Most significant bit first
	LSBFirst                 // Least significant bit first
)

// String returns a human-readable bit order name.
func (o BitOrder) String() string {
	switch o {
	case MSBFirst:
		return "msb-first"
	case LSBFirst:
		return "lsb-first"
	default:
		return "unknown"
	}
}

// SPIMode is the clock polarity and phase combination (0-3).
type SPIMode uint8

// SPI modes.
const (
	SPIMode0 SPIMode = iota // CPOL=0, CPHA=0
	SPIMode1                // CPOL=0, CPHA=1
	SPIMode2                // CPOL=1, CPHA=0
	SPIMode3                // CPOL=1, CPHA=1
)

// SPISettings are the clocking parameters applied for one SPI transaction.
type SPISettings struct {
	ClockHz  uint32   // Maximum clock frequency
	BitOrder BitOrder // Shift direction
	Mode     SPIMode  // Clock polarity and phase
}

// SPI defines the collaborator interface of a physical SPI controller.
//
// A controller is full duplex: every transmitted byte clocks one byte in.
// Implementations are driven by a single goroutine at a time and need not be
// safe for concurrent use.
type SPI interface {
	// Begin enables the controller.
	Begin() error

	// End disables the controller.
	End() error

	// BeginTransaction applies settings and claims the bus.
	BeginTransaction(settings SPISettings) error

	// Transfer shifts tx out and returns the byte shifted in.
	Transfer(tx byte) (byte, error)

	// EndTransaction releases the bus.
	EndTransaction() error
}

// Wire defines the collaborator interface of a physical two-wire (I2C)
// controller in master mode.
//
// Implementations are driven by a single goroutine at a time and need not be
// safe for concurrent use.
type Wire interface {
	// Begin enables the controller.
	Begin() error

	// End disables the controller.
	End() error

	// BeginTransmission starts buffering a write to the 7-bit address.
	BeginTransmission(address uint8)

	// Write buffers one byte of the current transmission.
	Write(b byte) error

	// EndTransmission sends the buffered bytes. If stop is false the bus is
	// held for a repeated start. Returns pkg.ErrNACK when the target does not
	// acknowledge.
	EndTransmission(stop bool) error

	// RequestFrom reads up to n bytes from the address into the receive
	// buffer and returns the number of bytes received.
	RequestFrom(address uint8, n int, stop bool) (int, error)

	// Available returns the number of received bytes not yet read.
	Available() int

	// ReadByte removes one byte from the receive buffer.
	ReadByte() (byte, error)
}

// Serial defines the collaborator interface of a physical serial line.
//
// Write and the read methods may be called from different goroutines.
type Serial interface {
	// Begin opens the line at the given baud rate.
	Begin(baud int) error

	// End closes the line.
	End() error

	// Write transmits p and returns the number of bytes accepted.
	Write(p []byte) (int, error)

	// Available returns the number of received bytes ready to read.
	Available() int

	// ReadByte removes one received byte.
	ReadByte() (byte, error)

	// Flush blocks until all written bytes have been transmitted.
	Flush() error
}

// Pin is a digital output line, typically a chip select.
type Pin interface {
	// Set drives the pin high (true) or low (false).
	Set(high bool)
}

// PinFunc adapts a function to the Pin interface.
type PinFunc func(high bool)

// Set calls f.
func (f PinFunc) Set(high bool) { f(high) }
