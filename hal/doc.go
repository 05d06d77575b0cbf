// Package hal defines the Hardware Abstraction Layer interfaces consumed by
// the bus dispatchers.
//
// The HAL is the boundary between softbus and the platform. Each interface
// models one class of physical controller using the minimum set of
// operations the dispatchers need:
//
//   - [SPI]: full-duplex byte exchange framed by begin/end transaction
//   - [Wire]: addressed two-wire master with repeated start
//   - [Serial]: byte stream with polled receive
//   - [Pin]: a digital output used for chip select
//
// None of the interfaces are required to be safe for concurrent use; the
// dispatcher that owns a controller is its only caller. That serialization is
// the whole point of the bus layer.
//
// # Implementing a HAL
//
//	type myBus struct {
//	    // Platform-specific fields
//	}
//
//	func (b *myBus) Begin() error {
//	    // Enable the controller
//	    return nil
//	}
//
//	// ... implement remaining SPI methods
//
// In-memory peripherals for tests and demos are available in
// [github.com/ardnew/softbus/hal/sim]. A serial line over named pipes is
// available in [github.com/ardnew/softbus/hal/fifo].
package hal
