// Package wire provides thread-safe access to a shared two-wire (I2C) bus.
//
// Each target on the bus is a [Device] bound to the bus's [Controller] with
// its own 7-bit address. Devices on different goroutines may use the bus
// concurrently; the controller's dispatcher runs one transaction at a time.
//
//	ctrl := wire.NewController(ctx, "i2c0", hw)
//	defer ctrl.Close()
//
//	sensor := wire.NewDevice(ctrl, wire.NewConfig(0x48))
//	temp := make([]byte, 2)
//	err := sensor.WriteThenRead(ctx, []byte{0x00}, temp)
//
// # Transfer Sequence
//
// A write phase addresses the target, sends the write buffer and ends with a
// stop condition, or with a repeated start when [Config.Restart] is set and a
// read phase follows. The read phase requests the read buffer's length and
// waits for the bytes to arrive, ending with a stop condition when
// [Config.Stop] is set.
//
// The wait is bounded by [Config.Timeout]. A target that never delivers
// completes the transaction with [pkg.TransferStatusTimeout] instead of
// stalling the bus for every other device.
package wire
