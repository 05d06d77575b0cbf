// Package spi provides thread-safe access to a shared SPI controller.
//
// Every device on a bus holds a [Device] bound to the bus's [Controller].
// Devices on different goroutines may call [Device.Read], [Device.Write],
// [Device.WriteThenRead] or the asynchronous [Device.Transfer] concurrently;
// the controller's dispatcher runs their transactions one at a time, each
// framed by its own chip select and clock settings.
//
//	ctrl := spi.NewController(ctx, "spi0", hw)
//	defer ctrl.Close()
//
//	sensor := spi.NewDevice(ctrl, spi.NewConfig(
//	    hal.SPISettings{ClockHz: 1000000, Mode: hal.SPIMode0},
//	    spi.WithChipSelect(csPin),
//	))
//	id := make([]byte, 2)
//	err := sensor.WriteThenRead(ctx, []byte{0x0F}, id)
//
// # Transfer Sequence
//
// For each transaction the strategy:
//
//  1. Asserts chip select
//  2. Begins the transaction with the device's settings
//  3. Shifts out the write buffer, discarding received bytes
//  4. Fills the read buffer, shifting out the fill symbol for each byte
//  5. Ends the transaction and releases chip select
package spi
