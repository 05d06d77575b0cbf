// Package sim provides in-memory peripherals implementing the hal interfaces.
//
// The peripherals behave like simple slave devices so that bus code can be
// exercised without hardware:
//
//   - [SPI]: an echo slave that returns previously written bytes when clocked
//     with the fill symbol
//   - [Wire]: a set of register-file targets addressed by 7-bit address
//   - [Serial]: a line that records every Write call and serves injected input
//   - [Pin]: a digital output that records its transitions
//
// Every peripheral records what was done to it and may be inspected from any
// goroutine. They also detect overlapping transactions, which a correctly
// serialized bus never produces.
package sim
