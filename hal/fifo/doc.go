// Package fifo implements a serial line HAL using named pipes.
//
// This HAL is intended for testing and simulation. It lets a multiplexed
// serial writer talk to another process (a terminal emulator, a test
// harness, `cat`) through FIFOs in the filesystem instead of a UART.
//
// # Architecture
//
// Each line creates a unique subdirectory under a shared directory:
//
//	/tmp/softbus/                    # Bus directory (shared with the peer)
//	└── serial-{uuid}/               # Line subdirectory (unique per line)
//	    ├── connection               # Connection signaling (line → peer)
//	    ├── tx                       # Bytes written by the line
//	    └── rx                       # Bytes received by the line
//
// The UUID keeps parallel tests from colliding.
//
// # Connection Signaling
//
// The line signals its state via the connection FIFO:
//   - 0x01: Line open
//   - 0x00: Line closing
//
// # Usage
//
//	line := fifo.New("/tmp/softbus")
//	out := serial.New(line, serial.WithBaud(115200))
//	out.Start(ctx)
//
//	fmt.Printf("Line directory: %s\n", line.Dir())
//
// A peer reads the line's output with `cat /tmp/softbus/serial-*/tx`.
package fifo
