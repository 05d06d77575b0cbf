// Package serial multiplexes one serial line between many goroutines.
//
// Each writer registers a [Port] with [Serial.Register]. Writes go into the
// port's private transmit buffer and never touch the line. A single writer
// goroutine collects pending output and transmits it one port at a time, so
// bytes from one Write call are never interleaved with another port's bytes:
//
//	out := serial.New(hw, serial.WithBaud(115200))
//	out.SetGlobalSuffix(func(prefix, msg string) string { return "\r\n" })
//	out.Start(ctx)
//	defer out.Stop()
//
//	port, _ := out.Register()
//	fmt.Fprintf(port, "temp=%.1f", t)
//
// # Framing
//
// Each transmitted message is the port's prefix, all pending bytes of the
// port and the port's suffix, written with a single call to the line. A
// port's own prefix and suffix hooks take precedence over the global ones.
// A blocked port accumulates output until it is unblocked.
//
// # Receiving
//
// A port that reads gets its own receive buffer on first use. Every received
// byte is copied to each reading port that has room, so readers never steal
// input from one another.
//
// # Limits
//
// Ports are identified by event-flag bits, so at most 31 ports may be
// registered at once. A Write that does not fit stores what it can and
// reports [pkg.ErrOverrun].
package serial
