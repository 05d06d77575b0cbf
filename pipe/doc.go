// Package pipe connects producers to consumers through fan-out channels with
// a delivery discipline chosen per consumer.
//
// A [Source] delivers every pushed value to each connected [Sink], in
// connection order, on the producer's goroutine:
//
//	readings := pipe.NewSource[float64]()
//	display := pipe.NewLatestSink[float64]()    // never blocks the producer
//	logger := pipe.NewQueueSink[float64](8)     // producer waits when 8 are queued
//	readings.Connect(display, logger)
//
//	readings.Push(21.5)
//
// # Disciplines
//
//   - Latest: holds only the newest value; Inject never blocks
//   - Handoff: one value at a time; Inject returns once a consumer took it
//   - Queue: a bounded FIFO; Inject blocks while it is full
//
// A blocking sink stalls delivery to every sink connected after it. Connect
// order is the delivery order and is never rearranged.
//
// Sinks can be chained with [Sink.ConnectTo] so that each stored value is
// forwarded to the next sink.
package pipe
