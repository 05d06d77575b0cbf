// Package pkg provides shared utilities for the softbus packages.
//
// This package contains common functionality used by the dispatcher, the
// bus device facades and the cross-goroutine primitives, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for bus and dispatch errors
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with bus-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentSPI, "dispatcher started", "capacity", 32)
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrMailboxFull) {
//	    // Back off and resubmit
//	}
package pkg
