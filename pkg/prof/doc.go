// Package prof captures runtime profiles of a running bus.
//
// Bus code is dominated by goroutines waiting on mutexes, event flags and
// completion signals, so the profiles worth looking at are usually the
// block and mutex profiles rather than CPU. A [Session] enables contention
// sampling, records a CPU profile and writes snapshot profiles into a
// directory when stopped:
//
//	s, err := prof.Start("profiles")
//	if err != nil {
//	    return err
//	}
//	defer s.Stop()
//
// The package is conditionally compiled using the "profile" build tag:
//
//	go build -tags profile
//	go test -tags profile
//
// Without the tag every function is a no-op and [Enabled] is false, so
// profiling hooks can stay in place at no cost.
//
// # HTTP Profiling
//
// [Serve] exposes the standard handlers at /debug/pprof/ for live
// inspection:
//
//	addr, err := prof.Serve("localhost:6060")
//
// # Snapshot Profiles
//
// [WriteTo] writes one profile to a writer. Debug level 0 produces binary
// protobuf for go tool pprof; debug level 1 produces human-readable text:
//
//	prof.WriteTo(prof.ProfileMutex, os.Stdout, 1)
package prof
