//go:build profile

package prof

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/hashicorp/go-multierror"

	_ "net/http/pprof" // Register HTTP handlers at /debug/pprof/

	"github.com/ardnew/softbus/pkg"
)

// Enabled reports whether the package was built with the "profile" tag.
const Enabled = true

// Profiling errors.
var (
	// ErrActive indicates a session is already recording.
	ErrActive = errors.New("profile session already active")

	// ErrInvalidProfile indicates an invalid or unsupported profile type.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile represents a pprof profile type.
type Profile string

// Profile type constants.
const (
	ProfileHeap      Profile = "heap"
	ProfileAllocs    Profile = "allocs"
	ProfileGoroutine Profile = "goroutine"
	ProfileBlock     Profile = "block"
	ProfileMutex     Profile = "mutex"
)

// Snapshots lists the profiles written by Session.Stop.
var Snapshots = []Profile{ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex}

// String returns the string representation of the profile type.
func (p Profile) String() string {
	return string(p)
}

var (
	// sessionMutex protects the active session.
	sessionMutex sync.Mutex
	active       *Session
)

// Session records a CPU profile and contention samples until stopped.
type Session struct {
	dir string
	cpu *os.File
}

// Start begins a session writing into dir, which is created if needed.
// Returns [ErrActive] if a session is already recording.
func Start(dir string) (*Session, error) {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	if active != nil {
		return nil, ErrActive
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "cpu.prof"))
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	EnableContention(1)

	active = &Session{dir: dir, cpu: f}
	pkg.LogInfo(pkg.ComponentProf, "profiling started", "dir", dir)
	return active, nil
}

// Dir returns the directory profiles are written to.
func (s *Session) Dir() string {
	return s.dir
}

// Stop ends the CPU profile, writes every snapshot profile and disables
// contention sampling. It is safe to call more than once.
func (s *Session) Stop() error {
	sessionMutex.Lock()
	defer sessionMutex.Unlock()

	if active != s {
		return nil
	}
	active = nil

	pprof.StopCPUProfile()

	var result *multierror.Error
	if err := s.cpu.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	for _, p := range Snapshots {
		if err := s.write(p); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", p, err))
		}
	}
	EnableContention(0)

	pkg.LogInfo(pkg.ComponentProf, "profiling stopped", "dir", s.dir)
	return result.ErrorOrNil()
}

func (s *Session) write(p Profile) error {
	f, err := os.Create(filepath.Join(s.dir, string(p)+".prof"))
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteTo(p, f, 0)
}

// WriteTo writes the profile to w with the given debug level.
func WriteTo(profile Profile, w io.Writer, debug int) error {
	p := pprof.Lookup(string(profile))
	if p == nil {
		return ErrInvalidProfile
	}
	return p.WriteTo(w, debug)
}

// EnableContention sets both the block profile rate and the mutex profile
// fraction. Zero disables them; 1 records every event.
func EnableContention(rate int) {
	runtime.SetBlockProfileRate(rate)
	runtime.SetMutexProfileFraction(rate)
}

// Serve starts an HTTP server on addr exposing /debug/pprof/ and returns the
// address it listens on. The server runs until the process exits.
func Serve(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("profile server: %w", err)
	}
	bound := ln.Addr().String()
	go func() {
		if err := http.Serve(ln, nil); err != nil {
			pkg.LogWarn(pkg.ComponentProf, "profile server stopped", "addr", bound, "error", err)
		}
	}()
	pkg.LogInfo(pkg.ComponentProf, "profile server listening", "addr", bound)
	return bound, nil
}
