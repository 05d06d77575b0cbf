//go:build !profile

package prof

import "io"

// Enabled reports whether the package was built with the "profile" tag.
const Enabled = false

// Profiling errors (defined for API compatibility but never returned by stubs).
var (
	// ErrActive indicates a session is already recording.
	ErrActive error

	// ErrInvalidProfile indicates an invalid or unsupported profile type.
	ErrInvalidProfile error
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

// Session does nothing when built without the "profile" tag.
type Session struct {
	dir string
}

// Start returns an inert session when built without the "profile" tag.
func Start(dir string) (*Session, error) {
	return &Session{dir: dir}, nil
}

// Dir returns the directory passed to Start.
func (s *Session) Dir() string {
	return s.dir
}

// Stop is a no-op when built without the "profile" tag.
func (s *Session) Stop() error {
	return nil
}

// WriteTo is a no-op when built without the "profile" tag.
func WriteTo(_ Profile, _ io.Writer, _ int) error {
	return nil
}

// EnableContention is a no-op when built without the "profile" tag.
func EnableContention(_ int) {}

// Serve is a no-op when built without the "profile" tag. It returns an
// empty address.
func Serve(_ string) (string, error) {
	return "", nil
}
