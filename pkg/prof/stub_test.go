//go:build !profile

package prof

import (
	"bytes"
	"testing"
)

func TestStubs(t *testing.T) {
	if Enabled {
		t.Fatal("Enabled = true without the profile tag")
	}

	dir := t.TempDir()
	s, err := Start(dir)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", s.Dir(), dir)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTo(ProfileHeap, &buf, 1); err != nil || buf.Len() != 0 {
		t.Errorf("WriteTo() = %v, wrote %d bytes", err, buf.Len())
	}
	if addr, err := Serve("127.0.0.1:0"); addr != "" || err != nil {
		t.Errorf("Serve() = %q, %v, want empty and nil", addr, err)
	}
	EnableContention(1)
}
