package fifo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/softbus/hal"
	"github.com/ardnew/softbus/pkg"
)

// ReadBufferSize is the capacity of the receive buffer. Bytes arriving while
// it is full stay in the pipe until there is room.
const ReadBufferSize = 4096

// Connection signal bytes.
const (
	sigConnect    = 0x01 // Line open
	sigDisconnect = 0x00 // Line closing
)

// FIFO file names.
const (
	fifoTx         = "tx"
	fifoRx         = "rx"
	fifoConnection = "connection"
)

// pollInterval bounds how long the reader blocks before checking for close.
const pollInterval = 100 * time.Millisecond

// Serial implements hal.Serial using named pipes (FIFOs).
type Serial struct {
	// Bus directory (shared with the peer)
	busDir string

	// Line subdirectory (busDir/serial-{uuid}/)
	dir string
	id  uuid.UUID

	txWrite         *os.File
	rxRead          *os.File
	connectionWrite *os.File

	// State
	mutex   sync.Mutex
	open    bool
	baud    int
	rx      []byte
	closeCh chan struct{}
	doneCh  chan struct{}
}

// New creates a FIFO-based serial line under busDir.
// Nothing is created on disk until Begin.
func New(busDir string) *Serial {
	return &Serial{busDir: busDir}
}

// Begin creates the line directory and FIFOs, starts receiving and signals
// the peer.
func (s *Serial) Begin(baud int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.open {
		return pkg.ErrAlreadyRunning
	}

	s.id = uuid.New()
	s.dir = filepath.Join(s.busDir, "serial-"+s.id.String())
	s.baud = baud

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create line dir: %w", err)
	}
	for _, name := range []string{fifoTx, fifoRx, fifoConnection} {
		if err := s.createFIFO(name); err != nil {
			s.cleanup()
			return err
		}
	}

	// Open FIFOs with O_RDWR|O_NONBLOCK so opening never waits for the peer
	var err error
	if s.connectionWrite, err = s.openFIFO(fifoConnection); err != nil {
		s.cleanup()
		return err
	}
	if s.txWrite, err = s.openFIFO(fifoTx); err != nil {
		s.cleanup()
		return err
	}
	if s.rxRead, err = s.openFIFO(fifoRx); err != nil {
		s.cleanup()
		return err
	}

	if _, err := s.connectionWrite.Write([]byte{sigConnect}); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "failed to signal connection", "error", err)
	}

	s.open = true
	s.rx = s.rx[:0]
	s.closeCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.receive(s.rxRead, s.closeCh, s.doneCh)

	pkg.LogInfo(pkg.ComponentHAL, "fifo serial line opened",
		"dir", s.dir,
		"baud", baud)
	return nil
}

// End signals the peer, stops receiving and removes the line directory.
func (s *Serial) End() error {
	s.mutex.Lock()
	if !s.open {
		s.mutex.Unlock()
		return nil
	}
	s.open = false
	s.connectionWrite.Write([]byte{sigDisconnect})
	close(s.closeCh)
	done := s.doneCh
	s.mutex.Unlock()

	<-done

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cleanup()
	pkg.LogInfo(pkg.ComponentHAL, "fifo serial line closed")
	return nil
}

// Write writes p to the tx FIFO.
func (s *Serial) Write(p []byte) (int, error) {
	s.mutex.Lock()
	f := s.txWrite
	open := s.open
	s.mutex.Unlock()

	if !open || f == nil {
		return 0, pkg.ErrNotRunning
	}

	written := 0
	for written < len(p) {
		n, err := f.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Available returns the number of received bytes buffered.
func (s *Serial) Available() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.rx)
}

// ReadByte removes one received byte.
func (s *Serial) ReadByte() (byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.rx) == 0 {
		return 0, pkg.ErrNoData
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	return b, nil
}

// Flush returns once written bytes are in the pipe, which Write guarantees.
func (s *Serial) Flush() error {
	return nil
}

// Dir returns the line subdirectory path.
func (s *Serial) Dir() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.dir
}

// ID returns the line's unique identifier.
func (s *Serial) ID() uuid.UUID {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.id
}

// Baud returns the rate passed to Begin.
func (s *Serial) Baud() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.baud
}

// receive copies bytes from the rx FIFO into the receive buffer until closed.
func (s *Serial) receive(f *os.File, closeCh, doneCh chan struct{}) {
	defer close(doneCh)

	var buf [256]byte
	for {
		select {
		case <-closeCh:
			return
		default:
		}

		s.mutex.Lock()
		room := ReadBufferSize - len(s.rx)
		s.mutex.Unlock()
		if room <= 0 {
			time.Sleep(pollInterval / 10)
			continue
		}
		if room > len(buf) {
			room = len(buf)
		}

		f.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := f.Read(buf[:room])
		if n > 0 {
			s.mutex.Lock()
			s.rx = append(s.rx, buf[:n]...)
			s.mutex.Unlock()
		}
		if err != nil && !os.IsTimeout(err) {
			pkg.LogDebug(pkg.ComponentHAL, "fifo receive stopped", "error", err)
			return
		}
	}
}

// cleanup closes all FIFOs and removes the line directory.
func (s *Serial) cleanup() {
	for _, f := range []**os.File{&s.txWrite, &s.rxRead, &s.connectionWrite} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
	if s.dir != "" {
		os.RemoveAll(s.dir)
	}
}

// createFIFO creates a named pipe in the line directory.
func (s *Serial) createFIFO(name string) error {
	path := filepath.Join(s.dir, name)

	// Remove existing file if any
	os.Remove(path)

	if err := syscall.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", name, err)
	}
	return nil
}

// openFIFO opens a named pipe for reading and writing without blocking.
func (s *Serial) openFIFO(name string) (*os.File, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Compile-time interface check
var _ hal.Serial = (*Serial)(nil)
