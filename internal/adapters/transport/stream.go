package transport

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bft-labs/pillship/internal/ports"
)

// Stream adapts any byte stream, typically a serial device, to
// ports.Transport. A goroutine reads the stream and queues the bytes.
type Stream struct {
	rwc    io.ReadWriteCloser
	q      *byteQueue
	logger ports.Logger

	wmu       sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewStream starts pumping rwc. capacity bounds the queued bytes.
func NewStream(rwc io.ReadWriteCloser, capacity int, logger ports.Logger) *Stream {
	s := &Stream{
		rwc:    rwc,
		q:      newByteQueue(capacity),
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

// OpenDevice opens a character device such as /dev/ttyUSB0 for reading and
// writing. Line settings are left to the system (e.g. stty).
func OpenDevice(path string, capacity int, logger ports.Logger) (*Stream, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w", path, err)
	}
	logger.Info("transport device opened", ports.String("device", path))
	return NewStream(f, capacity, logger), nil
}

func (s *Stream) pump() {
	buf := make([]byte, 256)
	for {
		n, err := s.rwc.Read(buf)
		if n > 0 && !s.q.push(s.done, buf[:n]) {
			return
		}
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("transport read ended", ports.Err(err))
				s.q.fail(err)
			}
			return
		}
	}
}

// Read copies queued bytes into p without blocking.
func (s *Stream) Read(p []byte) (int, error) {
	return s.q.read(p)
}

// Ack writes one acknowledgement byte.
func (s *Stream) Ack() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.rwc.Write([]byte{ports.AckByte})
	return err
}

// Close stops the pump and closes the stream.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.rwc.Close()
	})
	return err
}
