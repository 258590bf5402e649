package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FileSource replays a raw IQ dump through the mailbox with the same
// contract as the hardware producer: fill one block, signal. It reserves
// the slot before reading, so replay is demand-paced and never reports
// overflow; a short read ends the stream and the partial block is never
// processed.
type FileSource struct {
	f      *os.File
	raw    []byte
	next   uint64
	logger *logrus.Logger
}

// NewFileSource opens a raw dump of interleaved unsigned 8-bit IQ samples.
func NewFileSource(path string, blockSize int, logger *logrus.Logger) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump file: %w", err)
	}
	return &FileSource{
		f:      f,
		raw:    make([]byte, 2*blockSize),
		logger: logger,
	}, nil
}

// Run feeds blocks until end of stream or shutdown, then signals shutdown
// itself so the worker drains and returns.
func (s *FileSource) Run(m *Mailbox) {
	for {
		if !m.Reserve() {
			return
		}
		n, err := io.ReadFull(s.f, s.raw)
		if n < len(s.raw) {
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.WithError(err).Error("reading dump file")
			}
			s.logger.WithField("blocks", s.next).Info("end of dump")
			m.Shutdown()
			return
		}
		m.Slot().Fill(s.raw, s.next)
		s.next++
		m.Commit()
	}
}

// Close closes the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }
