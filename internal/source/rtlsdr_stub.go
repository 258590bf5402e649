//go:build !cgo

package source

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// Radio is a stub for builds without cgo; librtlsdr is unavailable, so only
// offline replay works.
type Radio struct{}

var errNoCgo = errors.New("RTL-SDR hardware support requires a cgo build; offline decoding from a dump file still works")

// OpenRadio always fails without cgo.
func OpenRadio(index int, logger *logrus.Logger) (*Radio, error) {
	return nil, errNoCgo
}

// Configure always fails without cgo.
func (r *Radio) Configure(frequency, sampleRate, gainTenths int) error { return errNoCgo }

// Run always fails without cgo.
func (r *Radio) Run(m *Mailbox, blockSize int) error { return errNoCgo }

// RunDump always fails without cgo.
func (r *Radio) RunDump(w io.Writer, blockSize int) error { return errNoCgo }

// Cancel is a no-op without cgo.
func (r *Radio) Cancel() {}

// Close is a no-op without cgo.
func (r *Radio) Close() error { return nil }
