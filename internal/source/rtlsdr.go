//go:build cgo

package source

import (
	"errors"
	"fmt"
	"io"

	rtlsdr "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"
)

// Radio drives an RTL2832-based dongle through librtlsdr. It is the
// hardware producer variant: the async read callback fills one mailbox
// block per delivery and signals the worker.
type Radio struct {
	dev    *rtlsdr.Context
	logger *logrus.Logger
}

// OpenRadio enumerates devices, reports them on the diagnostic stream and
// opens the one at index.
func OpenRadio(index int, logger *logrus.Logger) (*Radio, error) {
	count := rtlsdr.GetDeviceCount()
	if count == 0 {
		return nil, errors.New("no RTL-SDR devices found")
	}
	for i := 0; i < count; i++ {
		vendor, product, serial, err := rtlsdr.GetDeviceUsbStrings(i)
		if err != nil {
			continue
		}
		logger.WithFields(logrus.Fields{
			"index":    i,
			"vendor":   vendor,
			"product":  product,
			"serial":   serial,
			"selected": i == index,
		}).Info("RTL-SDR device")
	}
	if index >= count {
		return nil, fmt.Errorf("no RTL-SDR device at index %d", index)
	}

	dev, err := rtlsdr.Open(index)
	if err != nil {
		return nil, fmt.Errorf("opening RTL-SDR device %d: %w", index, err)
	}
	return &Radio{dev: dev, logger: logger}, nil
}

// Configure tunes the dongle: baseband AGC on, manual tuner gain (the
// maximum available when gainTenths is zero), then frequency and sample
// rate. The achieved values are read back and reported, and the device
// buffer is purged before streaming starts.
func (r *Radio) Configure(frequency, sampleRate, gainTenths int) error {
	if err := r.dev.SetAgcMode(true); err != nil {
		return fmt.Errorf("setting AGC mode: %w", err)
	}
	if err := r.dev.SetTunerGainMode(true); err != nil {
		return fmt.Errorf("setting manual gain mode: %w", err)
	}
	if gainTenths == 0 {
		gains, err := r.dev.GetTunerGains()
		if err != nil || len(gains) == 0 {
			return fmt.Errorf("querying tuner gains: %w", err)
		}
		gainTenths = gains[len(gains)-1]
	}
	if err := r.dev.SetTunerGain(gainTenths); err != nil {
		return fmt.Errorf("setting tuner gain: %w", err)
	}
	if err := r.dev.SetCenterFreq(frequency); err != nil {
		return fmt.Errorf("setting center frequency: %w", err)
	}
	if err := r.dev.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("setting sample rate: %w", err)
	}
	if err := r.dev.ResetBuffer(); err != nil {
		return fmt.Errorf("resetting device buffer: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"gain_db":     float64(r.dev.GetTunerGain()) / 10.0,
		"frequency":   r.dev.GetCenterFreq(),
		"sample_rate": r.dev.GetSampleRate(),
	}).Info("RTL-SDR configured")
	return nil
}

// Run streams IQ blocks into the mailbox until Cancel. Each callback must
// deliver exactly one block; any other length breaks the contract with the
// processing pipeline and is fatal.
func (r *Radio) Run(m *Mailbox, blockSize int) error {
	var next uint64
	cb := func(data []byte) {
		if m.Exiting() {
			if err := r.dev.CancelAsync(); err != nil {
				r.logger.WithError(err).Error("canceling async read")
			}
			return
		}
		if len(data) != 2*blockSize {
			r.logger.Fatalf("callback delivered %d bytes, want %d", len(data), 2*blockSize)
		}
		if !m.Claim() {
			return
		}
		m.Slot().Fill(data, next)
		next++
		m.Commit()
	}

	if err := r.dev.ReadAsync(cb, nil, 0, 2*blockSize); err != nil {
		return fmt.Errorf("async read: %w", err)
	}
	return nil
}

// RunDump streams raw IQ bytes to w without decoding.
func (r *Radio) RunDump(w io.Writer, blockSize int) error {
	cb := func(data []byte) {
		if _, err := w.Write(data); err != nil {
			r.logger.WithError(err).Error("writing dump")
			r.dev.CancelAsync()
		}
	}
	if err := r.dev.ReadAsync(cb, nil, 0, 2*blockSize); err != nil {
		return fmt.Errorf("async read: %w", err)
	}
	return nil
}

// Cancel stops the async read loop; Run/RunDump return after the library
// drains.
func (r *Radio) Cancel() {
	if err := r.dev.CancelAsync(); err != nil {
		r.logger.WithError(err).Debug("canceling async read")
	}
}

// Close releases the device.
func (r *Radio) Close() error {
	if r.dev == nil {
		return nil
	}
	return r.dev.Close()
}
