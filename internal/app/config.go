package app

import (
	"modesrx/internal/dsp"
	"modesrx/internal/modes"
)

// Receiver defaults. The block size must be a multiple of 256 so the
// librtlsdr transfer buffers stay a multiple of 512 bytes.
const (
	DefaultFrequency  = 1090000000 // Mode S downlink
	DefaultSampleRate = 2000000    // 2 Msps, two samples per bit
	DefaultBlockSize  = 256 * 1024
)

// Config holds the receiver configuration. The DSP geometry fields exist as
// tuning knobs; the defaults match the air interface and rarely change.
type Config struct {
	Frequency   int
	SampleRate  int
	GainTenths  int // tenths of dB, 0 selects the maximum available
	DeviceIndex int

	BlockSize    int
	NFilters     int
	FilterLen    int
	RegistrySize int

	DetectThresh float32
	FixXoredCRCs bool
	FixTwoBit    bool

	InputPath string // offline decode from a raw dump
	DumpPath  string // live capture to a raw dump, no decoding
	LogDir    string // optional rotating copy of the output stream
	UseUTC    bool

	Verbose     bool
	ShowVersion bool
}

// DefaultConfig returns the stock receiver configuration.
func DefaultConfig() Config {
	return Config{
		Frequency:    DefaultFrequency,
		SampleRate:   DefaultSampleRate,
		BlockSize:    DefaultBlockSize,
		NFilters:     dsp.DefaultNFilters,
		FilterLen:    dsp.DefaultFilterLen,
		RegistrySize: modes.DefaultRegistrySize,
		UseUTC:       true,
	}
}
