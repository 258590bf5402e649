package dsp

import (
	"github.com/sirupsen/logrus"

	"modesrx/internal/modes"
	"modesrx/internal/source"
)

// Mode S air interface timing at 2 Msps: one bit is two half-bit slots of
// one sample each, and the preamble spans 16 slots with pulses in slots
// 0, 2, 7 and 9.
const (
	SamplesPerBit   = 2
	PreambleSamples = 16
)

// denFloor guards the normalized correlator against a vanishing denominator.
// The 1.0 padding sentinel already keeps the buffer tails non-zero; this
// additionally catches an all-zero stretch inside a block.
const denFloor = 1e-6

// Params fixes the pipeline geometry. BlockSize is the number of complex
// samples handed over per block; DetectThresh is the normalized correlation
// a candidate must exceed (0 means mark and space energy in balance).
type Params struct {
	NFilters     int
	FilterLen    int
	BlockSize    int
	DetectThresh float32
}

// Emitter receives successfully decoded messages. sampleStart is the first
// payload sample (the preamble already skipped), so the emitted timestamp is
// blockIndex*BlockSize + sampleStart.
type Emitter interface {
	Emit(blockIndex uint64, sampleStart, filterNo int, res modes.Result, bits *[modes.MessageBitsMax]int)
}

// Stats counts pipeline activity for periodic reporting.
type Stats struct {
	Blocks     uint64
	Candidates uint64 // demodulation attempts
	CrossBlock uint64 // candidates dropped at the block boundary
	Decoded    uint64 // messages that passed or were corrected
	Emitted    uint64 // decoded messages actually printed
}

// Pipeline owns every buffer of the decode chain: the filter bank, the
// per-phase magnitude and correlation matrices and the demodulation
// vectors. All of it is touched only by the processing worker; the matrices
// are overwritten block by block.
type Pipeline struct {
	params Params
	bank   *FilterBank

	// interp holds |interpolated|^2 per phase, padded by PreambleSamples
	// and initialized to 1.0 so stale tail energy never divides by zero or
	// scores as a preamble.
	interp [][]float32
	detect [][]float32

	soft [modes.MessageBitsMax]float32
	hard [modes.MessageBitsMax]int

	dec    *modes.Decoder
	emit   Emitter
	logger *logrus.Logger
	stats  Stats
}

// NewPipeline builds the buffers and the filter bank.
func NewPipeline(params Params, dec *modes.Decoder, emit Emitter, logger *logrus.Logger) *Pipeline {
	p := &Pipeline{
		params: params,
		bank:   NewFilterBank(params.NFilters, params.FilterLen),
		interp: make([][]float32, params.NFilters),
		detect: make([][]float32, params.NFilters),
		dec:    dec,
		emit:   emit,
		logger: logger,
	}
	for i := 0; i < params.NFilters; i++ {
		p.interp[i] = make([]float32, params.BlockSize+PreambleSamples)
		for j := range p.interp[i] {
			p.interp[i][j] = 1.0
		}
		p.detect[i] = make([]float32, params.BlockSize)
	}
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		for i := 0; i < params.NFilters; i++ {
			logger.WithFields(logrus.Fields{
				"filter":  i,
				"dc_gain": p.bank.DCGain(i),
			}).Debug("filter kernel")
		}
	}
	return p
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// Process runs one IQ block end to end: interpolate, correlate, then walk
// the correlation matrix for candidates and decode them in chronological
// order.
func (p *Pipeline) Process(blk *source.Block) {
	p.interpolate(blk)
	p.correlate()
	p.search(blk.Index)
	p.stats.Blocks++
}

// interpolate applies each fractional-delay kernel along the block and
// stores squared magnitudes. The inner loops are straight-line float32
// arithmetic over contiguous buffers so the compiler can vectorize them.
func (p *Pipeline) interpolate(blk *source.Block) {
	filterLen := p.params.FilterLen
	blockSize := p.params.BlockSize
	re, im := blk.Re, blk.Im
	for i := 0; i < p.params.NFilters; i++ {
		coeffs := p.bank.Coeffs[i]
		out := p.interp[i]
		for j := 0; j < blockSize; j++ {
			var accRe, accIm float32
			for k := 0; k < filterLen; k++ {
				accRe += re[j+k] * coeffs[k]
				accIm += im[j+k] * coeffs[k]
			}
			out[j] = accRe*accRe + accIm*accIm
		}
	}
}

// correlate matches the preamble pattern -_-____-_-______ at every phase and
// sample: pulses at slots 0, 2, 7 and 9 count positive, the other twelve
// negative, normalized by the total energy of the sixteen slots so the
// score is independent of signal strength.
func (p *Pipeline) correlate() {
	blockSize := p.params.BlockSize
	for i := 0; i < p.params.NFilters; i++ {
		m := p.interp[i]
		out := p.detect[i]
		for j := 0; j < blockSize; j++ {
			num := m[j+0] - m[j+1] + m[j+2] - m[j+3] -
				m[j+4] - m[j+5] - m[j+6] + m[j+7] -
				m[j+8] + m[j+9] - m[j+10] - m[j+11] -
				m[j+12] - m[j+13] - m[j+14] - m[j+15]
			den := m[j+0] + m[j+1] + m[j+2] + m[j+3] +
				m[j+4] + m[j+5] + m[j+6] + m[j+7] +
				m[j+8] + m[j+9] + m[j+10] + m[j+11] +
				m[j+12] + m[j+13] + m[j+14] + m[j+15]
			if den < denFloor {
				out[j] = -1.0
				continue
			}
			out[j] = num / den
		}
	}
}

// search walks the correlation matrix in chronological order (sample major,
// phase minor) and keeps a running maximum per above-threshold run. The run
// ends at the first below-threshold score, at which point the stored
// maximum becomes the decode candidate; ties go to the earliest sample and
// then the lowest phase because later equal scores never displace the
// maximum. Successful decodes advance the walk past the consumed samples so
// overlapping candidates are suppressed.
func (p *Pipeline) search(blockIndex uint64) {
	thresh := p.params.DetectThresh
	blockSize := p.params.BlockSize
	maxCorr := thresh - 1.0
	maxI, maxJ := 0, 0

	for j := 0; j < blockSize; j++ {
		for i := 0; i < p.params.NFilters; i++ {
			if p.detect[i][j] > thresh {
				if p.detect[i][j] > maxCorr {
					maxCorr = p.detect[i][j]
					maxI, maxJ = i, j
				}
			} else if maxCorr > thresh {
				// A long message needs 224 samples beyond the candidate
				// start; without that room the frame would straddle the
				// next block and is dropped.
				if blockSize-maxJ >= modes.MessageBitsMax*SamplesPerBit {
					j += p.demodDecode(blockIndex, maxI, maxJ)
				} else {
					p.stats.CrossBlock++
				}
				maxCorr = thresh - 1.0
				break
			}
		}
	}
}

// demodDecode soft-demodulates the PPM payload at (filterNo, start) and
// hands the hard bits to the decoder. All 112 bits are demodulated
// unconditionally; the frame length is decided downstream from bit 0. The
// return value is the number of samples consumed, zero when undecodable.
func (p *Pipeline) demodDecode(blockIndex uint64, filterNo, start int) int {
	start += PreambleSamples
	m := p.interp[filterNo]
	for k := 0; k < modes.MessageBitsMax; k++ {
		a := m[start+2*k]
		b := m[start+2*k+1]
		p.soft[k] = 0.5 + 0.5*(a-b)/(a+b)
		if p.soft[k] > 0.5 {
			p.hard[k] = 1
		} else {
			p.hard[k] = 0
		}
	}

	p.stats.Candidates++
	res, ok := p.dec.Decode(&p.hard)
	if !ok {
		return 0
	}
	p.stats.Decoded++
	if res.Emit {
		p.stats.Emitted++
		p.emit.Emit(blockIndex, start, filterNo, res, &p.hard)
	}
	return res.Bits * SamplesPerBit
}
