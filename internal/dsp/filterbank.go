package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default pipeline geometry. FilterLen must stay a power of two so the
// interpolation loop strides align.
const (
	DefaultFilterLen = 32
	DefaultNFilters  = 4
)

// FilterBank holds NFilters fractional-delay FIR kernels of FilterLen taps
// each. Kernel i is a Hann-windowed sinc whose center sits i/NFilters of a
// sample period before the reference kernel, so applying all of them yields
// NFilters evenly spaced sub-sample phases per input sample. Built once,
// read-only afterwards.
type FilterBank struct {
	NFilters  int
	FilterLen int
	Coeffs    [][]float32
}

// NewFilterBank computes the kernel set.
//
// The Hann window is parameterized with filterLen+1 points so that the first
// tap is nonzero and the last is zero: the trailing tap slides out of the
// array as the kernels shift in time, while a leading zero would waste a tap
// that always falls inside it. The peak tap sits at filterLen/2-1 where the
// sinc argument crosses zero.
func NewFilterBank(nFilters, filterLen int) *FilterBank {
	fb := &FilterBank{
		NFilters:  nFilters,
		FilterLen: filterLen,
		Coeffs:    make([][]float32, nFilters),
	}

	for i := 0; i < nFilters; i++ {
		fb.Coeffs[i] = make([]float32, filterLen)
		frac := float64(i) / float64(nFilters)
		for j := 0; j < filterLen; j++ {
			window := 0.5 * (1.0 - math.Cos(2*math.Pi*(float64(j+1)-frac)/float64(filterLen)))
			x := math.Pi * (float64(j) - float64(filterLen/2-1) - frac)
			sinc := 1.0
			if x != 0 {
				sinc = math.Sin(x) / x
			}
			fb.Coeffs[i][j] = float32(sinc * window)
		}
	}
	return fb
}

// DCGain returns the zero-frequency gain of kernel i. A fractional-delay
// interpolator should be transparent to a constant signal, so this is 1
// within the truncation error of the windowed sinc.
func (fb *FilterBank) DCGain(i int) float64 {
	taps := make([]float64, fb.FilterLen)
	for j, c := range fb.Coeffs[i] {
		taps[j] = float64(c)
	}
	return floats.Sum(taps)
}
