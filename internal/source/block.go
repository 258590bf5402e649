package source

// Block is one processing block of complex baseband samples, split into
// parallel re/im arrays for the interpolator. Both arrays carry `padding`
// extra samples past the block so the FIR loop never branches at the edge;
// the padding is set once to a 1.0 sentinel and never cleared, which keeps
// the normalized correlator's denominator non-zero at the tail.
type Block struct {
	Re, Im []float32
	Index  uint64

	size int
}

// NewBlock allocates a block of size complex samples plus padding.
func NewBlock(size, padding int) *Block {
	b := &Block{
		Re:   make([]float32, size+padding),
		Im:   make([]float32, size+padding),
		size: size,
	}
	for i := range b.Re {
		b.Re[i] = 1.0
		b.Im[i] = 1.0
	}
	return b
}

// Size returns the number of payload samples per block.
func (b *Block) Size() int { return b.size }

// Fill converts one block of interleaved offset-binary IQ bytes into floats
// and stamps the block index. raw must hold exactly 2*Size() bytes. The
// loop is straight-line so it vectorizes.
func (b *Block) Fill(raw []byte, index uint64) {
	re, im := b.Re, b.Im
	for i := 0; i < b.size; i++ {
		re[i] = float32(raw[2*i]) - 128.0
		im[i] = float32(raw[2*i+1]) - 128.0
	}
	b.Index = index
}
