package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setDF writes the 5-bit downlink format field.
func setDF(bits *[MessageBitsMax]int, df int) {
	for k := 0; k < DFBits; k++ {
		bits[k] = (df >> (DFBits - 1 - k)) & 1
	}
}

// setICAOBits writes a 24-bit address into message bits 8..31.
func setICAOBits(bits *[MessageBitsMax]int, icao uint32) {
	for k := 0; k < ICAOBits; k++ {
		bits[8+k] = int(icao>>(23-k)) & 1
	}
}

// finalizeCRC rewrites the trailing 24 bits so the message's CRC remainder
// equals xor (zero for plain-CRC formats, the ICAO address for XORed ones).
// The trailing table entries are single-bit identities, which makes this a
// direct substitution.
func finalizeCRC(bits *[MessageBitsMax]int, xor uint32) {
	n := MessageBits(bits)
	for k := 0; k < CRCBits; k++ {
		bits[n-CRCBits+k] = 0
	}
	rem, _ := Checksum(bits)
	rem ^= xor
	for k := 0; k < CRCBits; k++ {
		bits[n-CRCBits+k] = int(rem>>(23-k)) & 1
	}
}

// makeDF17 builds a long extended squitter with a valid plain CRC.
func makeDF17(icao uint32) [MessageBitsMax]int {
	var bits [MessageBitsMax]int
	setDF(&bits, 17)
	setICAOBits(&bits, icao)
	finalizeCRC(&bits, 0)
	return bits
}

// makeDF4 builds a short surveillance reply whose CRC remainder is the
// transmitter's address.
func makeDF4(icao uint32) [MessageBitsMax]int {
	var bits [MessageBitsMax]int
	setDF(&bits, 4)
	bits[19] = 1 // arbitrary altitude content
	bits[22] = 1
	finalizeCRC(&bits, icao)
	return bits
}

func TestChecksumValidFrames(t *testing.T) {
	long := makeDF17(0xABCDEF)
	rem, addrInMsg := Checksum(&long)
	assert.Equal(t, uint32(0), rem)
	assert.True(t, addrInMsg)

	short := makeDF4(0xABCDEF)
	rem, addrInMsg = Checksum(&short)
	assert.Equal(t, uint32(0xABCDEF), rem)
	assert.False(t, addrInMsg)
}

func TestChecksumFormatBucket(t *testing.T) {
	tests := []struct {
		df        int
		addrInMsg bool
	}{
		{11, true},
		{17, true},
		{18, true},
		{0, false},
		{4, false},
		{5, false},
		{16, false},
		{20, false},
		{21, false},
	}
	for _, tt := range tests {
		var bits [MessageBitsMax]int
		setDF(&bits, tt.df)
		_, addrInMsg := Checksum(&bits)
		assert.Equal(t, tt.addrInMsg, addrInMsg, "DF%d", tt.df)
	}
}

// Flipping any single bit must shift the remainder by exactly that bit's
// table entry, for both frame lengths.
func TestChecksumSyndromeProperty(t *testing.T) {
	long := makeDF17(0x4840D6)
	base, _ := Checksum(&long)
	require.Equal(t, uint32(0), base)
	for i := 0; i < MessageBitsMax; i++ {
		long[i] ^= 1
		rem, _ := Checksum(&long)
		long[i] ^= 1
		if i < DFBits {
			continue // a DF flip can change the frame length
		}
		assert.Equal(t, crcTable[i], rem^base, "long bit %d", i)
	}

	short := makeDF4(0x4840D6)
	base, _ = Checksum(&short)
	for i := DFBits; i < MessageBitsShort; i++ {
		short[i] ^= 1
		rem, _ := Checksum(&short)
		short[i] ^= 1
		assert.Equal(t, crcTable[i+MessageBitsShort], rem^base, "short bit %d", i)
	}
}

func TestMessageBits(t *testing.T) {
	var bits [MessageBitsMax]int
	assert.Equal(t, MessageBitsShort, MessageBits(&bits))
	bits[0] = 1
	assert.Equal(t, MessageBitsMax, MessageBits(&bits))
}

// The trailing 24 table entries are the identities of the CRC field itself;
// finalizeCRC and the error corrector both rely on that.
func TestCRCTableTail(t *testing.T) {
	for k := 0; k < CRCBits; k++ {
		assert.Equal(t, uint32(1)<<(23-k), crcTable[MessageBitsMax-CRCBits+k])
	}
}
