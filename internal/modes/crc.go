package modes

// Mode S frame geometry. The downlink format field occupies the first five
// bits of every message and selects between the short (56 bit) and long
// (112 bit) frame lengths via its MSB.
const (
	MessageBitsMax   = 112
	MessageBitsShort = 56
	DFBits           = 5
	CRCBits          = 24
)

// crcTable holds the 24-bit remainder contribution of each message bit for a
// 112-bit frame (Annex 10 polynomial 0xfff409). A short frame uses the last
// 56 entries. Entries 88..111 are the identities of the CRC field itself.
var crcTable = [MessageBitsMax]uint32{
	0x3935ea, 0x1c9af5, 0xf1b77e, 0x78dbbf, 0xc397db, 0x9e31e9, 0xb0e2f0, 0x587178,
	0x2c38bc, 0x161c5e, 0x0b0e2f, 0xfa7d13, 0x82c48d, 0xbe9842, 0x5f4c21, 0xd05c14,
	0x682e0a, 0x341705, 0xe5f186, 0x72f8c3, 0xc68665, 0x9cb936, 0x4e5c9b, 0xd8d449,
	0x939020, 0x49c810, 0x24e408, 0x127204, 0x093902, 0x049c81, 0xfdb444, 0x7eda22,
	0x3f6d11, 0xe04c8c, 0x702646, 0x381323, 0xe3f395, 0x8e03ce, 0x4701e7, 0xdc7af7,
	0x91c77f, 0xb719bb, 0xa476d9, 0xadc168, 0x56e0b4, 0x2b705a, 0x15b82d, 0xf52612,
	0x7a9309, 0xc2b380, 0x6159c0, 0x30ace0, 0x185670, 0x0c2b38, 0x06159c, 0x030ace,
	0x018567, 0xff38b7, 0x80665f, 0xbfc92b, 0xa01e91, 0xaff54c, 0x57faa6, 0x2bfd53,
	0xea04ad, 0x8af852, 0x457c29, 0xdd4410, 0x6ea208, 0x375104, 0x1ba882, 0x0dd441,
	0xf91024, 0x7c8812, 0x3e4409, 0xe0d800, 0x706c00, 0x383600, 0x1c1b00, 0x0e0d80,
	0x0706c0, 0x038360, 0x01c1b0, 0x00e0d8, 0x00706c, 0x003836, 0x001c1b, 0xfff409,
	0x800000, 0x400000, 0x200000, 0x100000, 0x080000, 0x040000, 0x020000, 0x010000,
	0x008000, 0x004000, 0x002000, 0x001000, 0x000800, 0x000400, 0x000200, 0x000100,
	0x000080, 0x000040, 0x000020, 0x000010, 0x000008, 0x000004, 0x000002, 0x000001,
}

// MessageBits returns the frame length selected by the first message bit.
func MessageBits(bits *[MessageBitsMax]int) int {
	if bits[0] != 0 {
		return MessageBitsMax
	}
	return MessageBitsShort
}

// Checksum computes the CRC-24 remainder of the message in bits. The frame
// length is taken from bit 0. addrInMsg reports the format bucket: DF11,
// DF17 and DF18 carry the ICAO address inline and leave the CRC plain; every
// other format XORs the CRC with the address, so a non-zero remainder is
// syndrome ^ ICAO.
func Checksum(bits *[MessageBitsMax]int) (remainder uint32, addrInMsg bool) {
	var crc uint32
	if bits[0] != 0 {
		for i := 0; i < MessageBitsMax; i++ {
			crc ^= uint32(bits[i]) * crcTable[i]
		}
	} else {
		for i := 0; i < MessageBitsShort; i++ {
			crc ^= uint32(bits[i]) * crcTable[i+MessageBitsShort]
		}
	}

	// DF17 (10001), DF18 (10010), DF11 (01011).
	if (bits[0] == 1 && bits[1] == 0 && bits[2] == 0 && bits[3] == 0 && bits[4] == 1) ||
		(bits[0] == 1 && bits[1] == 0 && bits[2] == 0 && bits[3] == 1 && bits[4] == 0) ||
		(bits[0] == 0 && bits[1] == 1 && bits[2] == 0 && bits[3] == 1 && bits[4] == 1) {
		return crc, true
	}
	return crc, false
}

// crcMask returns the remainder contribution of message bit i for the given
// frame length.
func crcMask(i, nbits int) uint32 {
	if nbits == MessageBitsShort {
		return crcTable[i+MessageBitsShort]
	}
	return crcTable[i]
}
