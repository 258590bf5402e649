package modes

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Policy selects the optional error-correction passes. Both default off;
// they trade CPU for sensitivity.
type Policy struct {
	// FixXoredCRCs enables single-bit correction of messages whose CRC is
	// XORed with the aircraft address, by matching candidate syndromes
	// against the registry of known addresses.
	FixXoredCRCs bool
	// FixTwoBit enables double-bit correction for messages that carry the
	// address inline. Double flips entirely inside the DF field are not
	// corrected.
	FixTwoBit bool
}

// Result describes a successfully decoded message.
type Result struct {
	ICAO uint32
	Bits int // 56 or 112
	// Emit is false when the message decoded but carries an invalid inline
	// address; the samples are consumed but no line is printed.
	Emit bool
}

// Decoder verifies and, when allowed by Policy, repairs demodulated
// messages. It owns no buffers; callers pass the hard-bit vector and retain
// it. Decoder methods may flip bits in place while correcting.
type Decoder struct {
	registry *Registry
	policy   Policy
	logger   *logrus.Logger
}

// NewDecoder creates a decoder backed by the given address registry.
func NewDecoder(registry *Registry, policy Policy, logger *logrus.Logger) *Decoder {
	return &Decoder{registry: registry, policy: policy, logger: logger}
}

func (d *Decoder) crcPass(rem uint32, addrInMsg bool) bool {
	if addrInMsg {
		return rem == 0
	}
	// The remainder of an address-XORed message is the transmitter's
	// address; success means we have heard that aircraft before.
	return d.registry.Contains(rem) == LookupKnown
}

// fixOneBit sweeps for a single flipped bit outside the DF field. On success
// the bit is flipped in place and its index returned; for the address-XORed
// branch the matched address is returned as well. The search is strictly
// ascending so the first matching position wins. DF bits are never touched
// here because flipping one changes the table slice in use.
func (d *Decoder) fixOneBit(bits *[MessageBitsMax]int, rem uint32, addrInMsg bool) (int, uint32, bool) {
	nbits := MessageBits(bits)
	if addrInMsg {
		for i := DFBits; i < nbits; i++ {
			if rem == crcMask(i, nbits) {
				bits[i] ^= 1
				return i, 0, true
			}
		}
	} else if d.policy.FixXoredCRCs {
		for i := DFBits; i < nbits; i++ {
			if icao := rem ^ crcMask(i, nbits); d.registry.Contains(icao) == LookupKnown {
				bits[i] ^= 1
				return i, icao, true
			}
		}
	}
	return 0, 0, false
}

// Decode runs the CRC decision and correction tiers over bits. It returns
// ok=false when the message stays undecodable after every permitted tier;
// the common case for noise-triggered candidates.
func (d *Decoder) Decode(bits *[MessageBitsMax]int) (Result, bool) {
	rem, addrInMsg := Checksum(bits)
	if d.crcPass(rem, addrInMsg) {
		d.traceOK(rem, addrInMsg)
		return d.finish(bits, rem, addrInMsg), true
	}

	addrInMsgOrig := addrInMsg

	// Tier 1: one flipped bit in the message body.
	if i, icao, ok := d.fixOneBit(bits, rem, addrInMsg); ok {
		d.logger.Debugf("CRC corrected [%d]", i)
		if addrInMsg {
			return d.finish(bits, rem, addrInMsg), true
		}
		return d.finish(bits, icao, addrInMsg), true
	}

	// Tier 2: one flipped bit in the DF field. Flipping a DF bit can change
	// the frame length and the CRC convention, so each position is tried
	// with a full recompute.
	for i := 0; i < DFBits; i++ {
		bits[i] ^= 1
		rem, addrInMsg = Checksum(bits)
		if d.crcPass(rem, addrInMsg) {
			d.logger.Debugf("CRC corrected [%d]", i)
			return d.finish(bits, rem, addrInMsg), true
		}
		if d.policy.FixTwoBit && addrInMsg {
			if j, _, ok := d.fixOneBit(bits, rem, addrInMsg); ok {
				d.logger.Debugf("CRC corrected [%d, %d]", i, j)
				return d.finish(bits, rem, addrInMsg), true
			}
		}
		bits[i] ^= 1
	}

	// Tier 3: two flipped bits in the body. Eligibility is decided by the
	// original format, but each altered message is reclassified and the
	// fresh syndrome drives the tier-1 retry.
	if d.policy.FixTwoBit && addrInMsgOrig {
		nbits := MessageBits(bits)
		for i := DFBits; i < nbits; i++ {
			bits[i] ^= 1
			rem, addrInMsg = Checksum(bits)
			if j, icao, ok := d.fixOneBit(bits, rem, addrInMsg); ok {
				d.logger.Debugf("CRC corrected [%d, %d]", i, j)
				if addrInMsg {
					return d.finish(bits, rem, addrInMsg), true
				}
				return d.finish(bits, icao, addrInMsg), true
			}
			bits[i] ^= 1
		}
	}

	return Result{}, false
}

// finish extracts the address, updates the registry and builds the Result.
// For inline-address formats the address lives in message bits 8..31; for
// the rest it is the CRC remainder handed in by the caller.
func (d *Decoder) finish(bits *[MessageBitsMax]int, icaoFromCRC uint32, addrInMsg bool) Result {
	res := Result{ICAO: icaoFromCRC, Bits: MessageBits(bits), Emit: true}
	if !addrInMsg {
		return res
	}

	var icao uint32
	for i := 8; i < 32; i++ {
		icao = icao<<1 | uint32(bits[i])
	}
	res.ICAO = icao

	seen := d.registry.Contains(icao)
	if !d.registry.Insert(icao) {
		d.logger.Warnf("valid message carries invalid ICAO address 0x%06x, dropping", icao)
		res.Emit = false
		return res
	}
	if seen == LookupUnknown {
		d.logger.Debugf("added aircraft 0x%06x", icao)
	}
	return res
}

func (d *Decoder) traceOK(rem uint32, addrInMsg bool) {
	if !d.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	if addrInMsg {
		d.logger.Debug("CRC OK")
	} else {
		d.logger.Debugf("CRC OK (known ICAO 0x%06x)", rem)
	}
}

// FormatLine renders one decoded message in the output format:
// a 14-digit sample index, the sub-sample phase as a percentage, the ICAO
// address and the payload in hex with the trailing CRC omitted.
func FormatLine(sampleIndex uint64, phasePct int, icao uint32, bits *[MessageBitsMax]int, nbits int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%014d.%02d: 0x%06x, 0x", sampleIndex, phasePct, icao)
	for i := 0; i < nbits-CRCBits; i += 4 {
		fmt.Fprintf(&b, "%x", bits[i]<<3|bits[i+1]<<2|bits[i+2]<<1|bits[i+3])
	}
	b.WriteByte(';')
	return b.String()
}
