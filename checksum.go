package df1comm

// Checksum accumulates either a BCC or a CRC-16 over a stream of bytes,
// the way hash.Hash accumulates a running digest. Feeding it a whole slice
// via Write or one byte at a time via WriteByte produce the same result,
// satisfying §4.A's requirement that the same algorithm work over both an
// array and an iterator/collection view.
type Checksum struct {
	kind ChecksumKind
	sum  int
	crc  uint16
}

// NewChecksum starts a fresh accumulator for the given algorithm.
func NewChecksum(kind ChecksumKind) *Checksum {
	return &Checksum{kind: kind}
}

// Write implements io.Writer.
func (c *Checksum) Write(p []byte) (int, error) {
	for _, b := range p {
		c.WriteByte(b)
	}
	return len(p), nil
}

// WriteByte feeds a single byte into the accumulator.
func (c *Checksum) WriteByte(b byte) error {
	switch c.kind {
	case ChecksumCRC:
		c.crc = crcStep(c.crc, b)
	default:
		c.sum += int(b)
	}
	return nil
}

// Bytes finalizes the checksum and returns its wire form: one byte for BCC,
// two little-endian bytes for CRC. Only CRC mixes in a synthetic ETX (0x03)
// byte that is never actually written to the underlying stream — §4.A states
// the ETX mix-in for CRC-16 alone; BCC is the plain two's-complement sum of
// the payload bytes with no ETX term, per §4.A's formula and §8's invariant
// `(Σp + BCC(p)) mod 256 == 0`.
func (c *Checksum) Bytes() []byte {
	switch c.kind {
	case ChecksumCRC:
		final := crcStep(c.crc, 0x03)
		return []byte{byte(final), byte(final >> 8)}
	default:
		total := c.sum % 0x100
		return []byte{byte((0x100 - total) % 0x100)}
	}
}

// Sum is a convenience wrapper for the common case of checksumming a whole
// payload slice in one call.
func Sum(kind ChecksumKind, payload []byte) []byte {
	c := NewChecksum(kind)
	c.Write(payload)
	return c.Bytes()
}

// crcStep advances the reflected CRC-16 (poly 0xA001, the DF1/Modbus-style
// variant) by one byte.
func crcStep(crc uint16, b byte) uint16 {
	crc ^= uint16(b)
	for i := 0; i < 8; i++ {
		if crc&1 != 0 {
			crc = (crc >> 1) ^ 0xA001
		} else {
			crc >>= 1
		}
	}
	return crc
}
