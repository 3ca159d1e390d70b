package protocol

// Checksum computes the CRC16-CCITT (reflected, init 0xFFFF) used to
// protect frames. Check value for "123456789" is 0x6F91.
func Checksum(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc & 0xFF)
		b ^= b << 4
		w := uint16(b)
		crc = (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
	}
	return crc
}
