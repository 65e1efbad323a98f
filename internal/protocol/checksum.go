// internal/protocol/checksum.go
package protocol

// crcPoly is the CCITT polynomial used by the scale firmware.
const crcPoly uint16 = 0x1021

// Checksum computes the frame checksum over payload bytes only.
//
// This is the bit-wise variant implemented by the scale firmware. It does not
// match table-driven CRC-16/CCITT (or XMODEM) and must not be replaced by one.
func Checksum(payload []byte) uint16 {
	var crc uint16

	for _, b := range payload {
		var acc uint16
		reg := (crc >> 8) << 8

		for bit := 0; bit < 8; bit++ {
			if (reg^acc)&0x8000 != 0 {
				acc = (acc << 1) ^ crcPoly
			} else {
				acc <<= 1
			}
			reg <<= 1
		}

		crc = acc ^ (crc << 8) ^ uint16(b)
	}

	return crc
}
