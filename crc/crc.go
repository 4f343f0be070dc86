// Package crc implements Mk2 PV router record checksum.
// Sum of all bytes, low 6 bits, shifted into printable ASCII range.
package crc

const (
	Mod64Mask   byte = 0x3f
	Mod64Offset byte = 0x20
)

func Sum64(b []byte) byte {
	var sum byte
	for _, x := range b {
		sum += x
	}
	return (sum & Mod64Mask) + Mod64Offset
}

// Check64 verifies record where last byte is checksum.
// Sum covers all bytes except last areaEnd bytes; areaEnd=1 excludes only checksum itself.
// Empty record is never valid.
func Check64(record []byte, areaEnd int) (received, actual byte, ok bool) {
	if len(record) == 0 {
		return 0, 0, false
	}
	n := len(record) - areaEnd
	if n < 0 {
		n = 0
	} else if n > len(record) {
		n = len(record)
	}
	received = record[len(record)-1]
	actual = Sum64(record[:n])
	return received, actual, received == actual
}

// Append64 appends checksum of b to b, for areaEnd=1.
func Append64(b []byte) []byte {
	return append(b, Sum64(b))
}
