package pvrouter

import "github.com/temoto/mk2pvrouter/crc"

// AppendRecord appends LF tag TAB value TAB checksum CR, checksum per ChecksumAreaEnd=1.
// Used by tests and CLI to simulate device output.
func AppendRecord(b []byte, tag, value string) []byte {
	b = append(b, LineFeed)
	start := len(b)
	b = append(b, tag...)
	b = append(b, Tab)
	b = append(b, value...)
	b = append(b, Tab)
	b = append(b, crc.Sum64(b[start:]))
	return append(b, CarriageReturn)
}

// EncodeFrame returns complete frame with start/end markers.
func EncodeFrame(ms ...Measurement) []byte {
	b := make([]byte, 0, 2+len(ms)*(TagSize+ValueSize+4))
	b = append(b, StartFrame)
	for _, m := range ms {
		b = AppendRecord(b, m.Tag, m.Value)
	}
	return append(b, EndFrame)
}
