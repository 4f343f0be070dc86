package pvrouter

import "bytes"

const (
	StartFrame     byte = 0x02
	EndFrame       byte = 0x03
	LineFeed       byte = 0x0a
	CarriageReturn byte = 0x0d
	Tab            byte = 0x09
)

const (
	// sizes include terminator slot, so content fits in size-1 bytes
	TagSize   = 16
	ValueSize = 16
)

// ExtractField copies region bytes up to first Tab into dst and terminates with 0.
// ok=false: no delimiter in region.
// n>=len(dst): field does not fit, dst is not touched.
func ExtractField(dst, region []byte) (n int, ok bool) {
	n = bytes.IndexByte(region, Tab)
	if n < 0 {
		return 0, false
	}
	if n >= len(dst) {
		return n, true
	}
	copy(dst, region[:n])
	dst[n] = 0
	return n, true
}

// validField reports whether ExtractField result may be used.
func validField(dst []byte, n int, ok bool) bool {
	return ok && n > 0 && n < len(dst)
}
