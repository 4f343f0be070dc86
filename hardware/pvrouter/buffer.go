package pvrouter

// 198 bytes is enough for full historical mode session with three phases,
// device firmware uses 1048 to be sure.
const BufferSize = 1048

// Buffer accumulates frame bytes between start and end markers.
// Last slot is never filled, like device firmware does.
type Buffer struct {
	b [BufferSize]byte
	l int
}

// Append returns false when buffer is full, b is not stored then.
func (self *Buffer) Append(b byte) bool {
	if self.l >= BufferSize-1 {
		return false
	}
	self.b[self.l] = b
	self.l++
	return true
}

func (self *Buffer) Bytes() []byte { return self.b[:self.l] }
func (self *Buffer) Len() int      { return self.l }
func (self *Buffer) Cap() int      { return BufferSize - 1 }
func (self *Buffer) Reset()        { self.l = 0 }
