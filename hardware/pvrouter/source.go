package pvrouter

import (
	"bytes"
	"io"
	"sync"
)

// Source is non-blocking input byte stream.
// ReadByte is only called after Available() > 0.
type Source interface {
	Available() int
	ReadByte() (byte, error)
}

// MockSource is Source backed by memory buffer, for tests and CLI.
// Feed is safe to call concurrently with reads.
type MockSource struct {
	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

func NewMockSource(b []byte) *MockSource {
	m := &MockSource{}
	m.Feed(b)
	return m
}

func (self *MockSource) Feed(b []byte) {
	self.mu.Lock()
	self.buf.Write(b)
	self.mu.Unlock()
}

// FailNext makes next ReadByte return err once.
func (self *MockSource) FailNext(err error) {
	self.mu.Lock()
	self.err = err
	self.mu.Unlock()
}

func (self *MockSource) Available() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.err != nil {
		return 1
	}
	return self.buf.Len()
}

func (self *MockSource) ReadByte() (byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.err != nil {
		err := self.err
		self.err = nil
		return 0, err
	}
	b, err := self.buf.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return b, err
}
