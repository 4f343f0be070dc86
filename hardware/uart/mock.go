package uart

import (
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
)

// MockUart is in-memory Uarter for tests and CLI, feed it with Feed().
type MockUart struct {
	*pvrouter.MockSource
	Config uart_config.Config
	Closed bool
}

func NewMockUart(b []byte) *MockUart {
	return &MockUart{MockSource: pvrouter.NewMockSource(b)}
}

func (self *MockUart) Open(c uart_config.Config) error {
	self.Config = c
	self.Closed = false
	return nil
}

func (self *MockUart) Close() error {
	self.Closed = true
	return nil
}
