//go:build !linux

package uart

import (
	"github.com/juju/errors"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/log2"
)

// fileUart needs linux termios, use driver=serial elsewhere.
type fileUart struct{ log *log2.Log }

func NewFileUart(log *log2.Log) *fileUart { return &fileUart{log: log} }

func (self *fileUart) Open(c uart_config.Config) error {
	return errors.NotSupportedf("uart driver=file on this platform")
}
func (self *fileUart) Available() int          { return 0 }
func (self *fileUart) ReadByte() (byte, error) { return 0, ErrNoData }
func (self *fileUart) Close() error            { return nil }
