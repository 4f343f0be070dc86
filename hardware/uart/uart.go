// Package uart provides non-blocking serial byte sources for pvrouter.
package uart

import (
	"github.com/juju/errors"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/log2"
)

// ErrNoData is returned by ReadByte when nothing is available.
var ErrNoData = errors.New("uart: no data available")

type Uarter interface {
	Open(c uart_config.Config) error
	Available() int
	ReadByte() (byte, error)
	Close() error
}

func New(log *log2.Log, driver string) (Uarter, error) {
	switch driver {
	case uart_config.DriverFile, "":
		return NewFileUart(log), nil
	case uart_config.DriverSerial:
		return NewSerialUart(log), nil
	case uart_config.DriverMock:
		return NewMockUart(nil), nil
	}
	return nil, errors.NotSupportedf("uart driver=%s", driver)
}

// Open validates config and opens port with configured driver.
func Open(log *log2.Log, c uart_config.Config) (Uarter, error) {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	u, err := New(log, c.Driver)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = u.Open(c); err != nil {
		return nil, errors.Annotatef(err, "uart open %s", c.String())
	}
	log.Debugf("uart open %s", c.String())
	return u, nil
}
