// Separate package for serial port config structure.
// Imported by both state and hardware packages without cycles.
package uart_config

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

const (
	DriverFile   = "file"
	DriverSerial = "serial"
	DriverMock   = "mock"
)

const (
	ParityNone  = "none"
	ParityEven  = "even"
	ParityOdd   = "odd"
	ParityMark  = "mark"
	ParitySpace = "space"
)

const (
	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultStopBits = 1
)

type Config struct {
	Device   string `hcl:"device"`
	Driver   string `hcl:"driver"` // file|serial|mock
	BaudRate int    `hcl:"baud_rate"`
	DataBits int    `hcl:"data_bits"`
	Parity   string `hcl:"parity"`
	StopBits int    `hcl:"stop_bits"`
	LogDebug bool   `hcl:"log_debug"`
}

func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverFile
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = DefaultDataBits
	}
	if c.Parity == "" {
		c.Parity = ParityNone
	}
	c.Parity = strings.ToLower(c.Parity)
	if c.StopBits == 0 {
		c.StopBits = DefaultStopBits
	}
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverFile, DriverSerial:
		if c.Device == "" {
			return errors.NotValidf("uart.device empty for driver=%s", c.Driver)
		}
	case DriverMock:
	default:
		return errors.NotValidf("uart.driver=%s", c.Driver)
	}
	if c.BaudRate <= 0 {
		return errors.NotValidf("uart.baud_rate=%d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return errors.NotValidf("uart.data_bits=%d", c.DataBits)
	}
	switch c.Parity {
	case ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace:
	default:
		return errors.NotValidf("uart.parity=%s", c.Parity)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return errors.NotValidf("uart.stop_bits=%d", c.StopBits)
	}
	return nil
}

// String formats like "device=/dev/ttyS0 driver=file 9600/8N1".
func (c Config) String() string {
	p := "?"
	if c.Parity != "" {
		p = strings.ToUpper(c.Parity[:1])
	}
	return fmt.Sprintf("device=%s driver=%s %d/%d%s%d",
		c.Device, c.Driver, c.BaudRate, c.DataBits, p, c.StopBits)
}
