package uart

import (
	"os"
	"syscall"

	"github.com/juju/errors"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/log2"
	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

var charSizes = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

// fileUart talks to tty device with termios ioctl, O_NONBLOCK.
// Available() asks kernel input queue size, like FIONREAD.
type fileUart struct {
	log     *log2.Log
	f       *os.File
	fd      int
	pending []byte
	rbuf    [256]byte
}

func NewFileUart(log *log2.Log) *fileUart { return &fileUart{log: log, fd: -1} }

func (self *fileUart) Open(c uart_config.Config) error {
	if self.f != nil {
		self.f.Close()
	}
	f, err := os.OpenFile(c.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0600)
	if err != nil {
		return errors.Trace(err)
	}
	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return errors.Annotate(err, "TCGETS")
	}
	if err = termiosApply(t, c); err != nil {
		f.Close()
		return errors.Trace(err)
	}
	// flush input and output
	if err = unix.IoctlSetTermios(fd, unix.TCSETSF, t); err != nil {
		f.Close()
		return errors.Annotate(err, "TCSETSF")
	}
	self.f, self.fd = f, fd
	self.pending = nil
	return nil
}

func (self *fileUart) Available() int {
	if self.f == nil {
		return 0
	}
	n, err := unix.IoctlGetInt(self.fd, unix.TIOCINQ)
	if err != nil {
		self.log.Errorf("uart TIOCINQ err=%v", err)
		return len(self.pending)
	}
	return len(self.pending) + n
}

func (self *fileUart) ReadByte() (byte, error) {
	if len(self.pending) == 0 {
		if self.f == nil {
			return 0, ErrNoData
		}
		n, err := unix.Read(self.fd, self.rbuf[:])
		switch {
		case err == unix.EAGAIN || (err == nil && n == 0):
			return 0, ErrNoData
		case err != nil:
			return 0, errors.Annotate(err, "uart read")
		}
		self.pending = self.rbuf[:n]
	}
	b := self.pending[0]
	self.pending = self.pending[1:]
	return b, nil
}

func (self *fileUart) Close() error {
	if self.f == nil {
		return nil
	}
	err := self.f.Close()
	self.f, self.fd, self.pending = nil, -1, nil
	return err
}

// termiosApply sets raw mode with config speed and framing.
func termiosApply(t *unix.Termios, c uart_config.Config) error {
	speed, ok := baudRates[c.BaudRate]
	if !ok {
		return errors.NotSupportedf("baud_rate=%d", c.BaudRate)
	}
	csize, ok := charSizes[c.DataBits]
	if !ok {
		return errors.NotSupportedf("data_bits=%d", c.DataBits)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.INPCK
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CSTOPB | unix.CBAUD
	t.Cflag |= unix.CREAD | unix.CLOCAL | csize | speed

	switch c.Parity {
	case uart_config.ParityNone, "":
	case uart_config.ParityEven:
		t.Cflag |= unix.PARENB
		t.Iflag |= unix.INPCK
	case uart_config.ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
		t.Iflag |= unix.INPCK
	case uart_config.ParityMark:
		t.Cflag |= unix.PARENB | unix.CMSPAR | unix.PARODD
		t.Iflag |= unix.INPCK
	case uart_config.ParitySpace:
		t.Cflag |= unix.PARENB | unix.CMSPAR
		t.Iflag |= unix.INPCK
	default:
		return errors.NotSupportedf("parity=%s", c.Parity)
	}
	if c.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}

	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	return nil
}
