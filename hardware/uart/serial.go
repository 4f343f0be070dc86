package uart

import (
	"bytes"
	"expvar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
	"go.bug.st/serial"
)

const (
	SerialQueueMax    = 4096
	serialReadTimeout = 50 * time.Millisecond
)

// serialUart reads port in background goroutine into bounded queue.
// Bytes that do not fit into queue are dropped and counted.
type serialUart struct {
	log     *log2.Log
	port    serial.Port
	alive   *alive.Alive
	mu      sync.Mutex
	q       bytes.Buffer
	dropped uint64

	BytesRead expvar.Int
}

func NewSerialUart(log *log2.Log) *serialUart { return &serialUart{log: log} }

func (self *serialUart) Open(c uart_config.Config) error {
	mode, err := serialMode(c)
	if err != nil {
		return errors.Trace(err)
	}
	if self.port != nil {
		_ = self.Close()
	}
	port, err := serial.Open(c.Device, mode)
	if err != nil {
		return errors.Trace(err)
	}
	if err = port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return errors.Annotate(err, "SetReadTimeout")
	}
	self.port = port
	self.alive = alive.NewAlive()
	self.alive.Add(1)
	go self.reader(self.port, self.alive)
	return nil
}

func (self *serialUart) Available() int {
	n := 0
	helpers.WithLock(&self.mu, func() { n = self.q.Len() })
	return n
}

func (self *serialUart) ReadByte() (byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.q.Len() == 0 {
		return 0, ErrNoData
	}
	return self.q.ReadByte()
}

func (self *serialUart) Dropped() uint64          { return atomic.LoadUint64(&self.dropped) }
func (self *serialUart) ReadCounter() *expvar.Int { return &self.BytesRead }

func (self *serialUart) Close() error {
	if self.port == nil {
		return nil
	}
	self.alive.Stop()
	err := self.port.Close()
	self.alive.Wait()
	self.port = nil
	return err
}

func (self *serialUart) reader(port serial.Port, a *alive.Alive) {
	defer a.Done()
	r := helpers.NewStatReader(port, &self.BytesRead, 0)
	bo := helpers.Backoff{Min: 100 * time.Millisecond, Max: 5 * time.Second, K: 2, Log: self.log}
	buf := make([]byte, 256)
	for a.IsRunning() {
		n, err := r.Read(buf)
		if n > 0 {
			self.push(buf[:n])
		}
		if err == nil {
			bo.Reset()
			continue
		}
		if !a.IsRunning() {
			return
		}
		self.log.Errorf("uart serial read err=%v", err)
		select {
		case <-a.StopChan():
			return
		case <-time.After(bo.DelayAfter(false)):
		}
	}
}

func (self *serialUart) push(b []byte) {
	helpers.WithLock(&self.mu, func() {
		room := SerialQueueMax - self.q.Len()
		if len(b) > room {
			atomic.AddUint64(&self.dropped, uint64(len(b)-room))
			b = b[:room]
		}
		self.q.Write(b)
	})
}

func serialMode(c uart_config.Config) (*serial.Mode, error) {
	m := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}
	switch c.Parity {
	case uart_config.ParityNone, "":
		m.Parity = serial.NoParity
	case uart_config.ParityEven:
		m.Parity = serial.EvenParity
	case uart_config.ParityOdd:
		m.Parity = serial.OddParity
	case uart_config.ParityMark:
		m.Parity = serial.MarkParity
	case uart_config.ParitySpace:
		m.Parity = serial.SpaceParity
	default:
		return nil, errors.NotSupportedf("parity=%s", c.Parity)
	}
	switch c.StopBits {
	case 1, 0:
		m.StopBits = serial.OneStopBit
	case 2:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, errors.NotSupportedf("stop_bits=%d", c.StopBits)
	}
	return m, nil
}
