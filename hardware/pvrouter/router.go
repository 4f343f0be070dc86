// Package pvrouter decodes Mk2 PV router serial telemetry.
//
// Device sends frames in historical mode:
//
//	0x02 | record... | 0x03
//
// Router is a resumable state machine driven by two external calls:
// Update() from periodic timer and Loop() as often as possible.
// Each Loop() performs exactly one transition and reads at most
// MaxReadPerLoop bytes, so it never blocks caller event loop.
// Router is not safe for concurrent use, except State() and Stat().
package pvrouter

import (
	"fmt"
	"sync/atomic"

	"github.com/juju/errors"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/log2"
)

const MaxReadPerLoop = 128

type State uint8

const (
	StateOff State = iota
	StateOn
	StateStartFrame
	StateEndFrame
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	case StateStartFrame:
		return "start_frame_received"
	case StateEndFrame:
		return "end_frame_received"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type readResult uint8

const (
	readPending readResult = iota
	readFound
	readOverflow
)

type Router struct {
	Registry

	log    *log2.Log
	src    Source
	state  State
	shared uint32 // atomic copy of state for readers outside router goroutine
	buf    Buffer
	parser Parser
	stat   Stat
}

func NewRouter(log *log2.Log, src Source, checksumAreaEnd int) *Router {
	if checksumAreaEnd == 0 {
		checksumAreaEnd = DefaultChecksumAreaEnd
	}
	r := &Router{log: log, src: src}
	r.parser = Parser{ChecksumAreaEnd: checksumAreaEnd, Log: log, stat: &r.stat}
	r.Setup()
	return r
}

func (r *Router) Setup() { r.setState(StateOff) }

// State is safe to call from any goroutine.
func (r *Router) State() State { return State(atomic.LoadUint32(&r.shared)) }

func (r *Router) Stat() *Stat          { return &r.stat }
func (r *Router) BufferLen() int       { return r.buf.Len() }
func (r *Router) Log() *log2.Log       { return r.log }
func (r *Router) ChecksumAreaEnd() int { return r.parser.ChecksumAreaEnd }

// Update is periodic trigger. Starts new cycle only from StateOff,
// otherwise no-op so unfinished frame keeps progressing.
func (r *Router) Update() {
	if r.state == StateOff {
		r.buf.Reset()
		r.setState(StateOn)
	}
}

// Loop performs one state transition.
func (r *Router) Loop() {
	next := r.step(r.state)
	if next != r.state {
		r.log.Debugf("pvrouter state %s -> %s", r.state, next)
	}
	r.setState(next)
}

func (r *Router) setState(s State) {
	r.state = s
	atomic.StoreUint32(&r.shared, uint32(s))
}

func (r *Router) step(s State) State {
	switch s {
	case StateOff:
		return StateOff

	case StateOn:
		if r.readUntil(true, StartFrame) == readFound {
			return StateStartFrame
		}
		return StateOn

	case StateStartFrame:
		switch r.readUntil(false, EndFrame) {
		case readFound:
			return StateEndFrame
		case readOverflow:
			return StateOff
		}
		return StateStartFrame

	case StateEndFrame:
		r.stat.inc(&r.stat.Frames)
		if _, err := r.parser.Parse(r.buf.Bytes(), r.emit); err != nil {
			r.log.Debugf("pvrouter frame aborted: %v", err)
		}
		r.buf.Reset()
		return StateOff
	}
	panic(fmt.Sprintf("code error pvrouter invalid state=%d", s))
}

// readUntil consumes at most MaxReadPerLoop bytes looking for target.
// Target byte is consumed and not stored. With drop=true other bytes are
// discarded, otherwise appended to buffer. Overflow discards buffer.
func (r *Router) readUntil(drop bool, target byte) readResult {
	for i := 0; i < MaxReadPerLoop && r.src.Available() > 0; i++ {
		b, err := r.src.ReadByte()
		if err != nil {
			r.stat.inc(&r.stat.ReadErrors)
			r.log.Errorf("pvrouter read: %v", err)
			return readPending
		}
		if b == target {
			return readFound
		}
		if drop {
			continue
		}
		if !r.buf.Append(b) {
			// data will be retrieved on next update
			r.log.Warningf("internal buffer full")
			r.stat.inc(&r.stat.Overflows)
			r.buf.Reset()
			return readOverflow
		}
	}
	return readPending
}

func (r *Router) emit(tag, value string) {
	r.log.Debugf("pvrouter %s=%s", tag, value)
	r.Dispatch(tag, value)
}

// DumpConfig logs settings and checks serial port matches device: 8N1 at baudRate.
func (r *Router) DumpConfig(baudRate int, u uart_config.Config) error {
	if baudRate == 0 {
		baudRate = uart_config.DefaultBaudRate
	}
	r.log.Infof("pvrouter: uart=%s checksum_area_end=%d listeners=%d",
		u.String(), r.parser.ChecksumAreaEnd, r.Listeners())
	errs := []string{}
	if u.BaudRate != baudRate {
		errs = append(errs, fmt.Sprintf("baud_rate=%d expected=%d", u.BaudRate, baudRate))
	}
	if u.StopBits != 1 {
		errs = append(errs, fmt.Sprintf("stop_bits=%d expected=1", u.StopBits))
	}
	if u.Parity != uart_config.ParityNone {
		errs = append(errs, fmt.Sprintf("parity=%s expected=%s", u.Parity, uart_config.ParityNone))
	}
	if u.DataBits != 8 {
		errs = append(errs, fmt.Sprintf("data_bits=%d expected=8", u.DataBits))
	}
	if len(errs) != 0 {
		return errors.NotValidf("uart settings %v", errs)
	}
	return nil
}
