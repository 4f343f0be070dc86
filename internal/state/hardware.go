package state

import (
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/hardware/uart"
)

type hardware struct {
	Uart struct {
		once
		Uarter uart.Uarter
	}
	Router struct {
		once
		r *pvrouter.Router
	}
}

func (g *Global) Uart() (uart.Uarter, error) {
	x := &g.Hardware.Uart // short alias
	_ = x.do(func() error {
		if x.Uarter != nil { // testing mode
			return nil
		}
		u, err := uart.Open(g.Log, g.Config.Uart)
		if err != nil {
			return errors.Annotate(err, "Uart()")
		}
		x.Uarter = u
		return nil
	})
	return x.Uarter, x.err
}

func (g *Global) Router() (*pvrouter.Router, error) {
	x := &g.Hardware.Router // short alias
	_ = x.do(func() error {
		u, err := g.Uart()
		if err != nil {
			return err
		}
		x.r = pvrouter.NewRouter(g.Log, u, g.Config.Router.ChecksumAreaEnd)
		return nil
	})
	return x.r, x.err
}

func (g *Global) closeHardware() error {
	x := &g.Hardware.Uart
	if !x.done() || x.Uarter == nil {
		return nil
	}
	return x.Uarter.Close()
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
