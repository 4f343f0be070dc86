package state

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
	"github.com/temoto/mk2pvrouter/sensor"
	tele_api "github.com/temoto/mk2pvrouter/tele"
)

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Hardware     hardware // hardware.go
	Log          *log2.Log
	Sensors      sensor.Set
	Tele         tele_api.Teler

	_copy_guard sync.Mutex //nolint:unused
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log, teler tele_api.Teler) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}
	if teler == nil {
		teler = tele_api.Noop{}
	}

	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Tele:  teler,
	}
	ctx := context.WithValue(context.Background(), ContextKey, g)
	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Infof("build version=%s", g.BuildVersion)
	if g.Config.Router.LogDebug {
		g.Log.SetLevel(log2.LDebug)
	}

	// Since tele is remote error reporting mechanism, it must be inited before anything else
	// Tele.Init gets g.Log clone before SetErrorFunc, so Tele.Log.Error doesn't recurse on itself
	if err := g.Tele.Init(ctx, g.Log.Clone(log2.LInfo), g.Config.Tele); err != nil {
		g.Tele = tele_api.Noop{}
		return errors.Annotate(err, "tele init")
	}
	g.Log.SetErrorFunc(g.Tele.Error)

	for _, sc := range g.Config.Sensors {
		g.Sensors.Add(sensor.NewText(sc.Tag, sc.Name, helpers.IntSecondDefault(sc.StaleSec, 0)))
	}

	r, err := g.Router()
	if err != nil {
		return errors.Annotate(err, "router init")
	}
	g.Sensors.Register(&r.Registry)
	g.Tele.Subscribe(&r.Registry, g.Config.Tele.Tags)
	g.Log.Debugf("router listeners=%d", r.Listeners())

	if err := r.DumpConfig(0, g.Config.Uart); err != nil {
		g.Log.Warningf("%v", err)
	}
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Fatal(err)
	}
}

// RunRouter drives router until Alive stop or ctx done.
// Update() on update interval, Loop() on loop interval, both from this goroutine only.
func (g *Global) RunRouter(ctx context.Context) error {
	r, err := g.Router()
	if err != nil {
		return errors.Trace(err)
	}
	if !g.Alive.Add(1) {
		return nil
	}
	defer g.Alive.Done()

	update := time.NewTicker(g.Config.UpdateInterval())
	defer update.Stop()
	loop := time.NewTicker(g.Config.LoopInterval())
	defer loop.Stop()

	r.Setup()
	r.Update()
	stopch := g.Alive.StopChan()
	for {
		select {
		case <-update.C:
			r.Update()
		case <-loop.C:
			r.Loop()
		case <-stopch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PublishExpvar exposes sensors and counters at /debug/vars.
// expvar names are global, call once per process.
func (g *Global) PublishExpvar() {
	expvar.Publish("pvrouter_sensors", &g.Sensors)
	expvar.Publish("tele", g.Tele.Stat())
	if r, _ := g.Router(); r != nil {
		expvar.Publish("router", r.Stat())
		expvar.Publish("router_state", expvar.Func(func() interface{} { return r.State().String() }))
	}
	if u, _ := g.Uart(); u != nil {
		if s, ok := u.(interface{ ReadCounter() *expvar.Int }); ok {
			expvar.Publish("uart_read_bytes", s.ReadCounter())
		}
		if s, ok := u.(interface{ Dropped() uint64 }); ok {
			expvar.Publish("uart_dropped_bytes", expvar.Func(func() interface{} { return s.Dropped() }))
		}
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

func (g *Global) Fatal(err error, args ...interface{}) {
	if err != nil {
		g.Error(err, args...)
		g.StopWait(5 * time.Second)
		g.Log.Fatal(errors.ErrorStack(err))
		os.Exit(1)
	}
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

func (g *Global) StopWait(timeout time.Duration) bool {
	g.Alive.Stop()
	select {
	case <-g.Alive.WaitChan():
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close releases hardware and tele, call after Alive finished.
func (g *Global) Close() error {
	g.Tele.Close()
	return g.closeHardware()
}
