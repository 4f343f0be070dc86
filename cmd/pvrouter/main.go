package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/mk2pvrouter/internal/state"
	"github.com/temoto/mk2pvrouter/internal/tele"
	"github.com/temoto/mk2pvrouter/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

var log = log2.NewStderr(log2.LInfo)

func main() {
	flagConfig := flag.String("config", "pvrouter.hcl", "")
	flag.Parse()

	if sdnotify("STATUS=start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	fs, err := state.NewOsFullReader(".")
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	config := state.MustReadConfig(log, fs, *flagConfig)

	ctx, g := state.NewContext(log, tele.New())
	g.BuildVersion = BuildVersion
	g.MustInit(ctx, config)
	g.PublishExpvar()

	if listen := config.Http.Listen; listen != "" {
		// expvar registers /debug/vars on http.DefaultServeMux
		go func() {
			log.Infof("http listen=%s", listen)
			if err := http.ListenAndServe(listen, nil); err != nil {
				g.Error(errors.Annotate(err, "http"))
			}
		}()
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		log.Infof("signal=%v, stopping", sig)
		sdnotify(daemon.SdNotifyStopping)
		g.Stop()
	}()

	go watchdog(g)
	sdnotify(daemon.SdNotifyReady)
	log.Infof("pvrouter running uart=%s", config.Uart.String())

	if err := g.RunRouter(ctx); err != nil && err != context.Canceled {
		g.Fatal(err)
	}
	g.Alive.Wait()
	if err := g.Close(); err != nil {
		log.Errorf("close err=%v", err)
	}
}

// watchdog pings systemd while router runs, no-op without WatchdogSec.
func watchdog(g *state.Global) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	stopch := g.Alive.StopChan()
	for {
		select {
		case <-t.C:
			sdnotify(daemon.SdNotifyWatchdog)
		case <-stopch:
			return
		}
	}
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
