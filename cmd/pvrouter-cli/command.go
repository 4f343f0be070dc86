package main

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/hardware/uart"
	"github.com/temoto/mk2pvrouter/internal/state"
	"github.com/temoto/mk2pvrouter/log2"
)

// runLimit bounds Loop() calls of one "run" command.
const runLimit = 1000

type doer interface {
	Do(ctx context.Context) error
	String() string
}

type fun struct {
	name string
	f    func(ctx context.Context) error
}

func (self fun) Do(ctx context.Context) error { return self.f(ctx) }
func (self fun) String() string               { return self.name }

type seq []doer

func (self seq) Do(ctx context.Context) error {
	for _, d := range self {
		if err := d.Do(ctx); err != nil {
			return errors.Annotate(err, d.String())
		}
	}
	return nil
}
func (self seq) String() string {
	ss := make([]string, len(self))
	for i, d := range self {
		ss[i] = d.String()
	}
	return strings.Join(ss, " ")
}

type repeat struct {
	n uint
	d doer
}

func (self repeat) Do(ctx context.Context) error {
	for i := uint(1); i <= self.n; i++ {
		if err := self.d.Do(ctx); err != nil {
			return errors.Annotatef(err, "loop=%d/%d", i, self.n)
		}
	}
	return nil
}
func (self repeat) String() string {
	return "loop=" + strconv.FormatUint(uint64(self.n), 10) + " " + self.d.String()
}

var doUsage = fun{name: "help", f: func(ctx context.Context) error {
	state.GetGlobal(ctx).Log.Infof(usage)
	return nil
}}
var doLogYes = fun{name: "log=yes", f: func(ctx context.Context) error {
	state.GetGlobal(ctx).Log.SetLevel(log2.LDebug)
	return nil
}}
var doLogNo = fun{name: "log=no", f: func(ctx context.Context) error {
	state.GetGlobal(ctx).Log.SetLevel(log2.LError)
	return nil
}}
var doUpdate = fun{name: "update", f: func(ctx context.Context) error {
	r, err := state.GetGlobal(ctx).Router()
	if err != nil {
		return err
	}
	r.Update()
	return nil
}}
var doStep = fun{name: "step", f: func(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	r, err := g.Router()
	if err != nil {
		return err
	}
	before := r.State()
	r.Loop()
	g.Log.Infof("state %s -> %s", before, r.State())
	return nil
}}
var doRun = fun{name: "run", f: func(ctx context.Context) error {
	r, err := state.GetGlobal(ctx).Router()
	if err != nil {
		return err
	}
	r.Update()
	for i := 0; i < runLimit; i++ {
		r.Loop()
		if r.State() == pvrouter.StateOff {
			return nil
		}
	}
	return errors.Timeoutf("frame not complete after %d steps state=%s", runLimit, r.State())
}}
var doState = fun{name: "state", f: func(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	r, err := g.Router()
	if err != nil {
		return err
	}
	g.Log.Infof("state=%s buffer=%d", r.State(), r.BufferLen())
	return nil
}}
var doStat = fun{name: "stat", f: func(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	r, err := g.Router()
	if err != nil {
		return err
	}
	g.Log.Infof("router %s", r.Stat().String())
	return nil
}}
var doSensors = fun{name: "sensors", f: func(ctx context.Context) error {
	g := state.GetGlobal(ctx)
	g.Log.Infof("sensors %s", g.Sensors.String())
	return nil
}}

func newFeed(name string, b []byte) doer {
	return fun{name: name, f: func(ctx context.Context) error {
		g := state.GetGlobal(ctx)
		u, err := g.Uart()
		if err != nil {
			return err
		}
		mock, ok := u.(*uart.MockUart)
		if !ok {
			return errors.NotSupportedf("feed with uart driver=%s", g.Config.Uart.Driver)
		}
		mock.Feed(b)
		g.Log.Debugf("feed %x", b)
		return nil
	}}
}

func newListen(tag string) doer {
	return fun{name: "listen=" + tag, f: func(ctx context.Context) error {
		g := state.GetGlobal(ctx)
		r, err := g.Router()
		if err != nil {
			return err
		}
		log := g.Log
		r.Register(pvrouter.NewListener(tag, func(value string) {
			log.Infof("> %s=%s", tag, value)
		}))
		return nil
	}}
}

func newSleep(d time.Duration) doer {
	return fun{name: "sleep:" + d.String(), f: func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
}

// parseMeasurements parses TAG=VALUE,TAG=VALUE.
func parseMeasurements(s string) ([]pvrouter.Measurement, error) {
	parts := strings.Split(s, ",")
	ms := make([]pvrouter.Measurement, 0, len(parts))
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, errors.NotValidf("measurement=%q expected TAG=VALUE", p)
		}
		ms = append(ms, pvrouter.Measurement{Tag: kv[0], Value: kv[1]})
	}
	return ms, nil
}

// corruptFrame flips lowest bit of every record checksum byte (the one before CR).
func corruptFrame(b []byte) []byte {
	for i := 1; i < len(b); i++ {
		if b[i] == pvrouter.CarriageReturn {
			b[i-1] ^= 1
		}
	}
	return b
}

func parseLine(line string) (doer, error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return seq{}, nil
	}

	// pre-parse special commands
	loopn := uint(0)
	wordsRest := make([]string, 0, len(words))
	for _, word := range words {
		switch {
		case word == "help":
			return doUsage, nil
		case strings.HasPrefix(word, "loop="):
			if loopn != 0 {
				return nil, errors.Errorf("multiple loop commands, expected at most one")
			}
			i, err := strconv.ParseUint(word[5:], 10, 32)
			if err != nil {
				return nil, errors.Annotatef(err, "word=%s", word)
			}
			loopn = uint(i)
		default:
			wordsRest = append(wordsRest, word)
		}
	}

	tx := make(seq, 0, len(wordsRest))
	for _, word := range wordsRest {
		d, err := parseCommand(word)
		if err != nil {
			return nil, err
		}
		tx = append(tx, d)
	}

	if loopn != 0 {
		return repeat{n: loopn, d: tx}, nil
	}
	return tx, nil
}

func parseCommand(word string) (doer, error) {
	switch {
	case word == "log=yes":
		return doLogYes, nil
	case word == "log=no":
		return doLogNo, nil
	case word == "update":
		return doUpdate, nil
	case word == "step":
		return doStep, nil
	case word == "run":
		return doRun, nil
	case word == "state":
		return doState, nil
	case word == "stat":
		return doStat, nil
	case word == "sensors":
		return doSensors, nil
	case strings.HasPrefix(word, "listen="):
		tag := word[7:]
		if tag == "" || len(tag) >= pvrouter.TagSize {
			return nil, errors.NotValidf("listen tag=%q", tag)
		}
		return newListen(tag), nil
	case word[0] == '@':
		b, err := hex.DecodeString(word[1:])
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return newFeed(word, b), nil
	case strings.HasPrefix(word, "f:"), strings.HasPrefix(word, "bad:"):
		idx := strings.IndexByte(word, ':')
		ms, err := parseMeasurements(word[idx+1:])
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		b := pvrouter.EncodeFrame(ms...)
		if word[:idx] == "bad" {
			b = corruptFrame(b)
		}
		return newFeed(word, b), nil
	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return newSleep(time.Duration(i) * time.Millisecond), nil
	default:
		return nil, errors.Errorf("error: invalid command: '%s'", word)
	}
}
