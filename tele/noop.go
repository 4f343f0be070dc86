package tele

import (
	"context"

	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/log2"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Init(context.Context, *log2.Log, tele_config.Config) error { return nil }
func (Noop) Close()                                                    {}
func (Noop) Reading(tag, value string)                                 {}
func (Noop) Subscribe(*pvrouter.Registry, []string)                    {}
func (Noop) Error(error)                                               {}
func (Noop) Stat() *Stat                                               { return &Stat{} }
