// Package tele forwards decoded measurements and errors to remote systems.
package tele

import (
	"context"

	"github.com/temoto/mk2pvrouter/hardware/pvrouter"
	"github.com/temoto/mk2pvrouter/log2"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

//go:generate protoc --go_out=./ tele.proto

// Teler contract:
// - Init() fails only with invalid config, network issues ignored
// - Reading/Error block at most for disk write (persist_path) or not at all
// - network may be slow or absent, messages are delivered in background
// - Close() stops background delivery, undelivered persistent messages stay on disk
type Teler interface {
	Init(context.Context, *log2.Log, tele_config.Config) error
	Close()
	Reading(tag, value string)
	Subscribe(reg *pvrouter.Registry, tags []string)
	Error(error)
	Stat() *Stat
}
