package state

import (
	"context"
	"os"
	"testing"

	"github.com/temoto/mk2pvrouter/hardware/uart"
	"github.com/temoto/mk2pvrouter/log2"
	tele_api "github.com/temoto/mk2pvrouter/tele"
)

// NewTestContext returns initialized Global with mock uart fed by returned *uart.MockUart.
func NewTestContext(t testing.TB, confString string) (context.Context, *Global, *uart.MockUart) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("pvrouter_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log, tele_api.Noop{})
	g.BuildVersion = "test"
	mock := uart.NewMockUart(nil)
	g.Hardware.Uart.Uarter = mock
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	return ctx, g, mock
}

func testLog(t testing.TB) *log2.Log {
	log := log2.NewTest(t, log2.LDebug)
	log.SetFlags(log2.LTestFlags)
	return log
}
