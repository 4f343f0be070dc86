package main

import (
	"context"
	"flag"
	"os"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	uart_config "github.com/temoto/mk2pvrouter/hardware/uart/config"
	"github.com/temoto/mk2pvrouter/helpers/cli"
	"github.com/temoto/mk2pvrouter/internal/state"
	"github.com/temoto/mk2pvrouter/log2"
)

const usage = `syntax: commands separated by whitespace
(main)
- @XX...         feed raw bytes from hex XX... (mock uart only)
- f:TAG=V,...    feed encoded frame with records TAG=V (mock uart only)
- bad:TAG=V,...  same as f: with corrupted checksums
- update         start new frame cycle (OFF -> ON)
- step           single Loop() state transition
- run            update, then Loop() until state OFF
- listen=TAG     print measurements with TAG
- state          show router state and buffer length
- stat           show router counters
- sensors        show sensor values
- sN             pause N milliseconds

(meta)
- log=yes  enable debug logging
- log=no   disable debug logging
- loop=N   repeat N times all commands on this line
`

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	devicePath := cmdline.String("device", "", "serial port, empty for mock input")
	driver := cmdline.String("driver", uart_config.DriverMock, "file|serial|mock")
	baudRate := cmdline.Int("baud", uart_config.DefaultBaudRate, "")
	checksumAreaEnd := cmdline.Int("checksum-area-end", 0, "0 for default")
	_ = cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	config := new(state.Config)
	config.Uart.Device = *devicePath
	config.Uart.Driver = *driver
	config.Uart.BaudRate = *baudRate
	config.Router.ChecksumAreaEnd = *checksumAreaEnd
	config.Router.LogDebug = true
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}

	ctx, g := state.NewContext(log, nil)
	g.MustInit(ctx, config)
	defer g.Close()

	cli.MainLoop(log, "pvrouter-cli", newExecutor(ctx), newCompleter(ctx))
}

func newCompleter(ctx context.Context) func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "@XX", Description: "feed raw bytes"},
		{Text: "f:TAG=V", Description: "feed frame"},
		{Text: "bad:TAG=V", Description: "feed frame with wrong checksum"},
		{Text: "update", Description: "start frame cycle"},
		{Text: "step", Description: "one state transition"},
		{Text: "run", Description: "full frame cycle"},
		{Text: "listen=TAG", Description: "print measurements"},
		{Text: "state", Description: "router state"},
		{Text: "stat", Description: "router counters"},
		{Text: "sensors", Description: "sensor values"},
		{Text: "sN", Description: "pause for N ms"},
		{Text: "loop=N", Description: "repeat line N times"},
		{Text: "log=yes", Description: "debug logging"},
		{Text: "log=no", Description: "errors only"},
		{Text: "help"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		d, err := parseLine(line)
		if err != nil {
			g.Log.Errorf(errors.ErrorStack(err))
			return
		}
		if err = d.Do(ctx); err != nil {
			g.Log.Errorf(errors.ErrorStack(err))
		}
	}
}
