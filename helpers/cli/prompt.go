// Package cli runs interactive prompt on terminal, or executes stdin lines otherwise.
package cli

import (
	"bytes"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
	"github.com/temoto/mk2pvrouter/log2"
)

func MainLoop(log *log2.Log, tag string, exec func(line string), complete func(d prompt.Document) []prompt.Suggest) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		for s := range signalCh {
			log.Infof("%s signal=%v, exit", tag, s)
			os.Exit(1)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt.New(exec, complete,
			prompt.OptionTitle(tag),
			prompt.OptionPrefix(tag+"> "),
		).Run()
	} else {
		stdinAll, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		ExecLines(stdinAll, exec)
	}
}

// ExecLines calls exec for each trimmed line of input.
func ExecLines(input []byte, exec func(line string)) {
	linesb := bytes.Split(input, []byte{'\n'})
	for _, lineb := range linesb {
		line := string(bytes.TrimSpace(lineb))
		exec(line)
	}
}
