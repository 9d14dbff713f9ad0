package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const usage = `Usage: spectra [command] [flags]

Commands:
  serve         run the HTTP server (default)
  init-config   write a default config file with a fresh cookie key
  reset-admin   create the root account or reset its password
  gen-key       print a new base64 cookie key
  gen-service   print a systemd unit for this binary (linux)

Run "spectra <command> --help" for the flags of a command.
`

type command func(args []string) error

var commands = map[string]command{
	"serve":       serve,
	"init-config": initConfig,
	"reset-admin": resetAdmin,
	"gen-key":     genKey,
	"gen-service": genService,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	name := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}
	if err := cmd(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "spectra %s: %v\n", name, err)
		return 1
	}
	return 0
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}
