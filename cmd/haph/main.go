// Haph builds, inspects and queries persisted perfect hash maps.
//
// Usage:
//
//	haph build -in pairs.tsv -out pairs.haph [-hasher xxh3] [-width 32] [-compress]
//	haph get -map pairs.haph KEY...
//	haph info -map pairs.haph
//	haph bench -keys 1000000 -readers 8
//
// The build input holds one key<TAB>value pair per line. Build settings can
// also be read from a TOML file given with -config; flags override it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
)

// errNotFound signals that get could not find at least one key.
var errNotFound = errors.New("one or more keys not found")

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{"build", "build a map file from key<TAB>value lines", runBuild},
	{"get", "look up keys in a map file", runGet},
	{"info", "print the header of a map file", runInfo},
	{"bench", "measure build and query performance on random keys", runBench},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: haph <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-6s %s\n", c.name, c.usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == os.Args[1] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cmd.run(ctx, os.Args[2:])
	switch {
	case err == nil:
	case errors.Is(err, errNotFound):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "haph %s: %v\n", cmd.name, err)
		os.Exit(1)
	}
}

// newLogger returns a development logger when verbose is set and a
// production logger at warn level otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
