// Command irdump prints the lowered form of the functions of the packages
// matching the given patterns, as analyzed by taintpass.
//
//	irdump ./cmd/taintpass/example
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/picatz/taintpass/loader"
	"github.com/picatz/taintpass/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	patterns := os.Args[1:]

	if len(patterns) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s <patterns>\n", os.Args[0])
		os.Exit(1)
	}

	level := logging.LevelInfo
	if os.Getenv("IRDUMP_DEBUG") != "" {
		level = logging.LevelDebug
	}
	ctx = logging.WithLogger(ctx, logging.New(level, os.Stderr))

	res, err := loader.Load(ctx, loader.Config{Patterns: patterns})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	prog, err := res.Lower(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// only the bodies of the matched packages, declarations are noise
	for _, fn := range prog.Functions {
		if fn.IsDeclaration() {
			continue
		}
		if _, err := fn.WriteTo(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
}
