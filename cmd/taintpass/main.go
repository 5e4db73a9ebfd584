// Command taintpass reports untrusted data flowing from a parameter of an
// entry function into a sink argument of a Go program.
//
//	taintpass --entry run --source 1 --sink 'fuzzy:.strcpy:1' ./cmd/taintpass/example
//	taintpass --config taintpass.yaml https://github.com/owner/repo ./...
//
// The exit code is 3 when violations are found, 1 on errors, 0 otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/picatz/taintpass"
	"github.com/picatz/taintpass/callgraphutil"
	"github.com/picatz/taintpass/config"
	"github.com/picatz/taintpass/ir"
	"github.com/picatz/taintpass/loader"
	"github.com/picatz/taintpass/logging"
	"github.com/picatz/taintpass/report"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitViolations = 3
)

// exitCodeError carries a process exit code through cobra.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

type flags struct {
	config      string
	entry       string
	source      int
	sinks       []string
	format      string
	callgraph   string
	callgraphTo string
	noGuard     bool
	maxDepth    int
	verbose     int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "taintpass [flags] [dir|git-url] [patterns...]",
		Short:         "Report untrusted entry parameters reaching sink arguments",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, &f)
			if err != nil {
				return &exitCodeError{code: exitError, err: err}
			}
			return run(cmd.Context(), cfg, &f, args, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "YAML configuration file")
	fl.StringVar(&f.entry, "entry", "main", "entry function name, qualified with the package path if needed")
	fl.IntVar(&f.source, "source", 1, "index of the entry parameter carrying untrusted data")
	fl.StringArrayVar(&f.sinks, "sink", nil, "sink as name:arg, repeatable; replaces the configured sinks")
	fl.StringVar(&f.format, "format", config.FormatText, "report format: text, json or msgpack")
	fl.StringVar(&f.callgraph, "callgraph", "", "also write the call graph from the entry: dot or csv")
	fl.StringVar(&f.callgraphTo, "callgraph-out", "", "call graph output file (default stdout)")
	fl.BoolVar(&f.noGuard, "no-guard", false, "disable the recursion guard")
	fl.IntVar(&f.maxDepth, "max-depth", 0, "maximum call depth, 0 for no limit")
	fl.CountVarP(&f.verbose, "verbose", "v", "verbose logging, repeat for trace output")

	return cmd
}

// buildConfig loads the configuration file, if any, and applies the flags
// set on the command line over it.
func buildConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		loaded, err := config.Load(f.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("entry") {
		cfg.Entry = f.entry
	}
	if changed("source") {
		cfg.Source = f.source
	}
	if changed("format") {
		cfg.Format = f.format
	}
	if changed("max-depth") {
		cfg.MaxDepth = f.maxDepth
	}
	if f.noGuard {
		guard := false
		cfg.Guard = &guard
	}
	if len(f.sinks) > 0 {
		cfg.Sinks = cfg.Sinks[:0]
		for _, s := range f.sinks {
			sink, err := config.ParseSink(s)
			if err != nil {
				return nil, err
			}
			cfg.Sinks = append(cfg.Sinks, sink)
		}
	}
	switch {
	case f.verbose == 1:
		cfg.LogLevel = logging.LevelDebug.String()
	case f.verbose > 1:
		cfg.LogLevel = logging.LevelTrace.String()
	}

	switch f.callgraph {
	case "", "dot", "csv":
	default:
		return nil, fmt.Errorf("unknown call graph format %q", f.callgraph)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, f *flags, args []string, stdout, stderr io.Writer) error {
	logger := logging.New(cfg.Level(), stderr)
	ctx = logging.WithLogger(ctx, logger)

	opts, err := cfg.Options()
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	target := "."
	var patterns []string
	if len(args) > 0 {
		target, patterns = args[0], args[1:]
	}

	if loader.IsRepositoryURL(target) {
		dir, head, err := loader.Clone(ctx, target)
		if err != nil {
			return &exitCodeError{code: exitError, err: err}
		}
		logger.Step("cloned", target, head)
		target = dir
	}

	res, err := loader.Load(ctx, loader.Config{
		Dir:      target,
		Patterns: patterns,
		InScope:  cfg.MatchPkgFilter,
	})
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	prog, err := res.Lower(ctx)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	entry, _ := res.ResolveEntry(prog, cfg.Entry)
	opts.Entry = entry

	if err := inspectCallGraph(ctx, prog, entry, cfg, f, stdout); err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	results, err := taintpass.Check(ctx, prog, opts)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	rep := report.New(entry, results, report.WithFileSet(res.Program.Fset))
	if err := report.Write(stdout, cfg.Format, rep); err != nil {
		return &exitCodeError{code: exitError, err: err}
	}

	if len(results) > 0 {
		return &exitCodeError{code: exitViolations}
	}
	return nil
}

// inspectCallGraph logs the recursive functions and sink paths reachable
// from the entry, and writes the call graph when asked to.
func inspectCallGraph(ctx context.Context, prog *ir.Program, entry string, cfg *config.Config, f *flags, stdout io.Writer) error {
	logger := logging.FromContext(ctx).WithPrefix("callgraph")

	root := prog.Func(entry)
	if root == nil {
		// Check reports the missing entry.
		return nil
	}

	g, err := callgraphutil.NewGraph(prog, root)
	if err != nil {
		return err
	}

	for _, group := range callgraphutil.Cycles(g) {
		names := make([]string, len(group))
		for i, n := range group {
			names[i] = n.Func.Name
		}
		if cfg.GuardEnabled() {
			logger.Debug("recursive functions: %v", names)
		} else {
			logger.Warning("recursive functions with the guard disabled: %v", names)
		}
	}

	for _, sink := range cfg.Sinks {
		paths, _, err := callgraphutil.PathsSearchCallToAdvanced(g.Root, sink.Name)
		if err != nil {
			return err
		}
		if shortest := paths.Shortest(); shortest != nil {
			logger.Debug("%d call path(s) to %s, shortest: %s", len(paths), sink.Name, shortest)
		}
	}

	if f.callgraph == "" {
		return nil
	}

	w := stdout
	if f.callgraphTo != "" {
		fh, err := os.Create(f.callgraphTo)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}

	switch f.callgraph {
	case "dot":
		return callgraphutil.WriteDOT(w, g)
	default:
		return callgraphutil.WriteCSV(w, g)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	cancel()

	os.Exit(exitCode(err, os.Stderr))
}

// exitCode prints err, unless it only carries a code, and returns the
// process exit code for it.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	var ec *exitCodeError
	if errors.As(err, &ec) {
		if ec.err != nil {
			fmt.Fprintf(stderr, "error: %v\n", ec.err)
		}
		return ec.code
	}

	fmt.Fprintf(stderr, "error: %v\n", err)
	return exitError
}
