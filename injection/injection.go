// Package injection provides a go/analysis Analyzer that reports
// untrusted data flowing from a parameter of an entry function into a
// sink argument.
//
// By default the sinks are the query methods of database/sql, so the
// analyzer finds SQL injection through an entry such as an HTTP handler:
//
//	taintpass-vet -entry=serve -source=1 ./...
//
// The log preset looks for log injection instead, and -sinks replaces the
// preset with an explicit list:
//
//	taintpass-vet -entry=handle -source=0 -preset=log ./...
//	taintpass-vet -entry=run -source=0 -sinks='example.com/cli.strcpy:1' ./...
package injection

import (
	"context"
	"fmt"
	"go/token"
	"strings"

	"github.com/picatz/taintpass"
	"github.com/picatz/taintpass/config"
	"github.com/picatz/taintpass/ssair"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
)

// sqlSinks are the query methods of database/sql. Argument 0 is the
// receiver.
var sqlSinks = []string{
	"(*database/sql.DB).Query:1",
	"(*database/sql.DB).QueryRow:1",
	"(*database/sql.DB).Exec:1",
	"(*database/sql.DB).QueryContext:2",
	"(*database/sql.DB).QueryRowContext:2",
	"(*database/sql.DB).ExecContext:2",
	"(*database/sql.Tx).Query:1",
	"(*database/sql.Tx).QueryRow:1",
	"(*database/sql.Tx).Exec:1",
	"(*database/sql.Tx).QueryContext:2",
	"(*database/sql.Tx).QueryRowContext:2",
	"(*database/sql.Tx).ExecContext:2",
}

// logSinks are the message and prefix arguments of log and log/slog.
// Variadic arguments are packed into a slice and are not tracked.
var logSinks = []string{
	"log.SetPrefix:0",
	"log.Output:1",
	"(*log.Logger).SetPrefix:1",
	"(*log.Logger).Output:2",
	"log/slog.Debug:0",
	"log/slog.Info:0",
	"log/slog.Warn:0",
	"log/slog.Error:0",
	"log/slog.DebugContext:1",
	"log/slog.InfoContext:1",
	"log/slog.WarnContext:1",
	"log/slog.ErrorContext:1",
	"(*log/slog.Logger).Debug:1",
	"(*log/slog.Logger).Info:1",
	"(*log/slog.Logger).Warn:1",
	"(*log/slog.Logger).Error:1",
	"(*log/slog.Logger).DebugContext:2",
	"(*log/slog.Logger).InfoContext:2",
	"(*log/slog.Logger).WarnContext:2",
	"(*log/slog.Logger).ErrorContext:2",
}

// presets are the named sink lists selectable with -preset.
var presets = map[string][]string{
	"sql": sqlSinks,
	"log": logSinks,
}

var (
	entryFlag  = "main"
	sourceFlag = 1
	presetFlag = "sql"
	sinksFlag  = ""
)

// Analyzer reports sink calls reached by the source parameter of the
// entry function of each analyzed package.
var Analyzer = &analysis.Analyzer{
	Name:     "taintpass",
	Doc:      "reports untrusted data from an entry function parameter reaching a sink argument",
	Run:      run,
	Requires: []*analysis.Analyzer{buildssa.Analyzer},
}

func init() {
	Analyzer.Flags.StringVar(&entryFlag, "entry", entryFlag, "name of the entry function, qualified by the analyzed package")
	Analyzer.Flags.IntVar(&sourceFlag, "source", sourceFlag, "index of the entry parameter carrying untrusted data")
	Analyzer.Flags.StringVar(&presetFlag, "preset", presetFlag, "sink preset: sql or log")
	Analyzer.Flags.StringVar(&sinksFlag, "sinks", sinksFlag, "comma-separated name:arg sink list, replaces the preset")
}

// sinkList returns the sinks selected by the flags.
func sinkList() (string, error) {
	if sinksFlag != "" {
		return sinksFlag, nil
	}
	list, ok := presets[presetFlag]
	if !ok {
		return "", fmt.Errorf("unknown preset %q", presetFlag)
	}
	return strings.Join(list, ","), nil
}

func parseSinks(list string) (*taintpass.Sinks, error) {
	var specs []taintpass.SinkSpec
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sink, err := config.ParseSink(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, taintpass.SinkSpec{Name: sink.Name, Arg: sink.Arg})
	}
	return taintpass.NewSinks(specs...)
}

func run(pass *analysis.Pass) (interface{}, error) {
	ssaInfo := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)

	list, err := sinkList()
	if err != nil {
		return nil, fmt.Errorf("taintpass: %w", err)
	}
	sinks, err := parseSinks(list)
	if err != nil {
		return nil, fmt.Errorf("taintpass: %w", err)
	}

	ctx := context.Background()

	prog, err := ssair.FromFunctions(ctx, ssaInfo.SrcFuncs, ssair.WithPackages(pass.Pkg.Path()))
	if err != nil {
		return nil, err
	}

	entry := pass.Pkg.Path() + "." + entryFlag
	if prog.Func(entry) == nil {
		// nothing to analyze in this package
		return nil, nil
	}

	opts := taintpass.DefaultOptions()
	opts.Entry = entry
	opts.Source = sourceFlag
	opts.Sinks = sinks

	results, err := taintpass.Check(ctx, prog, opts)
	if err != nil {
		return nil, err
	}

	// One sink call reached along several call paths is reported once.
	reported := make(map[token.Pos]bool)
	for _, v := range results {
		pos := v.Site.Instr.Pos
		if reported[pos] {
			continue
		}
		reported[pos] = true
		pass.Reportf(pos, "tainted data reaches argument %d of %s", v.Sink.Arg, v.Sink.Name)
	}

	return nil, nil
}
