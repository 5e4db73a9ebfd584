// Package loader loads Go packages from a directory or a git repository,
// builds their SSA form, and lowers it for analysis.
package loader

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/picatz/taintpass/ir"
	"github.com/picatz/taintpass/logging"
	"github.com/picatz/taintpass/ssair"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// ErrNoPackages is returned when none of the patterns produced a package
// that could be built.
var ErrNoPackages = errors.New("loader: no packages to analyze")

// LoadMode is the packages.LoadMode needed to build SSA from source.
const LoadMode = packages.NeedName |
	packages.NeedDeps |
	packages.NeedFiles |
	packages.NeedModule |
	packages.NeedTypes |
	packages.NeedImports |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Config controls what is loaded.
type Config struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string

	// Patterns are package patterns such as "./..." or ".".
	Patterns []string

	// Tests includes test packages.
	Tests bool

	// InScope, if set, selects extra packages, by import path, whose
	// function bodies are analyzed. The initial packages are always in
	// scope.
	InScope func(pkgPath string) bool
}

// Result is a loaded and built program.
type Result struct {
	Dir      string
	Packages []*packages.Package
	Program  *ssa.Program

	// Initial holds the SSA packages matched by the patterns, without
	// nil entries.
	Initial []*ssa.Package

	inScope func(pkgPath string) bool
}

// Load loads the packages matching cfg.Patterns and builds their SSA form.
// Package errors are logged and do not stop the load unless nothing could
// be built.
func Load(ctx context.Context, cfg Config) (*Result, error) {
	logger := logging.FromContext(ctx).WithPrefix("loader")

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("loader: failed to get working directory: %w", err)
		}
		dir = wd
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	logger.Step("loading", dir, strings.Join(patterns, ","))

	pkgs, err := packages.Load(&packages.Config{
		Mode:    LoadMode,
		Context: ctx,
		Env:     os.Environ(),
		Dir:     dir,
		Tests:   cfg.Tests,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			return parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
		},
	}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, perr := range p.Errors {
			logger.Warning("package load error: %v", perr)
		}
	})

	prog, ssaPkgs := ssautil.Packages(pkgs, ssa.InstantiateGenerics)

	var initial []*ssa.Package
	for _, p := range ssaPkgs {
		// malformed packages will be nil
		if p != nil && p.Pkg != nil {
			initial = append(initial, p)
		}
	}
	if len(initial) == 0 {
		return nil, ErrNoPackages
	}

	prog.Build()

	logger.Info("loaded %d package(s), %d initial", len(pkgs), len(initial))

	return &Result{
		Dir:      dir,
		Packages: pkgs,
		Program:  prog,
		Initial:  initial,
		inScope:  cfg.InScope,
	}, nil
}

// InScope reports whether function bodies of the package are analyzed.
func (r *Result) InScope(pkgPath string) bool {
	for _, p := range r.Initial {
		if p.Pkg.Path() == pkgPath {
			return true
		}
	}
	return r.inScope != nil && r.inScope(pkgPath)
}

// Lower converts the program for analysis. Functions of packages out of
// scope become declarations.
func (r *Result) Lower(ctx context.Context) (*ir.Program, error) {
	return ssair.FromProgram(ctx, r.Program, ssair.WithScope(func(fn *ssa.Function) bool {
		pkg := fn.Pkg
		if pkg == nil && fn.Parent() != nil {
			pkg = fn.Parent().Pkg
		}
		return pkg != nil && r.InScope(pkg.Pkg.Path())
	}))
}

// ResolveEntry returns the ir name of the entry function. An entry that
// names a function of prog is returned as is; otherwise it is qualified
// with the path of each initial package, main packages first, until one
// matches.
func (r *Result) ResolveEntry(prog *ir.Program, entry string) (string, bool) {
	if prog.Func(entry) != nil {
		return entry, true
	}

	candidates := ssautil.MainPackages(r.Initial)
	candidates = append(candidates, r.Initial...)
	for _, p := range candidates {
		name := p.Pkg.Path() + "." + entry
		if prog.Func(name) != nil {
			return name, true
		}
	}
	return entry, false
}
