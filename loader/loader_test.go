package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/picatz/taintpass"
)

const testModule = `module example.com/cli

go 1.24
`

const testMain = `package main

import "os"

func strcpy(dst, src string) {}

func copyArg(s string) {
	var dst string
	strcpy(dst, s)
}

func run(argv []string) {
	copyArg(argv[1])
}

func main() {
	run(os.Args)
}
`

func writeModule(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range map[string]string{
		"go.mod":  testModule,
		"main.go": testMain,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeModule(t)

	res, err := Load(context.Background(), Config{Dir: dir, Patterns: []string{"."}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Initial) != 1 || res.Initial[0].Pkg.Path() != "example.com/cli" {
		t.Fatalf("unexpected initial packages: %v", res.Initial)
	}
	if !res.InScope("example.com/cli") || res.InScope("os") {
		t.Error("unexpected scope")
	}

	prog, err := res.Lower(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if fn := prog.Func("example.com/cli.run"); fn == nil || fn.IsDeclaration() {
		t.Fatal("expected example.com/cli.run to have a body")
	}

	entry, ok := res.ResolveEntry(prog, "run")
	if !ok || entry != "example.com/cli.run" {
		t.Fatalf("unexpected entry %q", entry)
	}
	if _, ok := res.ResolveEntry(prog, "missing"); ok {
		t.Error("expected an unresolved entry")
	}

	sinks, err := taintpass.NewSinks(taintpass.SinkSpec{Name: "example.com/cli.strcpy", Arg: 1})
	if err != nil {
		t.Fatal(err)
	}
	opts := taintpass.DefaultOptions()
	opts.Entry = entry
	opts.Source = 0
	opts.Sinks = sinks

	results, err := taintpass.Check(context.Background(), prog, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Site.Function != "example.com/cli.copyArg" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(context.Background(), Config{Dir: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestIsRepositoryURL(t *testing.T) {
	for target, want := range map[string]bool{
		"https://github.com/picatz/taint": true,
		"http://example.com/a/b":          true,
		"./cmd/app":                       false,
		"/tmp/repo":                       false,
	} {
		if got := IsRepositoryURL(target); got != want {
			t.Errorf("IsRepositoryURL(%q) = %v", target, got)
		}
	}
}

func TestCacheDir(t *testing.T) {
	dir, err := CacheDir("https://github.com/picatz/taint.git")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("taintpass", "github.com", "picatz", "taint")
	if !strings.HasSuffix(dir, want) {
		t.Errorf("unexpected cache dir %q", dir)
	}

	if _, err := CacheDir("https://github.com/picatz"); err == nil {
		t.Error("expected an error without a repository name")
	}
}
