// Package config loads taintpass settings from YAML.
//
// A configuration file looks like:
//
//	entry: main
//	source: 1
//	sinks:
//	  - name: strcpy
//	    arg: 1
//	  - name: "glob:(*database/sql.DB).Query*"
//	    arg: 1
//	max-depth: 32
//	log-level: debug
//	pkg-filter: "^example.com/app"
//	format: json
//
// Fields missing from the file keep their Default value.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/picatz/taintpass"
	"github.com/picatz/taintpass/logging"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Sink is a sink entry of the configuration file.
type Sink struct {
	// Name is the exact function name, or a pattern with a "glob:",
	// "regex:" or "fuzzy:" prefix.
	Name string `yaml:"name"`

	// Arg is the index of the sensitive argument.
	Arg int `yaml:"arg"`
}

// Config holds the settings of an analysis run.
type Config struct {
	// Entry is the name of the function where analysis starts.
	Entry string `yaml:"entry"`

	// Source is the index of the entry parameter that carries untrusted
	// data.
	Source int `yaml:"source"`

	// Sinks replaces the default sink list when set.
	Sinks []Sink `yaml:"sinks"`

	// Guard turns the recursion guard on or off. Unset means on.
	Guard *bool `yaml:"guard"`

	// MaxDepth limits the call depth; 0 means no limit.
	MaxDepth int `yaml:"max-depth"`

	// LogLevel is one of silent, info, debug or trace.
	LogLevel string `yaml:"log-level"`

	// PkgFilter selects, in addition to the loaded packages, the
	// dependencies whose function bodies are analyzed. It is a regular
	// expression, or a plain prefix if it does not compile.
	PkgFilter string `yaml:"pkg-filter"`

	// Format is the report format: text, json or msgpack.
	Format string `yaml:"format"`

	pkgFilterRegex *regexp.Regexp
}

// Default returns the built-in configuration: argv of main flowing into
// strcpy's source argument.
func Default() *Config {
	return &Config{
		Entry:  "main",
		Source: 1,
		Sinks: []Sink{
			{Name: "strcpy", Arg: 1},
		},
		LogLevel: "info",
		Format:   FormatText,
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses YAML configuration data over the defaults and validates
// the result. Unknown fields are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and compiles the package filter.
func (c *Config) Validate() error {
	var errs []error

	if c.Entry == "" {
		errs = append(errs, errors.New("entry must not be empty"))
	}
	if c.Source < 0 {
		errs = append(errs, fmt.Errorf("source must not be negative, got %d", c.Source))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max-depth must not be negative, got %d", c.MaxDepth))
	}
	for i, s := range c.Sinks {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("sinks[%d]: name must not be empty", i))
		}
		if s.Arg < 0 {
			errs = append(errs, fmt.Errorf("sinks[%d]: arg must not be negative, got %d", i, s.Arg))
		}
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatMsgpack:
	default:
		errs = append(errs, fmt.Errorf("unknown format %q", c.Format))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "silent", "quiet", "none", "info", "debug", "trace":
	default:
		errs = append(errs, fmt.Errorf("unknown log-level %q", c.LogLevel))
	}

	c.pkgFilterRegex = nil
	if c.PkgFilter != "" {
		if r, err := regexp.Compile(c.PkgFilter); err == nil {
			c.pkgFilterRegex = r
		}
	}

	return errors.Join(errs...)
}

// GuardEnabled reports whether the recursion guard is on.
func (c *Config) GuardEnabled() bool {
	return c.Guard == nil || *c.Guard
}

// Level returns the configured log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// MatchPkgFilter returns true if the package path matches PkgFilter. An
// empty filter matches nothing.
func (c *Config) MatchPkgFilter(pkgPath string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgPath)
	} else if c.PkgFilter != "" {
		return strings.HasPrefix(pkgPath, c.PkgFilter)
	}
	return false
}

// SinkRegistry builds the sink registry of the configuration.
func (c *Config) SinkRegistry() (*taintpass.Sinks, error) {
	specs := make([]taintpass.SinkSpec, len(c.Sinks))
	for i, s := range c.Sinks {
		specs[i] = taintpass.SinkSpec{Name: s.Name, Arg: s.Arg}
	}
	return taintpass.NewSinks(specs...)
}

// Options returns the analysis options of the configuration.
func (c *Config) Options() (taintpass.Options, error) {
	sinks, err := c.SinkRegistry()
	if err != nil {
		return taintpass.Options{}, err
	}
	return taintpass.Options{
		Entry:    c.Entry,
		Source:   c.Source,
		Sinks:    sinks,
		Guard:    c.GuardEnabled(),
		MaxDepth: c.MaxDepth,
	}, nil
}

// ParseSink parses a "name:arg" command line sink. The argument index
// follows the last colon, so pattern names such as "glob:str*:1" work.
func ParseSink(s string) (Sink, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Sink{}, fmt.Errorf("invalid sink %q, want name:arg", s)
	}
	arg, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return Sink{}, fmt.Errorf("invalid sink %q: %w", s, err)
	}
	if arg < 0 {
		return Sink{}, fmt.Errorf("invalid sink %q: negative argument index", s)
	}
	return Sink{Name: s[:i], Arg: arg}, nil
}
