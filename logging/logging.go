// Package logging provides the leveled logger used across taintpass.
// A Logger travels on a context.Context; code that finds none logs nothing.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents different levels of logging detail
type Level int

const (
	LevelSilent Level = iota
	LevelInfo
	LevelDebug
	LevelTrace
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelSilent:
		return "silent"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "quiet", "none":
		return LevelSilent
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

// Logger provides structured logging for analysis runs
type Logger struct {
	mu     *sync.Mutex
	level  Level
	writer io.Writer
	prefix string
}

type loggerKey struct{}

// New creates a new logger with the specified level and output
func New(level Level, writer io.Writer) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	return &Logger{
		mu:     &sync.Mutex{},
		level:  level,
		writer: writer,
	}
}

// Level returns the logger's level.
func (l *Logger) Level() Level {
	return l.level
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level != LevelSilent && l.level >= level
}

// WithPrefix returns a new logger with an additional prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := prefix
	if l.prefix != "" {
		newPrefix = l.prefix + " " + prefix
	}
	return &Logger{
		mu:     l.mu,
		level:  l.level,
		writer: l.writer,
		prefix: newPrefix,
	}
}

// Info logs informational messages (always visible except silent mode)
func (l *Logger) Info(format string, args ...any) {
	if l.level >= LevelInfo {
		l.log("•", format, args...)
	}
}

// Debug logs debug messages (visible in debug and trace modes)
func (l *Logger) Debug(format string, args ...any) {
	if l.level >= LevelDebug {
		l.log("→", format, args...)
	}
}

// Trace logs detailed trace messages (visible only in trace mode)
func (l *Logger) Trace(format string, args ...any) {
	if l.level >= LevelTrace {
		l.log("·", format, args...)
	}
}

// Step logs a processing step with context
func (l *Logger) Step(step string, details ...string) {
	if l.level >= LevelInfo {
		msg := step
		if len(details) > 0 {
			msg += ": " + strings.Join(details, ", ")
		}
		l.log("✓", "%s", msg)
	}
}

// Warning logs warning messages
func (l *Logger) Warning(format string, args ...any) {
	if l.level >= LevelInfo {
		l.log("⚠", format, args...)
	}
}

// Error logs error messages (always visible except silent mode)
func (l *Logger) Error(format string, args ...any) {
	if l.level >= LevelInfo {
		l.log("✗", format, args...)
	}
}

func (l *Logger) log(symbol, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	prefix := ""
	if l.prefix != "" {
		prefix = "[" + l.prefix + "] "
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.writer, "%s %s%s\n", symbol, prefix, message)
	if f, ok := l.writer.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves a logger from the context, returning a silent
// logger if none exists
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok && logger != nil {
			return logger
		}
	}
	return New(LevelSilent, io.Discard)
}

// ProgressTracker tracks progress of long-running operations with batching
type ProgressTracker struct {
	name      string
	total     int
	current   int
	startTime time.Time
	logger    *Logger
	lastLog   time.Time
	interval  time.Duration
	batchSize int
	lastBatch int
	done      bool
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(ctx context.Context, name string, total int) *ProgressTracker {
	logger := FromContext(ctx)

	// fewer updates for larger inputs
	batchSize := 1
	interval := 1 * time.Second

	if total > 1000 {
		batchSize = total / 10
		interval = 3 * time.Second
	} else if total > 100 {
		batchSize = total / 20
		interval = 2 * time.Second
	}

	tracker := &ProgressTracker{
		name:      name,
		total:     total,
		startTime: time.Now(),
		logger:    logger,
		lastLog:   time.Now(),
		interval:  interval,
		batchSize: batchSize,
	}

	if total > 10 {
		logger.Info("→ Starting %s (%d items)", name, total)
	}

	return tracker
}

// Grow adds n items discovered after the tracker was created.
func (pt *ProgressTracker) Grow(n int) {
	pt.total += n
}

// Update increments progress and logs when a batch or interval elapses.
// Completion is only reported by Complete.
func (pt *ProgressTracker) Update(message string) {
	pt.current++

	now := time.Now()
	shouldLog := now.Sub(pt.lastLog) >= pt.interval ||
		pt.current-pt.lastBatch >= pt.batchSize

	if shouldLog && pt.total > 10 && pt.current < pt.total {
		percentage := float64(pt.current) / float64(pt.total) * 100
		pt.logger.Info("▶ %s: %d/%d (%.0f%%)", pt.name, pt.current, pt.total, percentage)

		pt.lastLog = now
		pt.lastBatch = pt.current
	}

	pt.logger.Trace("Processing %s (%d/%d): %s", pt.name, pt.current, pt.total, message)
}

// Complete marks the operation as finished. Only the first call logs.
func (pt *ProgressTracker) Complete() {
	if pt.done {
		return
	}
	pt.done = true
	if pt.current > pt.total {
		pt.total = pt.current
	}
	elapsed := time.Since(pt.startTime)
	pt.logger.Info("✓ %s complete (%d items) in %v", pt.name, pt.current, elapsed.Truncate(10*time.Millisecond))
}
