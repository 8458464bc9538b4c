// Package logger provides the logging interface used by procmon components.
// Packages log debug, info, warn, and error messages through Logger without
// being coupled to the backend. The default backend is logrus, writing to a
// dated log file so the dashboard keeps ownership of the terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DebugEnv forces debug level when set to any non-empty value.
const DebugEnv = "PROCMON_DEBUG"

// SourceField is the logrus field carrying the component name.
const SourceField = "source"

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Options configures the logrus backend.
type Options struct {
	// Level is a logrus level name ("debug", "info", "warn", "error").
	Level string
	// Dir is where dated log files are written. Empty means Output is used.
	Dir string
	// Output is used when Dir is empty. Defaults to os.Stderr.
	Output io.Writer
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewBase builds the shared logrus logger. The returned closer releases the
// log file (it is a no-op when logging to Output).
func NewBase(opts Options) (*logrus.Logger, io.Closer, error) {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if os.Getenv(DebugEnv) != "" {
		level = logrus.DebugLevel
	}
	base.SetLevel(level)

	if opts.Dir == "" {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		base.SetOutput(out)
		return base, nopCloser{}, nil
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(FilePath(opts.Dir, now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	base.SetOutput(f)
	return base, f, nil
}

// FilePath returns the dated log file path for the given day.
func FilePath(dir string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("procmon-%s.log", day.Format("2006-01-02")))
}

// entryLogger implements Logger on top of a logrus entry tagged with a source.
type entryLogger struct {
	entry *logrus.Entry
}

// New returns a Logger that tags every message with the given source
// (e.g., "process-monitor" or "store").
func New(base *logrus.Logger, source string) Logger {
	return &entryLogger{entry: base.WithField(SourceField, source)}
}

func (l *entryLogger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *entryLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *entryLogger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *entryLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// Safe for use from the poller goroutine while a test reads it.
type BufferLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.add("debug", format, args...)
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.add("info", format, args...)
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.add("warn", format, args...)
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.add("error", format, args...)
}

// Messages returns a copy of the captured messages.
func (l *BufferLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}
