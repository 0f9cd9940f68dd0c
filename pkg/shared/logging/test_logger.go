package logging

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// TestLogger is a logger for tests. It records every formatted line so tests
// can assert on log output, and mirrors lines to testing.T when verbose.
type TestLogger struct {
	module string
	t      *testing.T
	sink   *lineSink
}

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

// NewTestLogger creates a test logger that records but does not print output
func NewTestLogger() *TestLogger {
	return &TestLogger{module: "test", sink: &lineSink{}}
}

// NewTestLoggerVerbose creates a test logger that also outputs to testing.T
func NewTestLoggerVerbose(t *testing.T) *TestLogger {
	return &TestLogger{module: "test", t: t, sink: &lineSink{}}
}

func (l *TestLogger) record(level Level, msg string, args []interface{}) {
	line := fmt.Sprintf("[%s] %s: %s", l.module, level, msg)
	if pairs := formatPairs(args); pairs != "" {
		line += " " + pairs
	}

	l.sink.mu.Lock()
	l.sink.lines = append(l.sink.lines, line)
	l.sink.mu.Unlock()

	if l.t != nil {
		l.t.Log(line)
	}
}

// Lines returns a copy of all recorded lines, including those of sub-module loggers
func (l *TestLogger) Lines() []string {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]string(nil), l.sink.lines...)
}

// Contains reports whether any recorded line contains substr
func (l *TestLogger) Contains(substr string) bool {
	for _, line := range l.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Debug logs a debug message
func (l *TestLogger) Debug(msg string, args ...interface{}) { l.record(LevelDebug, msg, args) }

// Info logs an informational message
func (l *TestLogger) Info(msg string, args ...interface{}) { l.record(LevelInfo, msg, args) }

// Warn logs a warning message
func (l *TestLogger) Warn(msg string, args ...interface{}) { l.record(LevelWarn, msg, args) }

// Error logs an error message
func (l *TestLogger) Error(msg string, args ...interface{}) { l.record(LevelError, msg, args) }

// Fatal records the message and fails the test instead of exiting
func (l *TestLogger) Fatal(msg string, args ...interface{}) {
	l.record(LevelFatal, msg, args)
	if l.t != nil {
		l.t.Fatalf("[%s] FATAL: %s", l.module, msg)
	}
}

// WithModule creates a logger with a hierarchical module name sharing the same sink
func (l *TestLogger) WithModule(module string) Logger {
	newModule := module
	if l.module != "" {
		newModule = l.module + "/" + module
	}
	return &TestLogger{module: newModule, t: l.t, sink: l.sink}
}
