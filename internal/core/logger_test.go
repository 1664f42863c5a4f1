package core

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (c *captureLogger) record(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, logEntry{level: level, msg: msg, args: args})
}

func (c *captureLogger) Debug(msg string, args ...any) { c.record("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.record("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.record("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.record("error", msg, args) }

func (c *captureLogger) has(level, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

func (c *captureLogger) count(level string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// captureEngineLogs routes rule engine logging to a recorder for the test.
func captureEngineLogs(t *testing.T) *captureLogger {
	t.Helper()
	c := &captureLogger{}
	SetLogger(c)
	t.Cleanup(func() { SetLogger(NewSlogLogger(nil)) })
	return c
}

func TestNoopLogger(t *testing.T) {
	logger := noopLogger{}
	for name, fn := range map[string]func(string, ...any){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("%s panicked: %v", name, r)
				}
			}()
			fn("test message", "arg1", "arg2")
		})
	}
}

func TestSlogLoggerWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.Debug("d", "k", 1)
	l.Info("i", "k", 2)
	l.Warn("w", "k", 3)
	l.Error("e", "k", 4)
	out := buf.String()
	for i, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if !strings.Contains(out, "level="+level) || !strings.Contains(out, fmt.Sprintf("k=%d", i+1)) {
			t.Fatalf("missing %s record in %q", level, out)
		}
	}
}

func TestSetLoggerNilSilences(t *testing.T) {
	SetLogger(nil)
	t.Cleanup(func() { SetLogger(NewSlogLogger(nil)) })
	if _, ok := logger().(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", logger())
	}
}
