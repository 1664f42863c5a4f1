package core

import (
	"log/slog"
	"sync"
)

// Logger is the structured logging surface used by the service and the rule
// engine. Arguments follow the slog key/value convention.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewSlogLogger adapts a *slog.Logger. A nil logger falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

var (
	engineLogMu sync.RWMutex
	engineLog   Logger = NewSlogLogger(nil)
)

// SetLogger replaces the logger used by rules and filters for configuration
// problems (bad parameters, malformed patterns, unbalanced resets). Passing nil
// silences them.
func SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	engineLogMu.Lock()
	engineLog = l
	engineLogMu.Unlock()
}

func logger() Logger {
	engineLogMu.RLock()
	defer engineLogMu.RUnlock()
	return engineLog
}
