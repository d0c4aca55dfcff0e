package common

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// loggerPtr stores the active logger. Accessed atomically so SetLogger may race with the render goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// warned records the keys passed to WarnOnce.
var warned sync.Map

func init() {
	loggerPtr.Store(slog.Default())
}

// SetLogger replaces the logger used by every engine package.
// By default the engine logs through slog.Default, which writes via the standard log package.
// Passing nil restores the default.
//
// Parameters:
//   - l: the logger to install
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	loggerPtr.Store(l)
}

// Logger returns the logger currently used by the engine.
//
// Returns:
//   - *slog.Logger: the active logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// WarnOnce logs a warning the first time it is called for a given key and ignores later calls.
// Unsupported feature degradations use it so a per-frame fallback does not flood the log.
//
// Parameters:
//   - key: identifies the warning
//   - msg: the log message
//   - args: slog key/value pairs
//
// Returns:
//   - bool: true if the warning was emitted by this call
func WarnOnce(key, msg string, args ...any) bool {
	if _, loaded := warned.LoadOrStore(key, struct{}{}); loaded {
		return false
	}
	Logger().Warn(msg, args...)
	return true
}

// ResetWarnings forgets every key recorded by WarnOnce.
func ResetWarnings() {
	warned.Range(func(k, _ any) bool {
		warned.Delete(k)
		return true
	})
}
