package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by every package in this module.
// By default nothing is logged. Passing nil restores the silent default.
// SetLogger is safe for concurrent use.
//
// Log levels used:
//   - [slog.LevelDebug]: per-load table sizes, per-dispatch record counts
//   - [slog.LevelInfo]: graph built, backing memory allocated, edit feed listening
//   - [slog.LevelWarn]: recoverable content errors (unsupported index formats, table overflow)
//
// Parameters:
//   - l: the logger to use, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current module logger.
//
// Returns:
//   - *slog.Logger: the active logger, never nil
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// ComponentLogger returns the module logger tagged with a component attribute.
//
// Parameters:
//   - component: short component name, e.g. "workgraph" or "bindless"
//
// Returns:
//   - *slog.Logger: the tagged logger
func ComponentLogger(component string) *slog.Logger {
	return Logger().With(slog.String("component", component))
}
