// Package logging defines the structured logger the pipeline writes to and
// its adapters. Core packages depend only on Logger; the CLI decides which
// implementation to inject.
package logging

import "maps"

// Logger is a leveled, structured logger. Args are alternating key/value
// pairs.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithFields(fields map[string]any) Logger
}

// Module names used as logger scopes.
const (
	ModuleTranslate = "catalogtx.translate"
	ModuleEngine    = "catalogtx.engine"
	ModuleStore     = "catalogtx.store"
	ModuleDraft     = "catalogtx.draft"
)

// Provider hands out named loggers.
type Provider interface {
	GetLogger(name string) Logger
}

// ModuleLogger returns a logger scoped to module, or a no-op logger when
// provider is nil.
func ModuleLogger(provider Provider, module string) Logger {
	var l Logger
	if provider != nil {
		l = provider.GetLogger(module)
	}
	if l == nil {
		return NoOp()
	}
	return l.WithFields(map[string]any{"module": module})
}

// WithFields attaches fields to l. A nil logger yields a no-op logger.
func WithFields(l Logger, fields map[string]any) Logger {
	if l == nil {
		return NoOp()
	}
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(maps.Clone(fields))
}

// NoOp returns a logger that discards everything.
func NoOp() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Trace(string, ...any)              {}
func (noopLogger) Debug(string, ...any)              {}
func (noopLogger) Info(string, ...any)               {}
func (noopLogger) Warn(string, ...any)               {}
func (noopLogger) Error(string, ...any)              {}
func (n noopLogger) WithFields(map[string]any) Logger { return n }
