// Package logger provides component-tagged logging for the whole framework.
// Every subsystem logs through a short component name ("ws", "matcher",
// "action", ...) so traffic from a single connection or plugin can be
// filtered out of the combined stream.
package logger

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Init configures the global log level. Call once at startup.
func Init(debug, trace bool) {
	mu.Lock()
	defer mu.Unlock()
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if trace {
		level = zerolog.TraceLevel
	}
	root = root.Level(level)
}

func logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func emit(ev *zerolog.Event, component, msg string, fields map[string]interface{}) {
	ev = ev.Str("component", component)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// TraceC logs a trace-level message for a component.
func TraceC(component, msg string) {
	l := logger()
	emit(l.Trace(), component, msg, nil)
}

// DebugC logs a debug-level message for a component.
func DebugC(component, msg string) {
	l := logger()
	emit(l.Debug(), component, msg, nil)
}

// DebugCF logs a debug-level message with structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	l := logger()
	emit(l.Debug(), component, msg, fields)
}

// InfoC logs an info-level message for a component.
func InfoC(component, msg string) {
	l := logger()
	emit(l.Info(), component, msg, nil)
}

// InfoCF logs an info-level message with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	l := logger()
	emit(l.Info(), component, msg, fields)
}

// WarnC logs a warning for a component.
func WarnC(component, msg string) {
	l := logger()
	emit(l.Warn(), component, msg, nil)
}

// WarnCF logs a warning with structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	l := logger()
	emit(l.Warn(), component, msg, fields)
}

// ErrorC logs an error for a component.
func ErrorC(component, msg string) {
	l := logger()
	emit(l.Error(), component, msg, nil)
}

// ErrorCF logs an error with structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	l := logger()
	emit(l.Error(), component, msg, fields)
}
