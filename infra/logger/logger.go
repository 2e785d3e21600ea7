// Package logger provides the zerolog-backed implementation of the core
// Logger interface. Every logger carries a component field and, once
// Configure has been given a device id, a device field.
package logger

import corelogger "github.com/kilianp07/kitty3000/core/logger"

// Logger is the interface consumed by the core packages.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests and optional collaborators use it.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns the logger of one component, e.g. "dispenser" or
// "mqtt_client".
func New(component string) Logger { return NewZerologLogger(component) }

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
