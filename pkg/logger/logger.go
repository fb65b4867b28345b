// Package logger defines the logging interface used across the realtime client,
// plus adapters for log/slog and zerolog.
//
// Library code never logs to a process-global logger; every component takes a
// Logger so that applications (and tests) decide where log output goes.
package logger

import (
	"log/slog"
)

// Logger accepts a message followed by alternating key/value pairs,
// mirroring the log/slog calling convention.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

type slogLogger struct {
	logger *slog.Logger
}

// New returns a Logger backed by the given slog handler.
func New(h slog.Handler) Logger {
	return &slogLogger{logger: slog.New(h)}
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

type nopLogger struct{}

// Nop returns a Logger that discards everything. It is the default for
// components constructed without an explicit logger.
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
