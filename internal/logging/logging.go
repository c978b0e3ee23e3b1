// Package logging provides leveled structured logging for the server.
package logging

import (
	"log/slog"
	"os"
)

// Level controls which messages are emitted
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Field is a single structured key/value attached to a log entry
type Field struct {
	pairs map[string]interface{}
}

// WithField attaches a single key/value to a log entry
func WithField(key string, value interface{}) Field {
	return Field{pairs: map[string]interface{}{key: value}}
}

// WithFields attaches multiple key/values to a log entry
func WithFields(pairs map[string]interface{}) Field {
	return Field{pairs: pairs}
}

// Logger is a leveled structured logger backed by slog
type Logger struct {
	slog  *slog.Logger
	level Level
}

// New creates a logger that writes text output to stderr
func New(level Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel(level),
	})
	return &Logger{
		slog:  slog.New(handler),
		level: level,
	}
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func attrs(fields []Field) []interface{} {
	var args []interface{}
	for _, f := range fields {
		for k, v := range f.pairs {
			args = append(args, slog.Any(k, v))
		}
	}
	return args
}

// Debug logs a debug-level message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.slog.Debug(msg, attrs(fields)...)
}

// Info logs an info-level message
func (l *Logger) Info(msg string, fields ...Field) {
	l.slog.Info(msg, attrs(fields)...)
}

// Warn logs a warn-level message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.slog.Warn(msg, attrs(fields)...)
}

// Error logs an error-level message
func (l *Logger) Error(msg string, fields ...Field) {
	l.slog.Error(msg, attrs(fields)...)
}
