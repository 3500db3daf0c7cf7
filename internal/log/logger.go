// SPDX-License-Identifier: MIT

// Package log is the leveled logger used across shottimer. The package-level
// functions write through a process-wide default; components that want their
// own sink take a Logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// Logger is the logging surface handed to components.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// ZeroLogger is a Logger backed by zerolog. Its level can be changed while
// other goroutines log through it.
type ZeroLogger struct {
	zl    zerolog.Logger
	level atomic.Uint32
}

var _ Logger = (*ZeroLogger)(nil)

// New returns a JSON logger writing to w.
func New(w io.Writer, level LogLevel) *ZeroLogger {
	return newLogger(zerolog.New(w).With().Timestamp().Logger(), level)
}

// NewConsole returns a human-readable logger writing to w.
func NewConsole(w io.Writer, level LogLevel) *ZeroLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	return newLogger(zerolog.New(cw).With().Timestamp().Logger(), level)
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	return newLogger(zerolog.Nop(), LevelFatal)
}

func newLogger(zl zerolog.Logger, level LogLevel) *ZeroLogger {
	l := &ZeroLogger{zl: zl}
	l.SetLevel(level)
	return l
}

// SetLevel changes the minimum level written.
func (l *ZeroLogger) SetLevel(level LogLevel) {
	l.level.Store(uint32(level))
}

// Level returns the minimum level written.
func (l *ZeroLogger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

// With returns a child logger that tags every line with component.
func (l *ZeroLogger) With(component string) *ZeroLogger {
	return newLogger(l.zl.With().Str("component", component).Logger(), l.Level())
}

func (l *ZeroLogger) enabled(level LogLevel) bool {
	return level >= l.Level()
}

func (l *ZeroLogger) Debugf(format string, v ...any) {
	if l.enabled(LevelDebug) {
		l.zl.WithLevel(zerolog.DebugLevel).Msgf(format, v...)
	}
}

func (l *ZeroLogger) Infof(format string, v ...any) {
	if l.enabled(LevelInfo) {
		l.zl.WithLevel(zerolog.InfoLevel).Msgf(format, v...)
	}
}

func (l *ZeroLogger) Warnf(format string, v ...any) {
	if l.enabled(LevelWarn) {
		l.zl.WithLevel(zerolog.WarnLevel).Msgf(format, v...)
	}
}

func (l *ZeroLogger) Errorf(format string, v ...any) {
	if l.enabled(LevelError) {
		l.zl.WithLevel(zerolog.ErrorLevel).Msgf(format, v...)
	}
}

// --- Global Logger State ---

var (
	stdMu sync.RWMutex
	std   = NewConsole(os.Stderr, LevelInfo)
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Default returns the package-level logger.
func Default() *ZeroLogger {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// SetOutput redirects the package-level logger to w, keeping its level.
// Pass json=false for console formatting.
func SetOutput(w io.Writer, json bool) {
	stdMu.Lock()
	defer stdMu.Unlock()
	level := std.Level()
	if json {
		std = New(w, level)
	} else {
		std = NewConsole(w, level)
	}
}

// SetLevel sets the package-level logging level.
func SetLevel(level LogLevel) {
	Default().SetLevel(level)
}

// GetLevel gets the package-level logging level.
func GetLevel() LogLevel {
	return Default().Level()
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) { Default().Debugf(format, v...) }

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) { Default().Infof(format, v...) }

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) { Default().Warnf(format, v...) }

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) { Default().Errorf(format, v...) }

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	Default().zl.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, v...))
	os.Exit(1)
}
