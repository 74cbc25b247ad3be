// Package logger provides leveled structured logging backed by zerolog.
package logger

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	defaultLogger.Store(&nop)
}

// Init initializes the default logger with the specified level and format.
// Format "text" writes human-readable console lines; anything else writes JSON.
func Init(level string, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if strings.ToLower(format) == "text" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMicro})
	} else {
		l = zerolog.New(os.Stderr)
	}
	l = l.Level(lvl).With().Timestamp().Logger()
	defaultLogger.Store(&l)
}

// L returns the underlying logger for structured events.
func L() *zerolog.Logger {
	return defaultLogger.Load()
}

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}

func Debug(format string, args ...interface{}) {
	L().Debug().Msgf(format, args...)
}

func Info(format string, args ...interface{}) {
	L().Info().Msgf(format, args...)
}

func Warn(format string, args ...interface{}) {
	L().Warn().Msgf(format, args...)
}

func Error(format string, args ...interface{}) {
	L().Error().Msgf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	L().WithLevel(zerolog.FatalLevel).Msgf(format, args...)
	os.Exit(1)
}
