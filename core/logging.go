package core

import (
	"fmt"
	"log"
	"strings"
)

// LogLevel controls the verbosity of SDK diagnostics.
type LogLevel int

const (
	LogNone LogLevel = iota
	LogError
	LogWarn
	LogInfo
	LogDebug
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogError:
		return "error"
	case LogWarn:
		return "warn"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLogLevel converts a level name to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LogNone, nil
	case "error":
		return LogError, nil
	case "warn", "warning":
		return LogWarn, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	}
	return LogNone, fmt.Errorf("unknown log level %q", s)
}

// Logger is the interface SDK diagnostics are written to.
type Logger interface {
	Printf(format string, v ...any)
}

// DefaultLogger returns a Logger backed by the standard library log package.
func DefaultLogger() Logger {
	return stdLogger{}
}

type stdLogger struct{}

func (stdLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

// LevelLogger gates a Logger by verbosity level. A nil *LevelLogger or nil
// underlying Logger discards everything.
type LevelLogger struct {
	Logger Logger
	Level  LogLevel
}

// NewLevelLogger wraps logger at the given level. A nil logger falls back to
// DefaultLogger unless level is LogNone.
func NewLevelLogger(logger Logger, level LogLevel) *LevelLogger {
	if logger == nil && level != LogNone {
		logger = DefaultLogger()
	}
	return &LevelLogger{Logger: logger, Level: level}
}

func (l *LevelLogger) logf(level LogLevel, format string, v ...any) {
	if l == nil || l.Logger == nil || level > l.Level {
		return
	}
	l.Logger.Printf(format, v...)
}

// Errorf logs at LogError.
func (l *LevelLogger) Errorf(format string, v ...any) { l.logf(LogError, format, v...) }

// Warnf logs at LogWarn.
func (l *LevelLogger) Warnf(format string, v ...any) { l.logf(LogWarn, format, v...) }

// Infof logs at LogInfo.
func (l *LevelLogger) Infof(format string, v ...any) { l.logf(LogInfo, format, v...) }

// Debugf logs at LogDebug.
func (l *LevelLogger) Debugf(format string, v ...any) { l.logf(LogDebug, format, v...) }
