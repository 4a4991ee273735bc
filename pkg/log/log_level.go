package log

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// LogLevel is the scheduler's own notion of log severity, independent
// of zap's zapcore.Level, so callers outside this package (strandctl's
// --log-level flag validation, in particular) don't need to import zap
// just to compare a configured level against a threshold.
type LogLevel int8

const (
	DebugLevel LogLevel = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLogLevel converts a string level to a LogLevel, matching
// case-insensitively and accepting "warning" as a synonym for "warn".
// An unrecognized string is reported back via ok=false but still
// yields InfoLevel, matching this package's fail-open default.
func ParseLogLevel(level string) (parsed LogLevel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel, true
	case "info":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "fatal":
		return FatalLevel, true
	default:
		return InfoLevel, false
	}
}
