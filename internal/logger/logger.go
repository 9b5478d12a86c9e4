// Package logger provides leveled logging for the felipe backend.
// It wraps the standard log package with level filtering and an optional
// JSON output format so container log pipelines can ingest it directly.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual review.
	WarnLevel
	// ErrorLevel logs are high-priority failures.
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel converts a level name to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger provides leveled logging in text or JSON format
type Logger struct {
	level  Level
	format string
	out    io.Writer
	logger *log.Logger
}

var defaultLogger = &Logger{
	level:  InfoLevel,
	format: "text",
	out:    os.Stderr,
	logger: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
}

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	defaultLogger = New(os.Stderr, ParseLevel(level), format)
}

// New creates a logger writing to the given output
func New(out io.Writer, level Level, format string) *Logger {
	format = strings.ToLower(format)
	if format != "json" {
		format = "text"
	}
	flags := log.LstdFlags | log.Lmicroseconds
	if format == "json" {
		flags = 0
	}
	return &Logger{
		level:  level,
		format: format,
		out:    out,
		logger: log.New(out, "", flags),
	}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.format == "json" {
		line, err := json.Marshal(map[string]string{
			"time":  time.Now().UTC().Format(time.RFC3339Nano),
			"level": level.String(),
			"msg":   msg,
		})
		if err != nil {
			_ = l.logger.Output(3, "["+strings.ToUpper(level.String())+"] "+msg)
			return
		}
		_ = l.logger.Output(3, string(line))
		return
	}
	_ = l.logger.Output(3, "["+strings.ToUpper(level.String())+"] "+msg)
}

// Debugf logs a message at DebugLevel
func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(DebugLevel, format, args...) }

// Infof logs a message at InfoLevel
func (l *Logger) Infof(format string, args ...interface{}) { l.logf(InfoLevel, format, args...) }

// Warnf logs a message at WarnLevel
func (l *Logger) Warnf(format string, args ...interface{}) { l.logf(WarnLevel, format, args...) }

// Errorf logs a message at ErrorLevel
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(ErrorLevel, format, args...) }

// Debug logs a message at DebugLevel using the default logger
func Debug(format string, args ...interface{}) { defaultLogger.logf(DebugLevel, format, args...) }

// Info logs a message at InfoLevel using the default logger
func Info(format string, args ...interface{}) { defaultLogger.logf(InfoLevel, format, args...) }

// Warn logs a message at WarnLevel using the default logger
func Warn(format string, args ...interface{}) { defaultLogger.logf(WarnLevel, format, args...) }

// Error logs a message at ErrorLevel using the default logger
func Error(format string, args ...interface{}) { defaultLogger.logf(ErrorLevel, format, args...) }

// Fatal logs a message at ErrorLevel and exits
func Fatal(format string, args ...interface{}) {
	defaultLogger.logf(ErrorLevel, format, args...)
	os.Exit(1)
}
