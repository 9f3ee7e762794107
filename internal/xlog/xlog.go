// Package xlog provides the small leveled-logger interface used across
// weevil, in the shape of github.com/saferwall/pe/log: a Logger interface
// wrapped by a Helper that adds level filtering and printf-style methods.
package xlog

import (
	"fmt"
	"log"
	"os"
)

// Level is a logging severity.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is the minimal structured-logging sink weevil depends on.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger adapts the standard library's log.Logger to Logger.
type stdLogger struct {
	log *log.Logger
}

// NewStdLogger returns a Logger that writes to w using the standard
// library's logger.
func NewStdLogger(w *os.File) Logger {
	return &stdLogger{log: log.New(w, "", log.LstdFlags)}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	args := append([]interface{}{levelString(level)}, keyvals...)
	l.log.Println(args...)
	return nil
}

func levelString(l Level) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	Logger
	level Level
}

// NewFilter returns a Logger that discards records below level.
func NewFilter(logger Logger, level Level) Logger {
	return &filter{Logger: logger, level: level}
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.Logger.Log(level, keyvals...)
}

// FilterLevel is the option form consumed by NewFilter call sites that
// build up filter options; kept for parity with the teacher's options
// pattern even though weevil only ever applies one filter.
func FilterLevel(level Level) Level { return level }

// Helper adds convenience printf-style methods over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in printf-style convenience methods.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) Debugf(format string, args ...interface{}) {
	h.logger.Log(LevelDebug, sprintf(format, args...))
}

func (h *Helper) Infof(format string, args ...interface{}) {
	h.logger.Log(LevelInfo, sprintf(format, args...))
}

func (h *Helper) Warnf(format string, args ...interface{}) {
	h.logger.Log(LevelWarn, sprintf(format, args...))
}

func (h *Helper) Errorf(format string, args ...interface{}) {
	h.logger.Log(LevelError, sprintf(format, args...))
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
