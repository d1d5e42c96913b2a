// Package logging provides a context-attached leveled logger. Packages
// emit logs via the free functions below instead of holding a logger
// reference directly, so a test's log lines can be retargeted (e.g. into
// its capture buffer) just by deriving a new context.
package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
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

// Logger receives log lines. Implementations must be safe for concurrent
// use since multiple workers may share one via AttachLogger.
type Logger interface {
	Log(level Level, ts time.Time, msg string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(level Level, ts time.Time, msg string)

func (f LoggerFunc) Log(level Level, ts time.Time, msg string) { f(level, ts, msg) }

type loggerKey struct{}
type prefixKey struct{}

// AttachLogger returns a context with logger attached. Logs emitted via the
// new context are also forwarded to any logger already attached to ctx.
func AttachLogger(ctx context.Context, logger Logger) context.Context {
	if parent, ok := fromContext(ctx); ok {
		logger = MultiLogger(logger, parent)
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// AttachLoggerNoPropagation is like AttachLogger but does not forward to
// any previously attached logger.
func AttachLoggerNoPropagation(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// HasLogger reports whether any logger is attached to ctx.
func HasLogger(ctx context.Context) bool {
	_, ok := fromContext(ctx)
	return ok
}

// WithPrefix returns a context whose log lines are prefixed with prefix,
// e.g. "[pkg.test_name] ", so a worker's output can be tagged with the
// test currently executing on it.
func WithPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, prefixKey{}, prefix)
}

func fromContext(ctx context.Context) (Logger, bool) {
	logger, ok := ctx.Value(loggerKey{}).(Logger)
	return logger, ok
}

func prefixOf(ctx context.Context) string {
	if p, ok := ctx.Value(prefixKey{}).(string); ok {
		return p
	}
	return ""
}

func emit(ctx context.Context, level Level, msg string) {
	logger, ok := fromContext(ctx)
	if !ok {
		return
	}
	logger.Log(level, time.Now(), prefixOf(ctx)+msg)
}

func Debug(ctx context.Context, args ...interface{}) { emit(ctx, LevelDebug, fmt.Sprint(args...)) }
func Info(ctx context.Context, args ...interface{})  { emit(ctx, LevelInfo, fmt.Sprint(args...)) }
func Warn(ctx context.Context, args ...interface{})  { emit(ctx, LevelWarn, fmt.Sprint(args...)) }
func Error(ctx context.Context, args ...interface{}) { emit(ctx, LevelError, fmt.Sprint(args...)) }

func Debugf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, LevelDebug, fmt.Sprintf(format, args...))
}
func Infof(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, LevelInfo, fmt.Sprintf(format, args...))
}
func Warnf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, LevelWarn, fmt.Sprintf(format, args...))
}
func Errorf(ctx context.Context, format string, args ...interface{}) {
	emit(ctx, LevelError, fmt.Sprintf(format, args...))
}

// multiLogger fans a log line out to every wrapped Logger.
type multiLogger struct {
	loggers []Logger
}

// MultiLogger returns a Logger that forwards every line to each of loggers.
func MultiLogger(loggers ...Logger) Logger {
	return &multiLogger{loggers: loggers}
}

func (m *multiLogger) Log(level Level, ts time.Time, msg string) {
	for _, l := range m.loggers {
		l.Log(level, ts, msg)
	}
}

// ReplaceInvalidUTF8 strips invalid UTF-8 sequences from a captured log
// line before it is stored or forwarded.
func ReplaceInvalidUTF8(msg string) string {
	return strings.ToValidUTF8(msg, "")
}
