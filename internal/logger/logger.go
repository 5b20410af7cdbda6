package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// global is the shared logger instance used throughout the application.
	//nolint:gochecknoglobals // Logger is used all over the project, so it's okay.
	global *zap.SugaredLogger
	// defaultLevel is the minimum log level for messages to be processed.
	//nolint:gochecknoglobals // Level must be adjustable after the logger is built.
	defaultLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // The logger must be usable before flags are parsed.
	SetLogger(New(defaultLevel, os.Stderr))
}

// New creates a *zap.SugaredLogger writing console-formatted entries to w.
// A nil level falls back to the shared atomic level, a nil writer to stderr.
// Stdout stays reserved for command output such as caveats.
func New(level zapcore.LevelEnabler, w io.Writer, options ...zap.Option) *zap.SugaredLogger {
	if level == nil {
		level = defaultLevel
	}

	if w == nil {
		w = os.Stderr
	}

	//nolint:exhaustruct // Default encoder values are fine.
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		NameKey:          "logger",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)

	return zap.New(core, options...).Sugar()
}

// ParseLogLevel converts string input to zap log level.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Level returns the current logging level of the global logger.
func Level() zapcore.Level {
	return defaultLevel.Level()
}

// Logger returns the global logger.
func Logger() *zap.SugaredLogger {
	return global
}

// SetLogger sets the global logger.
// This function is not thread-safe.
func SetLogger(l *zap.SugaredLogger) {
	global = l
}

// SetLevel sets the log level for the global logger.
func SetLevel(level zapcore.Level) {
	//nolint:errcheck // Sync on console writers commonly fails with EINVAL.
	defer global.Sync()

	defaultLevel.SetLevel(level)
}

// Debug writes a debug level message using the logger from the context.
func Debug(ctx context.Context, args ...any) {
	FromContext(ctx).Debug(args...)
}

// Debugf writes a formatted debug level message using the logger from the context.
func Debugf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Debugf(format, args...)
}

// DebugKV writes a message and key-value pairs
// at the debug level using the logger from the context.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Debugw(message, kvs...)
}

// Info writes an information level message using the logger from the context.
func Info(ctx context.Context, args ...any) {
	FromContext(ctx).Info(args...)
}

// Infof writes a formatted information level message using the logger from the context.
func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Infof(format, args...)
}

// InfoKV writes a message and key-value pairs
// at the information level using the logger from the context.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Infow(message, kvs...)
}

// Warnf writes a formatted warning level message using the logger from the context.
func Warnf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Warnf(format, args...)
}

// WarnKV writes a message and key-value pairs
// at the warning level using the logger from the context.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Warnw(message, kvs...)
}

// ErrorKV writes a message and key-value pairs
// at the error level using the logger from the context.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Errorw(message, kvs...)
}
