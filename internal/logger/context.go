package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is the private key type for the logger stored in a context.
type contextKey struct{}

// ToContext returns a copy of ctx carrying l.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx or the global logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok && l != nil {
			return l
		}
	}

	return global
}

// WithName returns a context whose logger is named (or sub-named) name.
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithKV returns a context whose logger always logs the given key-value pairs.
func WithKV(ctx context.Context, kvs ...any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(kvs...))
}
