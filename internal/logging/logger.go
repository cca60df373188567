// Package logging defines the structured-logging interface used across
// alarmlock. The server and client both log through it; the only
// implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger. Fields attached to the
// context with WithFields are appended to every record logged with it.
//
//	log.Info(ctx, "vault initialized", "vault", addr, "unlock_time", t)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

type fieldsKey struct{}

// WithFields returns a copy of ctx carrying args in addition to the fields
// already attached to it. Request-scoped values such as the RPC method or
// the authenticated owner travel this way down to the services.
func WithFields(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := Fields(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields returns the key-value pairs attached to ctx.
func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).([]any)
	return f
}
