package eventtree

import (
	"context"
	"log/slog"
)

const (
	invocationContextKey contextKey = iota
)

type invocationContextData struct {
	id     string
	name   string
	origin ID
	logger *slog.Logger
	inv    *Invocation
}

// contextKey
type contextKey int

// ContextInvocationID get the invocation id stored in context
func ContextInvocationID(ctx context.Context) string {
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok {
		return s.id
	}
	return ""
}

// ContextName get the event name stored in context
func ContextName(ctx context.Context) string {
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok {
		return s.name
	}
	return ""
}

// ContextOrigin get the id of the manager the event was invoked on, RootID
// when the context carries no invocation
func ContextOrigin(ctx context.Context) ID {
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok {
		return s.origin
	}
	return RootID
}

// ContextInvocation get the invocation stored in context
func ContextInvocation(ctx context.Context) *Invocation {
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok {
		return s.inv
	}
	return nil
}

// ContextLogger get the invocation logger stored in context. The logger
// carries the invocation id and event name. slog.Default is returned when the
// context carries no invocation.
func ContextLogger(ctx context.Context) *slog.Logger {
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// ContextWithLogger generate a context with a custom invocation logger
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok {
		c := *s
		c.logger = l
		return context.WithValue(ctx, invocationContextKey, &c)
	}
	return context.WithValue(ctx, invocationContextKey, &invocationContextData{logger: l})
}

func contextWithInvocation(ctx context.Context, inv *Invocation, l *slog.Logger) context.Context {
	return context.WithValue(ctx, invocationContextKey, &invocationContextData{
		id:     inv.id,
		name:   inv.name,
		origin: inv.origin.id,
		logger: l.With("invocation", inv.id, "event", inv.name),
		inv:    inv,
	})
}

// NewContext copies the invocation data of ctx to a new background context,
// dropping its deadline and cancellation
func NewContext(ctx context.Context) context.Context {
	s, ok := ctx.Value(invocationContextKey).(*invocationContextData)
	if ok {
		return context.WithValue(context.Background(), invocationContextKey, s)
	}
	return context.Background()
}
