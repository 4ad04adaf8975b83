package eventtree

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rbaliyan/eventtree/ratelimit"
)

// Middleware wraps a HandlerFunc
type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps fn with mws; the first middleware is the outermost.
func Chain(fn HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return fn
}

// Throttle skips calls that exceed the limiter's rate. Dispatch is
// synchronous, so a throttled call is dropped, not delayed.
//
// Example usage:
//
//	limiter := ratelimit.NewTokenBucket(5, 1)
//	m.AttachFunc("resize", eventtree.Chain(onResize, eventtree.Throttle(limiter)))
func Throttle(limiter ratelimit.Limiter) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(inv *Invocation, args ...any) {
			if !limiter.Allow(inv.Context()) {
				ContextLogger(inv.Context()).Debug("listener call throttled",
					"manager", inv.Current().ID())
				return
			}
			next(inv, args...)
		}
	}
}

// Dedupe runs the handler at most once per invocation, even when it is
// attached on several managers of the bubble chain.
func Dedupe() Middleware {
	seen := make(map[string]*Invocation)
	return func(next HandlerFunc) HandlerFunc {
		return func(inv *Invocation, args ...any) {
			for id, other := range seen {
				if other.State().Terminal() {
					delete(seen, id)
				}
			}
			if _, ok := seen[inv.ID()]; ok {
				return
			}
			seen[inv.ID()] = inv
			next(inv, args...)
		}
	}
}

// Logging logs each call and its duration at debug level
func Logging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(inv *Invocation, args ...any) {
			start := time.Now()
			next(inv, args...)
			ContextLogger(inv.Context()).Debug("listener called",
				"manager", inv.Current().ID(),
				"origin", inv.IsOrigin(),
				"duration", time.Since(start),
			)
		}
	}
}

// WorkFunc is asynchronous listener work. It runs on its own goroutine and
// must not touch the registry.
type WorkFunc func(ctx context.Context, args ...any) error

// Limited waits for a token of limiter before running work. A wait cut
// short by ctx is returned as the work error.
func Limited(limiter ratelimit.Limiter, work WorkFunc) WorkFunc {
	return func(ctx context.Context, args ...any) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		return work(ctx, args...)
	}
}

// Suspend returns a handler that pauses the invocation, runs work on a new
// goroutine and resumes the invocation on loop once work returns. The
// registry must be driven by loop. When onDone is non-nil it runs on the
// loop before Resume with the work error; calling inv.Stop there abandons
// the invocation instead of resuming it.
//
// Example usage:
//
//	m.AttachFunc("save", eventtree.Suspend(loop, upload, nil))
func Suspend(loop *Loop, work WorkFunc, onDone func(inv *Invocation, err error)) HandlerFunc {
	return func(inv *Invocation, args ...any) {
		inv.Pause()
		ctx := NewContext(inv.Context())
		logger := ContextLogger(ctx)
		go func() {
			var err error
			func() {
				defer func() {
					if p := recover(); p != nil {
						logger.Error("suspended work panic recovered",
							"error", p,
							"stack", string(debug.Stack()),
						)
						err = &Error{Kind: ErrListenerPanic, Severity: SeverityError, Event: inv.name}
					}
				}()
				err = work(ctx, args...)
			}()
			if postErr := loop.Post(func() {
				if onDone != nil {
					onDone(inv, err)
				}
				inv.Resume()
			}); postErr != nil {
				logger.Error("cannot resume invocation", "error", postErr)
			}
		}()
	}
}
