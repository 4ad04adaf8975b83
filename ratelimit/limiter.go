// Package ratelimit limits how often listeners and their suspended work run.
//
// Dispatch is synchronous, so a limited listener is skipped rather than
// delayed: eventtree.Throttle checks Allow before each call. Work moved off
// the dispatch path by eventtree.Suspend can afford to block, and
// eventtree.Limited waits for a token before running it.
//
//	// at most one resize per 100ms
//	m.AttachFunc("resize", eventtree.Chain(onResize, eventtree.Throttle(ratelimit.Every(100*time.Millisecond, 1))))
//
//	// at most 5 uploads per second, started from a suspended listener
//	m.AttachFunc("save", eventtree.Suspend(loop, eventtree.Limited(ratelimit.NewTokenBucket(5, 1), upload), nil))
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a listener call or a piece of work may run.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow consumes a token if one is available, without blocking
	Allow(ctx context.Context) bool
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a Limiter over golang.org/x/time/rate
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows rps events per second with bursts of burst
func NewTokenBucket(rps float64, burst int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Every allows one event per interval with bursts of burst
func Every(interval time.Duration, burst int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

func (t *TokenBucket) Allow(ctx context.Context) bool {
	return t.limiter.Allow()
}

func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

var _ Limiter = (*TokenBucket)(nil)
