package eventtree

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Loop errors
var (
	ErrLoopClosed = errors.New("loop is closed")
	ErrLoopFull   = errors.New("loop queue is full")
)

// Loop runs posted functions one at a time on the goroutine that calls Run.
// Registries are not safe for concurrent use; work that finishes on another
// goroutine posts its follow-up (typically Invocation.Resume) to the Loop
// that owns the registry.
type Loop struct {
	mu     sync.Mutex
	queue  chan func()
	closed bool
	done   chan struct{}
	logger *slog.Logger
}

// NewLoop creates a loop with a queue of size pending functions
func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 1024
	}
	return &Loop{
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
		logger: Logger("eventtree.loop"),
	}
}

// Post queues fn. It never blocks: a full queue returns ErrLoopFull.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLoopClosed
	}
	select {
	case l.queue <- fn:
		return nil
	default:
		return ErrLoopFull
	}
}

// Do posts fn and waits for it to run. It must not be called from the loop
// goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := l.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted functions until ctx is done or the loop is closed and
// drained. Panics are recovered and logged.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn, ok := <-l.queue:
			if !ok {
				return nil
			}
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("loop task panic recovered",
				"error", p,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Close stops accepting work. Run returns once the queued functions ran.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.queue)
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
