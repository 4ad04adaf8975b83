package eventtree

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanKeyInvocationID = "invocation.id"
	spanKeyEventName    = "event.name"
	spanKeyOrigin       = "event.origin"
	spanKeyManager      = "event.manager"
	spanKeyState        = "invocation.state"
)

// State is the state of an Invocation
type State int

const (
	// StateRunning means listeners are being called
	StateRunning State = iota
	// StatePaused means a listener paused the invocation and it waits for Resume
	StatePaused
	// StateStopped means a listener called Stop, or Stop abandoned a paused invocation
	StateStopped
	// StateCompleted means the bubble chain was exhausted or bubbling was stopped
	StateCompleted
)

// String returns a string representation of the state
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal returns true for stopped and completed
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCompleted
}

// Invocation is one occurrence of an event walking up the bubble chain. It
// is passed to every listener and can be stopped, paused and resumed.
//
// Listener lists are read live, by position: listeners attached or detached
// while an invocation runs or is paused are seen by the rest of the walk. A
// listener that detaches itself shifts its successor into the slot already
// visited, so that successor is skipped by this invocation.
type Invocation struct {
	id       string
	name     string
	args     []any
	registry *Registry
	origin   *Manager

	// resumable position
	current ID
	index   int

	stopped bool
	bubble  bool
	paused  bool
	running bool
	state   State

	// listener being called
	at      *Manager
	options ListenerOptions

	ctx  context.Context
	span trace.Span
	done chan struct{}
}

func newInvocation(ctx context.Context, m *Manager, name string, args []any) *Invocation {
	if ctx == nil {
		ctx = context.Background()
	}
	r := m.registry
	inv := &Invocation{
		id:       NewID(),
		name:     name,
		args:     args,
		registry: r,
		origin:   m,
		current:  m.id,
		bubble:   true,
		state:    StateRunning,
		at:       m,
		ctx:      ctx,
		done:     make(chan struct{}),
	}
	ctx = contextWithInvocation(ctx, inv, r.logger)
	inv.ctx = ctx
	if r.tracer != nil {
		inv.ctx, inv.span = r.tracer.Start(ctx, fmt.Sprintf("%s.invoke", name),
			trace.WithAttributes(
				attribute.String(spanKeyInvocationID, inv.id),
				attribute.String(spanKeyEventName, name),
				attribute.Int(spanKeyOrigin, int(m.id))),
			trace.WithSpanKind(trace.SpanKindInternal))
	}
	r.metrics.invoked(inv.ctx, name)
	return inv
}

// ID returns the unique invocation id
func (inv *Invocation) ID() string {
	return inv.id
}

// Name returns the event name
func (inv *Invocation) Name() string {
	return inv.name
}

// Args returns the arguments passed to Invoke
func (inv *Invocation) Args() []any {
	return inv.args
}

// Origin returns the owner of the manager the event was invoked on
func (inv *Invocation) Origin() any {
	return inv.origin.owner
}

// OriginManager returns the manager the event was invoked on
func (inv *Invocation) OriginManager() *Manager {
	return inv.origin
}

// Owner returns the owner of the manager whose listener is running
func (inv *Invocation) Owner() any {
	return inv.at.owner
}

// Current returns the manager whose listener is running
func (inv *Invocation) Current() *Manager {
	return inv.at
}

// IsOrigin returns true while a listener of the origin manager is running
func (inv *Invocation) IsOrigin() bool {
	return inv.at == inv.origin
}

// Options returns the options of the running listener
func (inv *Invocation) Options() ListenerOptions {
	return inv.options
}

// State returns the current state
func (inv *Invocation) State() State {
	return inv.state
}

// Context returns the invocation context, carrying the invocation span when
// tracing is enabled
func (inv *Invocation) Context() context.Context {
	return inv.ctx
}

// Done returns a channel closed when the invocation stops or completes
func (inv *Invocation) Done() <-chan struct{} {
	return inv.done
}

// Stop ends the invocation after the running listener returns: no further
// listener runs, on this manager or an ancestor. Stopping a paused
// invocation abandons it immediately.
func (inv *Invocation) Stop() {
	if inv.state.Terminal() {
		return
	}
	inv.stopped = true
	if !inv.running && inv.state == StatePaused {
		inv.finish(StateStopped)
	}
}

// StopBubble lets the remaining listeners of the current manager run but
// prevents the move to the parent manager.
func (inv *Invocation) StopBubble() {
	inv.bubble = false
}

// Pause suspends the invocation after the running listener returns. The
// position is kept until Resume is called, possibly much later.
func (inv *Invocation) Pause() {
	if inv.state.Terminal() {
		return
	}
	inv.paused = true
}

// Resume continues a paused invocation from where it stopped. Calling it
// from the listener that paused, before that listener returns, cancels the
// pause without re-entering the walk.
func (inv *Invocation) Resume() {
	if inv.state.Terminal() {
		return
	}
	inv.paused = false
	if inv.running || inv.state != StatePaused {
		return
	}
	inv.state = StateRunning
	if inv.span != nil {
		inv.span.AddEvent("resume")
	}
	inv.registry.metrics.resumed(inv.ctx, inv.name)
	inv.run()
}

// run walks the chain from the saved position. It returns when the walk
// finishes or a listener pauses it; Resume calls it again.
func (inv *Invocation) run() {
	inv.running = true
	defer func() { inv.running = false }()

	r := inv.registry
	for {
		m := r.get(inv.current)
		if m == nil {
			break
		}
		for {
			rec := m.events[inv.name]
			if rec == nil || inv.index >= len(rec.listeners) {
				break
			}
			l := rec.listeners[inv.index]
			// once listeners leave the list when reached, before the filters
			// and before the call, so a nested invocation cannot see them
			if l.options.Once {
				rec.removeAt(inv.index)
			} else {
				inv.index++
			}
			if !inv.accepts(m, l) {
				continue
			}
			inv.call(m, l)

			if inv.stopped {
				inv.finish(StateStopped)
				return
			}
			if inv.paused {
				inv.state = StatePaused
				if inv.span != nil {
					inv.span.AddEvent("pause", trace.WithAttributes(attribute.Int(spanKeyManager, int(m.id))))
				}
				r.metrics.paused(inv.ctx, inv.name)
				return
			}
		}

		inv.index = 0
		if !inv.bubble {
			break
		}
		p := m.Parent()
		if p == nil {
			break
		}
		inv.current = p.id
	}
	inv.finish(StateCompleted)
}

// accepts applies the originOnly and bubbleOnly filters
func (inv *Invocation) accepts(m *Manager, l *listener) bool {
	if l.options.OriginOnly && m != inv.origin {
		return false
	}
	if l.options.BubbleOnly && m == inv.origin {
		return false
	}
	return true
}

// call runs one listener, recovering a panic when recovery is enabled
func (inv *Invocation) call(m *Manager, l *listener) {
	r := inv.registry
	inv.at = m
	inv.options = l.options
	if r.recover {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Warn("listener panic recovered",
					"event", inv.name,
					"manager", m.id,
					"handler", l.handler.name,
					"error", p,
					"stack", string(debug.Stack()),
				)
				_ = m.report(&Error{
					Kind:     ErrListenerPanic,
					Severity: SeverityWarning,
					Manager:  m.id,
					Event:    inv.name,
					Detail:   fmt.Sprint(p),
				})
			}
		}()
	}
	r.metrics.called(inv.ctx, inv.name)
	l.handler.fn(inv, inv.args...)
}

func (inv *Invocation) finish(state State) {
	inv.state = state
	if inv.span != nil {
		inv.span.SetAttributes(attribute.String(spanKeyState, state.String()))
		inv.span.End()
	}
	inv.registry.metrics.finished(inv.ctx, inv.name, state)
	close(inv.done)
}
