package eventtree

import (
	"sync"
)

// TestRegistry creates a registry configured for testing: tracing, metrics
// and panic recovery are disabled.
//
// Example:
//
//	r := eventtree.TestRegistry(eventtree.WithConfig(eventtree.WithStrict(true)))
func TestRegistry(opts ...Option) *Registry {
	return NewRegistry(append([]Option{
		WithName("test-registry"),
		WithRecovery(false),
		WithTracing(false),
		WithMetrics(false),
	}, opts...)...)
}

// RecordedCall is one listener call seen by a Recorder
type RecordedCall struct {
	Label   string
	Event   string
	Manager ID
	Origin  ID
	Args    []any
}

// Recorder builds handlers that record their calls in order.
// Useful for testing dispatch order across the bubble chain.
type Recorder struct {
	mu    sync.Mutex
	calls []RecordedCall
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Handler returns a new handler named label that records each call
func (r *Recorder) Handler(label string) *Handler {
	return NewNamedHandler(label, r.Func(label, nil))
}

// Func returns a handler function that records each call as label and then
// runs then, which may be nil
func (r *Recorder) Func(label string, then HandlerFunc) HandlerFunc {
	return func(inv *Invocation, args ...any) {
		r.mu.Lock()
		r.calls = append(r.calls, RecordedCall{
			Label:   label,
			Event:   inv.Name(),
			Manager: inv.Current().ID(),
			Origin:  inv.OriginManager().ID(),
			Args:    args,
		})
		r.mu.Unlock()
		if then != nil {
			then(inv, args...)
		}
	}
}

// Calls returns a copy of all recorded calls
func (r *Recorder) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]RecordedCall, len(r.calls))
	copy(result, r.calls)
	return result
}

// Labels returns the labels of the recorded calls in call order
func (r *Recorder) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		labels = append(labels, c.Label)
	}
	return labels
}

// Count returns the number of recorded calls
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Reset clears all recorded calls
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
