package eventtree

import "slices"

// HandlerFunc is the callback signature for listeners. inv exposes the
// dispatch context and controls; args are the values passed to Invoke.
type HandlerFunc func(inv *Invocation, args ...any)

// Handler is a listener callback with a stable identity. Attach the same
// *Handler to detach it later; attaching it twice adds two listeners.
type Handler struct {
	name string
	fn   HandlerFunc
}

// NewHandler wraps fn in a Handler named after the function
func NewHandler(fn HandlerFunc) *Handler {
	return &Handler{name: funcName(fn), fn: fn}
}

// NewNamedHandler wraps fn in a Handler with a name used in snapshots and logs
func NewNamedHandler(name string, fn HandlerFunc) *Handler {
	return &Handler{name: name, fn: fn}
}

// Name returns the handler name
func (h *Handler) Name() string {
	return h.name
}

// listener is one attachment of a handler
type listener struct {
	handler *Handler
	options ListenerOptions
}

// record is the per (manager, event) bookkeeping
type record struct {
	listeners []*listener
	explicit  bool
	// bubbleSources holds the ids of descendants that registered this event
	bubbleSources []ID
}

// alive reports whether the record may keep existing
func (r *record) alive() bool {
	return r.explicit || len(r.bubbleSources) > 0
}

func (r *record) addSource(id ID) {
	if !slices.Contains(r.bubbleSources, id) {
		r.bubbleSources = append(r.bubbleSources, id)
	}
}

func (r *record) removeSource(id ID) {
	if i := slices.Index(r.bubbleSources, id); i >= 0 {
		r.bubbleSources = slices.Delete(r.bubbleSources, i, i+1)
	}
}

func (r *record) removeAt(i int) {
	r.listeners = slices.Delete(r.listeners, i, i+1)
}
