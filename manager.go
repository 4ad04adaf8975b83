package eventtree

import (
	"context"
	"errors"
	"slices"
	"sort"
)

// Invoker dispatches one event on the manager it was created for. It is
// returned by Register and works even when arbitrary invocation is disabled,
// which lets an owner keep invocation private.
type Invoker func(args ...any) (bool, error)

// Manager is the event registry of one owner and its node in the bubble
// chain. It is created by Registry.Setup.
//
// Operations that fail report a *Error. When a handler for the error's
// severity is configured the handler receives it and the operation returns a
// nil error, so check the boolean or pointer result to detect failure.
type Manager struct {
	id       ID
	owner    any
	parent   ID
	cfg      *Config // nil for the root, which reads the registry config
	events   map[string]*record
	registry *Registry

	destroyed bool
}

// ID returns the manager id
func (m *Manager) ID() ID {
	return m.id
}

// Owner returns the object the manager represents
func (m *Manager) Owner() any {
	return m.owner
}

// Registry returns the registry the manager belongs to
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsRoot returns true for the root manager
func (m *Manager) IsRoot() bool {
	return m == m.registry.root
}

// Destroyed returns true after Destroy
func (m *Manager) Destroyed() bool {
	return m.destroyed
}

// Config returns a copy of the effective configuration of the manager.
func (m *Manager) Config() Config {
	return m.config().clone()
}

func (m *Manager) config() *Config {
	if m.cfg != nil {
		return m.cfg
	}
	return &m.registry.config
}

// Parent returns the parent manager. A link to a destroyed parent is
// dropped and the root is returned instead; the root has no parent.
func (m *Manager) Parent() *Manager {
	if m.parent != noParent {
		if p := m.registry.get(m.parent); p != nil {
			return p
		}
		m.parent = noParent
	}
	if m.IsRoot() {
		return nil
	}
	return m.registry.root
}

// report delivers err to the configured handler for its severity. Unhandled
// errors are returned and unhandled warnings are dropped.
func (m *Manager) report(err *Error) error {
	cfg := m.config()
	handler := cfg.WarningHandler
	if err.Severity == SeverityError {
		handler = cfg.ErrorHandler
	}
	if handler != nil {
		handler(err)
		return nil
	}
	if err.Severity == SeverityWarning {
		m.registry.logger.Debug("warning dropped", "error", err)
		return nil
	}
	return err
}

func (m *Manager) fail(kind error, name string) error {
	return m.report(&Error{Kind: kind, Severity: SeverityError, Manager: m.id, Event: name})
}

// HasEvent returns true if the event is registered on the manager, either
// explicitly or by a descendant.
func (m *Manager) HasEvent(name string) bool {
	_, ok := m.events[name]
	return ok
}

// Events returns the sorted names of the registered events
func (m *Manager) Events() []string {
	names := make([]string, 0, len(m.events))
	for name := range m.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers name explicitly on the manager and, when bubbling is
// enabled, on each ancestor on behalf of this manager. The returned Invoker
// dispatches the event.
func (m *Manager) Register(name string) (Invoker, error) {
	if m.destroyed {
		return nil, m.fail(ErrManagerDestroyed, name)
	}
	if ok, err := m.register(name); !ok {
		return nil, err
	}
	return m.invoker(name), nil
}

// RegisterList registers each name explicitly. It requires arbitrary
// invocation to be enabled.
func (m *Manager) RegisterList(names ...string) error {
	if m.destroyed {
		return m.fail(ErrManagerDestroyed, "")
	}
	if !m.config().ArbitraryInvoke {
		return m.fail(ErrInvokeDisabled, "")
	}
	var errs error
	for _, name := range names {
		if _, err := m.register(name); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// RegisterGroups registers every name of every group, see RegisterList.
func (m *Manager) RegisterGroups(groups ...[]string) error {
	return m.RegisterList(slices.Concat(groups...)...)
}

// register is an origin-level registration
func (m *Manager) register(name string) (bool, error) {
	cfg := m.config()
	if !cfg.allows(name) {
		return false, m.fail(ErrInvalidEventName, name)
	}
	m.ensure(name).explicit = true
	if cfg.Bubble {
		for a := m.Parent(); a != nil; a = a.Parent() {
			a.registerBubble(name, m.id)
		}
	}
	m.registry.logger.Debug("event registered", "manager", m.id, "event", name)
	return true, nil
}

// registerBubble registers name on behalf of the descendant source
func (m *Manager) registerBubble(name string, source ID) {
	m.ensure(name).addSource(source)
}

func (m *Manager) ensure(name string) *record {
	rec, ok := m.events[name]
	if !ok {
		rec = &record{}
		m.events[name] = rec
	}
	return rec
}

// Deregister removes the explicit registration of name and withdraws this
// manager from every ancestor. Records left without an explicit
// registration or a bubbling descendant are deleted, listeners included.
func (m *Manager) Deregister(name string) {
	if m.destroyed {
		return
	}
	m.deregister(name)
}

func (m *Manager) deregister(name string) {
	rec, ok := m.events[name]
	if !ok {
		return
	}
	rec.explicit = false
	m.prune(name, rec)
	for a := m.Parent(); a != nil; a = a.Parent() {
		a.deregisterBubble(name, m.id)
	}
	m.registry.logger.Debug("event deregistered", "manager", m.id, "event", name)
}

// deregisterBubble withdraws source from the record of name
func (m *Manager) deregisterBubble(name string, source ID) {
	rec, ok := m.events[name]
	if !ok {
		return
	}
	rec.removeSource(source)
	m.prune(name, rec)
}

func (m *Manager) prune(name string, rec *record) {
	if !rec.alive() {
		delete(m.events, name)
	}
}

// prepare returns the record for name, creating it through an explicit
// registration unless strict mode forbids it. A nil record means failure.
func (m *Manager) prepare(name string) (*record, error) {
	if m.destroyed {
		return nil, m.fail(ErrManagerDestroyed, name)
	}
	if rec, ok := m.events[name]; ok {
		return rec, nil
	}
	if m.config().Strict {
		return nil, m.fail(ErrUnregisteredEvent, name)
	}
	if ok, err := m.register(name); !ok {
		return nil, err
	}
	return m.events[name], nil
}

// Attach appends h to the listeners of name. Unless strict mode is enabled
// an unknown event is registered first. Duplicates are allowed.
func (m *Manager) Attach(name string, h *Handler, opts ...ListenerOption) error {
	_, err := m.attach(name, h, opts)
	return err
}

// AttachFunc wraps fn in a new Handler and attaches it. The handler is nil
// when nothing was attached.
func (m *Manager) AttachFunc(name string, fn HandlerFunc, opts ...ListenerOption) (*Handler, error) {
	h := NewHandler(fn)
	if ok, err := m.attach(name, h, opts); !ok {
		return nil, err
	}
	return h, nil
}

func (m *Manager) attach(name string, h *Handler, opts []ListenerOption) (bool, error) {
	if h == nil || h.fn == nil {
		return false, m.fail(ErrNilHandler, name)
	}
	rec, err := m.prepare(name)
	if rec == nil {
		return false, err
	}
	rec.listeners = append(rec.listeners, &listener{handler: h, options: newListenerOptions(opts)})
	m.registry.metrics.attached(context.Background(), name)
	return true, nil
}

// Detach removes listeners of name. With a nil handler every listener is
// removed and Detach returns true if the event exists. Otherwise the first
// listener attached with h is removed; when opts are given its options must
// also be equal. Detach returns whether a listener was removed.
//
// In strict mode an unregistered name is also reported to the error handler.
func (m *Manager) Detach(name string, h *Handler, opts ...ListenerOption) bool {
	if m.destroyed {
		return false
	}
	rec, ok := m.events[name]
	if !ok {
		if m.config().Strict {
			if err := m.fail(ErrUnregisteredEvent, name); err != nil {
				m.registry.logger.Debug("detach failed", "error", err)
			}
		}
		return false
	}
	if h == nil {
		rec.listeners = nil
		return true
	}
	want := newListenerOptions(opts)
	for i, l := range rec.listeners {
		if l.handler != h {
			continue
		}
		if len(opts) > 0 && l.options != want {
			continue
		}
		rec.removeAt(i)
		return true
	}
	return false
}

// withdrawDescendants removes the registrations that descendants propagated
// through m. Orphaned descendants fall back to the root, which keeps them.
func (m *Manager) withdrawDescendants(name string, sources []ID) {
	for a := m.Parent(); a != nil && !a.IsRoot(); a = a.Parent() {
		for _, src := range sources {
			a.deregisterBubble(name, src)
		}
	}
}

// Listeners returns the number of listeners attached to name
func (m *Manager) Listeners(name string) int {
	if rec, ok := m.events[name]; ok {
		return len(rec.listeners)
	}
	return 0
}

// Invoke dispatches name with args, see Dispatch. It returns true when a
// dispatch was started.
func (m *Manager) Invoke(name string, args ...any) (bool, error) {
	inv, err := m.Dispatch(context.Background(), name, args...)
	return inv != nil, err
}

// Dispatch starts an invocation of name with args. Unless strict mode is
// enabled an unknown event is registered first. Listeners run synchronously
// before Dispatch returns, unless a listener pauses the invocation; the
// returned Invocation then finishes when it is resumed. ctx is the parent
// of the invocation span and is available to listeners through
// Invocation.Context.
//
// Dispatch requires arbitrary invocation to be enabled; use the Invoker
// returned by Register otherwise.
func (m *Manager) Dispatch(ctx context.Context, name string, args ...any) (*Invocation, error) {
	if m.destroyed {
		return nil, m.fail(ErrManagerDestroyed, name)
	}
	if !m.config().ArbitraryInvoke {
		return nil, m.fail(ErrInvokeDisabled, name)
	}
	return m.dispatch(ctx, name, args)
}

func (m *Manager) dispatch(ctx context.Context, name string, args []any) (*Invocation, error) {
	if rec, err := m.prepare(name); rec == nil {
		return nil, err
	}
	inv := newInvocation(ctx, m, name, args)
	inv.run()
	return inv, nil
}

func (m *Manager) invoker(name string) Invoker {
	return func(args ...any) (bool, error) {
		inv, err := m.dispatch(context.Background(), name, args)
		return inv != nil, err
	}
}

// Destroy deregisters every event of the manager and removes it from the
// registry. Its id is never reused. Children linked to it fall back to the
// root. The root manager cannot be destroyed.
func (m *Manager) Destroy() error {
	if m.IsRoot() {
		return m.fail(ErrRootManager, "")
	}
	if m.destroyed {
		return nil
	}
	m.destroyed = true
	m.registry.forget(m)
	for _, name := range m.Events() {
		sources := slices.Clone(m.events[name].bubbleSources)
		m.deregister(name)
		m.withdrawDescendants(name, sources)
	}
	clear(m.events)
	m.registry.logger.Debug("manager destroyed", "manager", m.id)
	return nil
}
