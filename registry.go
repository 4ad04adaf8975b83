package eventtree

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ID identifies a manager within its Registry. IDs are slot indexes and are
// never reused, even after the manager is destroyed.
type ID int

const (
	// RootID is the id of the root manager.
	RootID ID = 0

	noParent ID = -1
)

// Registry is a table of managers linked into a forest below a root manager.
//
// A Registry is not safe for concurrent use. All calls, including Resume on
// a paused invocation, must be serialized by the caller; Loop is a simple
// way to do that when work completes on other goroutines.
type Registry struct {
	name    string
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics
	recover bool

	config Config
	frozen bool

	managers []*Manager   // index is the manager id; nil marks a destroyed slot
	owners   map[any]ID   // live owner -> manager id
	pending  map[any][]ID // missing parent owner -> waiting children
	root     *Manager
}

// NewRegistry creates a registry and its root manager. The root manager is
// owned by the registry itself, so passing the registry as the parent in
// Setup links a manager to the root explicitly.
func NewRegistry(opts ...Option) *Registry {
	o := newOptions(opts...)

	r := &Registry{
		name:    o.name,
		logger:  o.logger,
		metrics: newMetrics(o.name, o.metricsEnabled),
		recover: o.recoveryEnabled,
		config:  DefaultConfig(),
		owners:  make(map[any]ID),
		pending: make(map[any][]ID),
	}
	for _, opt := range o.config {
		opt(&r.config)
	}
	if o.tracingEnabled {
		tp := o.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		r.tracer = tp.Tracer(o.name)
	}
	r.root = r.newManager(r, nil)
	return r
}

// Name returns the registry name
func (r *Registry) Name() string {
	return r.name
}

// Root returns the root manager
func (r *Registry) Root() *Manager {
	return r.root
}

// Config returns a copy of the registry wide configuration.
func (r *Registry) Config() Config {
	return r.config.clone()
}

// Configure changes the registry wide configuration. Changes are merged in
// order. Once any manager has been set up the configuration is frozen and
// Configure fails with ErrConfigurationAfterSetup.
func (r *Registry) Configure(opts ...ConfigOption) error {
	if r.frozen {
		return r.root.report(&Error{
			Kind:     ErrConfigurationAfterSetup,
			Severity: SeverityError,
			Manager:  RootID,
		})
	}
	for _, opt := range opts {
		opt(&r.config)
	}
	return nil
}

// Setup creates a manager for owner. owner must be comparable (typically a
// pointer) and not already set up.
//
// When parent is non-nil it names the owner of the parent manager. A parent
// that is not set up yet is reported as an ErrMissingParent warning and the
// link is completed when the parent is set up. overrides adjust the
// configuration for this manager only.
//
// Setup returns an error and no manager when owner or parent is invalid or
// owner is already set up. If linking a waiting child to the new manager
// would create a cycle, the link is rejected, the manager is still returned
// and the ErrLinkCycle error is reported.
func (r *Registry) Setup(owner, parent any, overrides ...ConfigOption) (*Manager, error) {
	if !isComparable(owner) {
		return nil, r.reject(ErrInvalidOwner, "owner %T", owner)
	}
	if parent != nil && !isComparable(parent) {
		return nil, r.reject(ErrInvalidOwner, "parent %T", parent)
	}
	if id, ok := r.owners[owner]; ok {
		return nil, r.reject(ErrDuplicateOwner, "owner %T already has manager %d", owner, id)
	}

	r.frozen = true
	cfg := r.config.clone()
	for _, opt := range overrides {
		opt(&cfg)
	}
	m := r.newManager(owner, &cfg)

	var errs error
	switch pid, ok := r.owners[parent]; {
	case parent == nil:
	case parent == owner:
		r.logger.Warn("parent link rejected: cycle", "child", m.id, "parent", m.id)
		errs = m.report(&Error{
			Kind:     ErrLinkCycle,
			Severity: SeverityError,
			Manager:  m.id,
			Detail:   "manager cannot be its own parent",
		})
	case ok:
		m.parent = pid
	default:
		r.pending[parent] = append(r.pending[parent], m.id)
		r.logger.Debug("parent not set up, link deferred", "manager", m.id)
		_ = m.report(&Error{Kind: ErrMissingParent, Severity: SeverityWarning, Manager: m.id})
	}

	r.logger.Debug("manager set up", "manager", m.id, "parent", m.parent)
	return m, errors.Join(errs, r.resolvePending(m))
}

// reject reports an error that prevents Setup from creating a manager. The
// error is returned even when an error handler consumed it, because there is
// no manager to return.
func (r *Registry) reject(kind error, format string, args ...any) error {
	err := &Error{Kind: kind, Severity: SeverityError, Manager: RootID, Detail: fmt.Sprintf(format, args...)}
	_ = r.root.report(err)
	return err
}

// newManager allocates the next slot
func (r *Registry) newManager(owner any, cfg *Config) *Manager {
	m := &Manager{
		id:       ID(len(r.managers)),
		owner:    owner,
		parent:   noParent,
		cfg:      cfg,
		events:   make(map[string]*record),
		registry: r,
	}
	r.managers = append(r.managers, m)
	r.owners[owner] = m.id
	return m
}

// get returns the live manager with id, or nil
func (r *Registry) get(id ID) *Manager {
	if id < 0 || int(id) >= len(r.managers) {
		return nil
	}
	return r.managers[id]
}

// Manager returns the live manager with id, or nil.
func (r *Registry) Manager(id ID) *Manager {
	return r.get(id)
}

// Lookup returns the live manager owned by owner, or nil.
func (r *Registry) Lookup(owner any) *Manager {
	if !isComparable(owner) {
		return nil
	}
	if id, ok := r.owners[owner]; ok {
		return r.get(id)
	}
	return nil
}

// Len returns the number of live managers, including the root.
func (r *Registry) Len() int {
	return len(r.owners)
}

// resolvePending links every child waiting for m's owner and replays the
// child's registrations up the new chain.
func (r *Registry) resolvePending(m *Manager) error {
	children, ok := r.pending[m.owner]
	if !ok {
		return nil
	}
	delete(r.pending, m.owner)

	var errs error
	for _, cid := range children {
		child := r.get(cid)
		if child == nil {
			continue
		}
		if isAncestorOrSelf(child, m) {
			r.logger.Warn("parent link rejected: cycle", "child", child.id, "parent", m.id)
			errs = errors.Join(errs, child.report(&Error{
				Kind:     ErrLinkCycle,
				Severity: SeverityError,
				Manager:  child.id,
				Detail:   fmt.Sprintf("manager %d is an ancestor of %d", child.id, m.id),
			}))
			continue
		}
		child.parent = m.id
		r.logger.Debug("deferred parent link resolved", "child", child.id, "parent", m.id)
		r.replay(child, m)
	}
	return errs
}

// replay propagates child's existing records to parent and its ancestors
func (r *Registry) replay(child, parent *Manager) {
	bubble := child.config().Bubble
	names := make([]string, 0, len(child.events))
	for name := range child.events {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rec := child.events[name]
		if rec.explicit && bubble {
			propagate(parent, name, child.id)
		}
		for _, src := range slices.Clone(rec.bubbleSources) {
			propagate(parent, name, src)
		}
	}
}

// forget removes a destroyed manager from the owner map and pending links
func (r *Registry) forget(m *Manager) {
	r.managers[m.id] = nil
	delete(r.owners, m.owner)
	for parent, children := range r.pending {
		children = slices.DeleteFunc(children, func(id ID) bool { return id == m.id })
		if len(children) == 0 {
			delete(r.pending, parent)
		} else {
			r.pending[parent] = children
		}
	}
}

// propagate registers name on start and each of its ancestors on behalf of source
func propagate(start *Manager, name string, source ID) {
	for a := start; a != nil; a = a.Parent() {
		a.registerBubble(name, source)
	}
}

// isAncestorOrSelf reports whether candidate is m or one of m's ancestors
func isAncestorOrSelf(candidate, m *Manager) bool {
	for a := m; a != nil; a = a.Parent() {
		if a == candidate {
			return true
		}
	}
	return false
}

func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}
