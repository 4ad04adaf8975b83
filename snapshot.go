package eventtree

import (
	"fmt"
	"slices"
)

// Snapshot is a read-only copy of a registry's managers and event records.
type Snapshot struct {
	Name     string            `json:"name" msgpack:"name"`
	Managers []ManagerSnapshot `json:"managers" msgpack:"managers"`
}

// ManagerSnapshot describes one live manager. Parent is the effective
// parent id, -1 for the root.
type ManagerSnapshot struct {
	ID     ID              `json:"id" msgpack:"id"`
	Parent ID              `json:"parent" msgpack:"parent"`
	Owner  string          `json:"owner" msgpack:"owner"`
	Events []EventSnapshot `json:"events,omitempty" msgpack:"events,omitempty"`
}

// EventSnapshot describes one event record of a manager
type EventSnapshot struct {
	Name          string             `json:"name" msgpack:"name"`
	Explicit      bool               `json:"explicit" msgpack:"explicit"`
	BubbleSources []ID               `json:"bubble_sources,omitempty" msgpack:"bubble_sources,omitempty"`
	Listeners     []ListenerSnapshot `json:"listeners,omitempty" msgpack:"listeners,omitempty"`
}

// ListenerSnapshot describes one attached listener
type ListenerSnapshot struct {
	Handler string          `json:"handler" msgpack:"handler"`
	Options ListenerOptions `json:"options" msgpack:"options"`
}

// Snapshot copies the current state of every live manager, ordered by id.
func (r *Registry) Snapshot() *Snapshot {
	s := &Snapshot{Name: r.name}
	for _, m := range r.managers {
		if m == nil {
			continue
		}
		s.Managers = append(s.Managers, m.snapshot())
	}
	return s
}

func (m *Manager) snapshot() ManagerSnapshot {
	ms := ManagerSnapshot{ID: m.id, Parent: noParent, Owner: describe(m.owner)}
	if p := m.Parent(); p != nil {
		ms.Parent = p.id
	}
	for _, name := range m.Events() {
		rec := m.events[name]
		es := EventSnapshot{Name: name, Explicit: rec.explicit}
		if len(rec.bubbleSources) > 0 {
			es.BubbleSources = slices.Sorted(slices.Values(rec.bubbleSources))
		}
		for _, l := range rec.listeners {
			es.Listeners = append(es.Listeners, ListenerSnapshot{Handler: l.handler.name, Options: l.options})
		}
		ms.Events = append(ms.Events, es)
	}
	return ms
}

// Manager returns the snapshot of the manager with id, or nil
func (s *Snapshot) Manager(id ID) *ManagerSnapshot {
	for i := range s.Managers {
		if s.Managers[i].ID == id {
			return &s.Managers[i]
		}
	}
	return nil
}

// Event returns the snapshot of the named event, or nil
func (ms *ManagerSnapshot) Event(name string) *EventSnapshot {
	for i := range ms.Events {
		if ms.Events[i].Name == name {
			return &ms.Events[i]
		}
	}
	return nil
}

func describe(owner any) string {
	switch o := owner.(type) {
	case *Registry:
		return "registry:" + o.name
	case string:
		return o
	case fmt.Stringer:
		return o.String()
	default:
		return fmt.Sprintf("%T", owner)
	}
}
