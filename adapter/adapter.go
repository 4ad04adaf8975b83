// Package adapter exposes manager operations under configurable public
// names. The core eventtree package never touches the objects that own
// managers; this package is where naming and visibility policy lives.
//
// A Surface is the method table of one manager. Public methods are
// reachable by name through Call and, when the owner implements Host, are
// bound onto the owner. Private methods stay reachable through Method by
// whoever holds the Surface.
//
//	s, err := adapter.Setup(r, button, window, adapter.Methods{adapter.OpInvoke: "fire"})
//	s.Call("attach", "click", handler)
//	s.Call("fire", "click", 10, 20)
package adapter

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rbaliyan/eventtree"
)

// Adapter errors
var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrBadArguments  = errors.New("bad arguments")
	ErrNameConflict  = errors.New("public name used twice")
	ErrDestroyed     = errors.New("surface is destroyed")
)

// Op is a manager operation
type Op string

// Operations
const (
	OpAttach       Op = "attach"
	OpDetach       Op = "detach"
	OpHasEvent     Op = "hasEvent"
	OpInvoke       Op = "invoke"
	OpRegister     Op = "register"
	OpRegisterList Op = "registerList"
	OpDeregister   Op = "deregister"
	OpDestroy      Op = "destroy"
)

// Ops lists every operation in installation order
var Ops = []Op{OpAttach, OpDetach, OpHasEvent, OpInvoke, OpRegister, OpRegisterList, OpDeregister, OpDestroy}

// Method is an operation bound to a manager
type Method func(args ...any) (any, error)

// Methods maps operations to public names. An empty name keeps the
// operation private.
type Methods map[Op]string

// DefaultMethods makes attach, detach, hasEvent and invoke public under
// their own names and keeps the others private.
func DefaultMethods() Methods {
	return Methods{
		OpAttach:   string(OpAttach),
		OpDetach:   string(OpDetach),
		OpHasEvent: string(OpHasEvent),
		OpInvoke:   string(OpInvoke),
	}
}

// Merge returns a copy of m with override applied on top
func (m Methods) Merge(override Methods) Methods {
	out := maps.Clone(m)
	if out == nil {
		out = Methods{}
	}
	maps.Copy(out, override)
	return out
}

// Host is implemented by owners that want public methods bound onto them.
type Host interface {
	Bind(name string, fn Method)
	Unbind(name string)
}

// Surface is the method table of one manager
type Surface struct {
	manager   *eventtree.Manager
	ops       map[Op]Method
	public    map[string]Op
	host      Host
	destroyed bool
}

// Setup creates a manager for owner and installs its methods. methods are
// merged over DefaultMethods.
func Setup(r *eventtree.Registry, owner, parent any, methods Methods, overrides ...eventtree.ConfigOption) (*Surface, error) {
	table := DefaultMethods().Merge(methods)
	if err := checkNames(table); err != nil {
		return nil, err
	}
	m, err := r.Setup(owner, parent, overrides...)
	if m == nil {
		return nil, err
	}
	s, _ := New(m, table)
	return s, err
}

// New installs methods for an existing manager. invoke and registerList are
// not installed when the manager does not allow arbitrary invocation.
func New(m *eventtree.Manager, methods Methods) (*Surface, error) {
	if err := checkNames(methods); err != nil {
		return nil, err
	}
	s := &Surface{
		manager: m,
		ops:     make(map[Op]Method),
		public:  make(map[string]Op),
	}
	s.host, _ = m.Owner().(Host)

	arbitraryInvoke := m.Config().ArbitraryInvoke
	for _, op := range Ops {
		if !arbitraryInvoke && (op == OpInvoke || op == OpRegisterList) {
			continue
		}
		s.ops[op] = s.bind(op)
		if name := methods[op]; name != "" {
			s.public[name] = op
			if s.host != nil {
				s.host.Bind(name, s.ops[op])
			}
		}
	}
	return s, nil
}

func checkNames(methods Methods) error {
	seen := make(map[string]Op)
	for _, op := range Ops {
		name := methods[op]
		if name == "" {
			continue
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q for %s and %s", ErrNameConflict, name, other, op)
		}
		seen[name] = op
	}
	return nil
}

// Manager returns the underlying manager
func (s *Surface) Manager() *eventtree.Manager {
	return s.manager
}

// Names returns the sorted public method names
func (s *Surface) Names() []string {
	return slices.Sorted(maps.Keys(s.public))
}

// Has reports whether name is a public method
func (s *Surface) Has(name string) bool {
	_, ok := s.public[name]
	return ok
}

// Call runs the public method name
func (s *Surface) Call(name string, args ...any) (any, error) {
	op, ok := s.public[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	return s.ops[op](args...)
}

// Method returns the bound operation, public or private. It is nil when the
// operation is not installed.
func (s *Surface) Method(op Op) Method {
	return s.ops[op]
}

// Destroy removes every public name, unbinding them from the host, and
// destroys the manager.
func (s *Surface) Destroy() error {
	_, err := s.ops[OpDestroy]()
	return err
}

func (s *Surface) destroy() error {
	if s.destroyed {
		return nil
	}
	for name := range s.public {
		if s.host != nil {
			s.host.Unbind(name)
		}
	}
	clear(s.public)
	s.destroyed = true
	return s.manager.Destroy()
}
