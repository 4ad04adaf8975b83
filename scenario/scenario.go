// Package scenario runs declarative event scenarios against a registry.
//
// A scenario declares objects with their parent and public method names,
// then a list of steps: set up objects, attach labelled listeners with
// actions, invoke events, resume paused invocations. Running it produces
// the ordered trace of listener calls.
//
//	objects:
//	  - {name: window}
//	  - {name: button, parent: window}
//	steps:
//	  - {op: setup, object: button}
//	  - {op: setup, object: window}
//	  - {op: attach, object: window, event: click, label: w}
//	  - {op: invoke, object: button, event: click}
//	expect: ["w@window<-button"]
package scenario

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/eventtree"
	"github.com/rbaliyan/eventtree/adapter"
	"github.com/rbaliyan/eventtree/config"
)

// Scenario errors
var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrUnexpectedError = errors.New("step failed unexpectedly")
	ErrMissingError    = errors.New("step did not fail as expected")
	ErrTraceMismatch   = errors.New("trace does not match expectation")
)

// Scenario is a declarative scenario
type Scenario struct {
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Config  *Policy  `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
	Objects []Object `json:"objects" yaml:"objects" toml:"objects"`
	Steps   []Step   `json:"steps" yaml:"steps" toml:"steps"`
	// Expect is the expected trace, checked by Run when non-empty
	Expect []string `json:"expect,omitempty" yaml:"expect,omitempty" toml:"expect,omitempty"`
}

// Policy is the registry wide event policy. Unset keys keep their defaults.
type Policy struct {
	ArbitraryEvents *bool    `json:"arbitrary_events,omitempty" yaml:"arbitrary_events,omitempty" toml:"arbitrary_events,omitempty"`
	ArbitraryInvoke *bool    `json:"arbitrary_invoke,omitempty" yaml:"arbitrary_invoke,omitempty" toml:"arbitrary_invoke,omitempty"`
	EventList       []string `json:"event_list,omitempty" yaml:"event_list,omitempty" toml:"event_list,omitempty"`
	Strict          *bool    `json:"strict,omitempty" yaml:"strict,omitempty" toml:"strict,omitempty"`
	Bubble          *bool    `json:"bubble,omitempty" yaml:"bubble,omitempty" toml:"bubble,omitempty"`
}

// Object declares an owner
type Object struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty" toml:"parent,omitempty"`
	// Methods renames public methods, see adapter.Methods. An empty name
	// makes the operation private.
	Methods map[string]string `json:"methods,omitempty" yaml:"methods,omitempty" toml:"methods,omitempty"`
	// Config overrides the policy for this object only
	Config *Policy `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
}

// Step operations
const (
	OpSetup      = "setup"
	OpAttach     = "attach"
	OpDetach     = "detach"
	OpInvoke     = "invoke"
	OpRegister   = "register"
	OpDeregister = "deregister"
	OpDestroy    = "destroy"
	OpResume     = "resume"
	OpStop       = "stop"
)

// Listener actions
const (
	ActionStop       = "stop"
	ActionStopBubble = "stop_bubble"
	ActionPause      = "pause"
	ActionDetach     = "detach"
)

// Step is one scenario operation
type Step struct {
	Op     string `json:"op" yaml:"op" toml:"op"`
	Object string `json:"object,omitempty" yaml:"object,omitempty" toml:"object,omitempty"`
	Event  string `json:"event,omitempty" yaml:"event,omitempty" toml:"event,omitempty"`
	// Method calls a public method by name instead of the operation
	Method string `json:"method,omitempty" yaml:"method,omitempty" toml:"method,omitempty"`
	Args   []any  `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
	// Label names the listener of attach and detach
	Label   string                    `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Options eventtree.ListenerOptions `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	Actions []string                  `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`
	// Error is the expected failure, e.g. "unregistered_event"
	Error string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

// Load reads a scenario file (.yaml, .yml, .json or .toml)
func Load(path string) (*Scenario, error) {
	var s Scenario
	if err := config.ReadFile(path, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Parse decodes a scenario; format is a file extension
func Parse(data []byte, format string) (*Scenario, error) {
	var s Scenario
	if err := config.Unmarshal(data, format, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks object references and step operations
func (s *Scenario) Validate() error {
	objects := make(map[string]bool, len(s.Objects))
	for _, o := range s.Objects {
		if o.Name == "" {
			return fmt.Errorf("%w: object without a name", ErrInvalidScenario)
		}
		if objects[o.Name] {
			return fmt.Errorf("%w: object %q declared twice", ErrInvalidScenario, o.Name)
		}
		objects[o.Name] = true
		for op := range o.Methods {
			if !knownOp(adapter.Op(op)) {
				return fmt.Errorf("%w: object %q renames unknown method %q", ErrInvalidScenario, o.Name, op)
			}
		}
	}
	for _, o := range s.Objects {
		if o.Parent != "" && !objects[o.Parent] {
			return fmt.Errorf("%w: object %q has unknown parent %q", ErrInvalidScenario, o.Name, o.Parent)
		}
	}
	for i, st := range s.Steps {
		switch st.Op {
		case OpResume, OpStop:
			continue
		case OpSetup, OpAttach, OpDetach, OpInvoke, OpRegister, OpDeregister, OpDestroy:
		default:
			return fmt.Errorf("%w: step %d has unknown op %q", ErrInvalidScenario, i, st.Op)
		}
		if !objects[st.Object] {
			return fmt.Errorf("%w: step %d uses unknown object %q", ErrInvalidScenario, i, st.Object)
		}
		if (st.Op == OpAttach || st.Op == OpDetach) && st.Label == "" {
			return fmt.Errorf("%w: step %d needs a label", ErrInvalidScenario, i)
		}
		if _, ok := errorKinds[st.Error]; st.Error != "" && !ok {
			return fmt.Errorf("%w: step %d expects unknown error %q", ErrInvalidScenario, i, st.Error)
		}
		for _, a := range st.Actions {
			switch a {
			case ActionStop, ActionStopBubble, ActionPause, ActionDetach:
			default:
				return fmt.Errorf("%w: step %d has unknown action %q", ErrInvalidScenario, i, a)
			}
		}
	}
	return nil
}

func knownOp(op adapter.Op) bool {
	for _, o := range adapter.Ops {
		if o == op {
			return true
		}
	}
	return false
}

var errorKinds = map[string]error{
	"invalid_event_name":   eventtree.ErrInvalidEventName,
	"unregistered_event":   eventtree.ErrUnregisteredEvent,
	"missing_parent":       eventtree.ErrMissingParent,
	"link_cycle":           eventtree.ErrLinkCycle,
	"duplicate_owner":      eventtree.ErrDuplicateOwner,
	"manager_destroyed":    eventtree.ErrManagerDestroyed,
	"invoke_disabled":      eventtree.ErrInvokeDisabled,
	"unknown_method":       adapter.ErrUnknownMethod,
	"surface_destroyed":    adapter.ErrDestroyed,
	"configuration_frozen": eventtree.ErrConfigurationAfterSetup,
}

func (p *Policy) options() []eventtree.ConfigOption {
	if p == nil {
		return nil
	}
	var opts []eventtree.ConfigOption
	if p.ArbitraryEvents != nil {
		opts = append(opts, eventtree.WithArbitraryEvents(*p.ArbitraryEvents))
	}
	if p.ArbitraryInvoke != nil {
		opts = append(opts, eventtree.WithArbitraryInvoke(*p.ArbitraryInvoke))
	}
	if p.EventList != nil {
		opts = append(opts, eventtree.WithEventList(p.EventList...))
	}
	if p.Strict != nil {
		opts = append(opts, eventtree.WithStrict(*p.Strict))
	}
	if p.Bubble != nil {
		opts = append(opts, eventtree.WithBubble(*p.Bubble))
	}
	return opts
}
