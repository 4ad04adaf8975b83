package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rbaliyan/eventtree"
	"github.com/rbaliyan/eventtree/adapter"
)

// node is the owner of one scenario object
type node struct {
	adapter.Table
	name string
}

func (n *node) String() string {
	return n.name
}

// Entry is one listener call
type Entry struct {
	Label  string `json:"label" msgpack:"label"`
	Object string `json:"object" msgpack:"object"`
	Origin string `json:"origin" msgpack:"origin"`
	Event  string `json:"event" msgpack:"event"`
	Args   []any  `json:"args,omitempty" msgpack:"args,omitempty"`
}

// String formats the entry as label@object<-origin
func (e Entry) String() string {
	return fmt.Sprintf("%s@%s<-%s", e.Label, e.Object, e.Origin)
}

// Result is the outcome of a run
type Result struct {
	Trace []Entry
	// Warnings collects warning-severity errors reported during the run
	Warnings []error
	// Paused is the number of invocations still waiting for resume
	Paused   int
	Registry *eventtree.Registry
}

// Lines returns the trace entries formatted with Entry.String
func (r *Result) Lines() []string {
	lines := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		lines[i] = e.String()
	}
	return lines
}

type runner struct {
	scenario *Scenario
	registry *eventtree.Registry
	logger   *slog.Logger

	objects  map[string]Object
	nodes    map[string]*node
	surfaces map[string]*adapter.Surface
	handlers map[string]*eventtree.Handler
	invokers map[string]eventtree.Invoker
	paused   []*eventtree.Invocation

	trace    []Entry
	warnings []error
	// warnings of the running step
	raised []error
}

// Run executes s on a new registry created with opts and returns the trace.
// When s.Expect is set a different trace fails with ErrTraceMismatch; the
// result is returned either way.
func Run(ctx context.Context, s *Scenario, opts ...eventtree.Option) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	r := &runner{
		scenario: s,
		objects:  make(map[string]Object, len(s.Objects)),
		nodes:    make(map[string]*node, len(s.Objects)),
		surfaces: make(map[string]*adapter.Surface),
		handlers: make(map[string]*eventtree.Handler),
		invokers: make(map[string]eventtree.Invoker),
	}
	for _, o := range s.Objects {
		r.objects[o.Name] = o
		r.nodes[o.Name] = &node{name: o.Name}
	}

	r.registry = eventtree.NewRegistry(append([]eventtree.Option{eventtree.WithName(s.Name)}, opts...)...)
	r.logger = eventtree.Logger("scenario")
	cfg := append(s.Config.options(), eventtree.WithWarningHandler(r.warn))
	if err := r.registry.Configure(cfg...); err != nil {
		return nil, err
	}

	res, err := r.run(ctx)
	if err != nil {
		return res, err
	}
	if len(s.Expect) > 0 {
		if got := res.Lines(); !slices.Equal(got, s.Expect) {
			return res, fmt.Errorf("%w: got [%s], want [%s]", ErrTraceMismatch,
				strings.Join(got, " "), strings.Join(s.Expect, " "))
		}
	}
	return res, nil
}

func (r *runner) warn(err error) {
	r.logger.Debug("warning", "error", err)
	r.warnings = append(r.warnings, err)
	r.raised = append(r.raised, err)
}

func (r *runner) result() *Result {
	return &Result{
		Trace:    r.trace,
		Warnings: r.warnings,
		Paused:   len(r.paused),
		Registry: r.registry,
	}
}

func (r *runner) run(ctx context.Context) (*Result, error) {
	for i, st := range r.scenario.Steps {
		if err := ctx.Err(); err != nil {
			return r.result(), err
		}
		r.raised = nil
		err := r.step(st)
		if err := r.check(st, err); err != nil {
			return r.result(), fmt.Errorf("step %d (%s %s): %w", i, st.Op, st.Object, err)
		}
	}
	return r.result(), nil
}

// check compares the step outcome with the expected error. Warnings raised
// during the step count as failures for the expectation.
func (r *runner) check(st Step, err error) error {
	if st.Error == "" {
		if err != nil {
			return errors.Join(ErrUnexpectedError, err)
		}
		return nil
	}
	want := errorKinds[st.Error]
	if errors.Is(err, want) {
		return nil
	}
	for _, w := range r.raised {
		if errors.Is(w, want) {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("%w: want %s, got %w", ErrUnexpectedError, st.Error, err)
	}
	return fmt.Errorf("%w: %s", ErrMissingError, st.Error)
}

func (r *runner) step(st Step) error {
	switch st.Op {
	case OpSetup:
		return r.setup(st.Object)
	case OpResume:
		if inv := r.nextPaused(); inv != nil {
			inv.Resume()
		}
		return nil
	case OpStop:
		if inv := r.nextPaused(); inv != nil {
			inv.Stop()
		}
		return nil
	}

	s, ok := r.surfaces[st.Object]
	if !ok {
		return fmt.Errorf("%w: object %q is not set up", ErrInvalidScenario, st.Object)
	}
	switch st.Op {
	case OpAttach:
		h := r.handler(st)
		v, err := r.call(s, st, adapter.OpAttach, st.Event, st.Options, h)
		if v != nil {
			r.handlers[st.Label] = h
		}
		return err
	case OpDetach:
		h, ok := r.handlers[st.Label]
		if !ok {
			return fmt.Errorf("%w: unknown listener %q", ErrInvalidScenario, st.Label)
		}
		_, err := r.call(s, st, adapter.OpDetach, st.Event, h)
		return err
	case OpInvoke:
		return r.invoke(s, st)
	case OpRegister:
		v, err := r.call(s, st, adapter.OpRegister, st.Event)
		if inv, ok := v.(eventtree.Invoker); ok {
			r.invokers[invokerKey(st.Object, st.Event)] = inv
		}
		return err
	case OpDeregister:
		_, err := r.call(s, st, adapter.OpDeregister, st.Event)
		return err
	default: // destroy
		_, err := r.call(s, st, adapter.OpDestroy)
		return err
	}
}

func (r *runner) setup(name string) error {
	o := r.objects[name]
	var parent any
	if o.Parent != "" {
		parent = r.nodes[o.Parent]
	}
	methods := make(adapter.Methods, len(o.Methods))
	for op, public := range o.Methods {
		methods[adapter.Op(op)] = public
	}
	s, err := adapter.Setup(r.registry, r.nodes[name], parent, methods, o.Config.options()...)
	if s != nil {
		r.surfaces[name] = s
	}
	return err
}

// call runs the public method named by the step, or the operation itself
func (r *runner) call(s *adapter.Surface, st Step, op adapter.Op, args ...any) (any, error) {
	if st.Method != "" {
		return s.Call(st.Method, args...)
	}
	fn := s.Method(op)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", adapter.ErrUnknownMethod, op)
	}
	return fn(args...)
}

// invoke prefers the invoke operation and falls back to the invoker
// returned by a register step
func (r *runner) invoke(s *adapter.Surface, st Step) error {
	args := append([]any{st.Event}, st.Args...)
	if st.Method != "" || s.Method(adapter.OpInvoke) != nil {
		_, err := r.call(s, st, adapter.OpInvoke, args...)
		return err
	}
	inv, ok := r.invokers[invokerKey(st.Object, st.Event)]
	if !ok {
		return fmt.Errorf("%w: %q on %s", eventtree.ErrInvokeDisabled, st.Event, st.Object)
	}
	_, err := inv(st.Args...)
	return err
}

func (r *runner) nextPaused() *eventtree.Invocation {
	for len(r.paused) > 0 {
		inv := r.paused[0]
		r.paused = r.paused[1:]
		if inv.State() == eventtree.StatePaused {
			return inv
		}
	}
	return nil
}

// handler records the call then applies the step actions in order
func (r *runner) handler(st Step) *eventtree.Handler {
	var h *eventtree.Handler
	h = eventtree.NewNamedHandler(st.Label, func(inv *eventtree.Invocation, args ...any) {
		r.trace = append(r.trace, Entry{
			Label:  st.Label,
			Object: ownerName(inv.Owner()),
			Origin: ownerName(inv.Origin()),
			Event:  inv.Name(),
			Args:   args,
		})
		for _, a := range st.Actions {
			switch a {
			case ActionStop:
				inv.Stop()
			case ActionStopBubble:
				inv.StopBubble()
			case ActionPause:
				inv.Pause()
				r.paused = append(r.paused, inv)
			case ActionDetach:
				inv.Current().Detach(inv.Name(), h)
			}
		}
	})
	return h
}

func ownerName(owner any) string {
	if n, ok := owner.(*node); ok {
		return n.name
	}
	return "root"
}

func invokerKey(object, event string) string {
	return object + "/" + event
}
