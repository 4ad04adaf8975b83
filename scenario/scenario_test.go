package scenario

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rbaliyan/eventtree"
	"github.com/rbaliyan/eventtree/adapter"
)

func quiet() []eventtree.Option {
	return []eventtree.Option{eventtree.WithTracing(false), eventtree.WithMetrics(false)}
}

func TestRunFiles(t *testing.T) {
	for _, file := range []string{"bubble.yaml", "pause.toml", "strict.json"} {
		t.Run(file, func(t *testing.T) {
			s, err := Load(filepath.Join("testdata", file))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			res, err := Run(context.Background(), s, quiet()...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if res.Paused != 0 {
				t.Errorf("paused = %d, want 0", res.Paused)
			}
			if diff := cmp.Diff(s.Expect, res.Lines()); diff != "" {
				t.Errorf("trace mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunEntries(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "bubble.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := Run(context.Background(), s, quiet()...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := Entry{Label: "b", Object: "button", Origin: "button", Event: "click", Args: []any{1, 2}}
	if diff := cmp.Diff(want, res.Trace[0]); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], eventtree.ErrMissingParent) {
		t.Errorf("warnings = %v, want one missing parent", res.Warnings)
	}
	if got := res.Registry.Len(); got != 4 {
		t.Errorf("managers = %d, want 4", got)
	}
}

func TestRunTraceMismatch(t *testing.T) {
	s, err := Parse([]byte(`
objects: [{name: a}]
steps:
  - {op: setup, object: a}
  - {op: attach, object: a, event: e, label: x}
  - {op: invoke, object: a, event: e}
expect: [y@a<-a]
`), "yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := Run(context.Background(), s, quiet()...)
	if !errors.Is(err, ErrTraceMismatch) {
		t.Fatalf("expected ErrTraceMismatch, got %v", err)
	}
	if diff := cmp.Diff([]string{"x@a<-a"}, res.Lines()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStepErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []error
	}{
		{
			name: "unexpected",
			input: `
config: {strict: true}
objects: [{name: a}]
steps:
  - {op: setup, object: a}
  - {op: attach, object: a, event: e, label: x}
`,
			want: []error{ErrUnexpectedError, eventtree.ErrUnregisteredEvent},
		},
		{
			name: "missing",
			input: `
objects: [{name: a}]
steps:
  - {op: setup, object: a}
  - {op: attach, object: a, event: e, label: x, error: unregistered_event}
`,
			want: []error{ErrMissingError},
		},
		{
			name: "wrong kind",
			input: `
config: {arbitrary_events: false, event_list: [ok]}
objects: [{name: a}]
steps:
  - {op: setup, object: a}
  - {op: attach, object: a, event: e, label: x, error: unregistered_event}
`,
			want: []error{ErrUnexpectedError, eventtree.ErrInvalidEventName},
		},
		{
			name: "not set up",
			input: `
objects: [{name: a}]
steps:
  - {op: invoke, object: a, event: e}
`,
			want: []error{ErrInvalidScenario},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.input), "yaml")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = Run(context.Background(), s, quiet()...)
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("expected %v in %v", want, err)
				}
			}
		})
	}
}

func TestRunActions(t *testing.T) {
	s, err := Parse([]byte(`
objects:
  - {name: root}
  - {name: leaf, parent: root}
steps:
  - {op: setup, object: root}
  - {op: setup, object: leaf}
  - {op: attach, object: leaf, event: e, label: self, actions: [detach]}
  - {op: attach, object: leaf, event: e, label: halt, actions: [stop_bubble]}
  - {op: attach, object: root, event: e, label: never}
  - {op: attach, object: root, event: p, label: wait, actions: [pause]}
  - {op: attach, object: root, event: p, label: after}
  - {op: invoke, object: leaf, event: e}
  - {op: invoke, object: leaf, event: e}
  - {op: invoke, object: root, event: p}
  - {op: stop}
  - {op: resume}
`), "yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := Run(context.Background(), s, quiet()...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// self detaches and halt shifts into its slot, so the first invoke
	// skips halt and bubbles to never
	want := []string{"self@leaf<-leaf", "never@root<-leaf", "halt@leaf<-leaf", "wait@root<-root"}
	if diff := cmp.Diff(want, res.Lines()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if res.Paused != 0 {
		t.Errorf("paused = %d, want 0", res.Paused)
	}
}

func TestRunDestroy(t *testing.T) {
	s, err := Parse([]byte(`{
  "objects": [{"name": "a", "methods": {"destroy": "dispose"}}],
  "steps": [
    {"op": "setup", "object": "a"},
    {"op": "register", "object": "a", "event": "e"},
    {"op": "destroy", "object": "a", "method": "dispose"},
    {"op": "attach", "object": "a", "event": "e", "label": "x", "error": "surface_destroyed"},
    {"op": "setup", "object": "a", "error": "duplicate_owner"}
  ]
}`), "json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// the destroyed owner is forgotten, so a second setup succeeds
	_, err = Run(context.Background(), s, quiet()...)
	if !errors.Is(err, ErrMissingError) {
		t.Fatalf("expected ErrMissingError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Scenario
	}{
		{"unnamed object", Scenario{Objects: []Object{{}}}},
		{"duplicate object", Scenario{Objects: []Object{{Name: "a"}, {Name: "a"}}}},
		{"unknown parent", Scenario{Objects: []Object{{Name: "a", Parent: "b"}}}},
		{"unknown method", Scenario{Objects: []Object{{Name: "a", Methods: map[string]string{"fire": "x"}}}}},
		{"unknown op", Scenario{Objects: []Object{{Name: "a"}}, Steps: []Step{{Op: "emit", Object: "a"}}}},
		{"unknown object", Scenario{Steps: []Step{{Op: OpSetup, Object: "a"}}}},
		{"missing label", Scenario{Objects: []Object{{Name: "a"}}, Steps: []Step{{Op: OpAttach, Object: "a", Event: "e"}}}},
		{"unknown error", Scenario{Objects: []Object{{Name: "a"}}, Steps: []Step{{Op: OpSetup, Object: "a", Error: "oops"}}}},
		{"unknown action", Scenario{Objects: []Object{{Name: "a"}}, Steps: []Step{{Op: OpAttach, Object: "a", Label: "x", Actions: []string{"jump"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.s.Validate(); !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestObjectMethods(t *testing.T) {
	s := &Scenario{
		Objects: []Object{{Name: "a", Methods: map[string]string{"invoke": "", "register": "reg"}}},
		Steps:   []Step{{Op: OpSetup, Object: "a"}},
	}
	res, err := Run(context.Background(), s, quiet()...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	m := res.Registry.Manager(1)
	if m == nil {
		t.Fatal("manager 1 missing")
	}
	n, ok := m.Owner().(*node)
	if !ok {
		t.Fatalf("owner is %T", m.Owner())
	}
	want := []string{"attach", "detach", "hasEvent", "reg"}
	if diff := cmp.Diff(want, n.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := n.Call("invoke", "e"); !errors.Is(err, adapter.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}
