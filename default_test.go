package eventtree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultRegistry(t *testing.T) {
	if Default() != defaultRegistry || Root() != defaultRegistry.Root() {
		t.Fatal("package functions must use the default registry")
	}

	rec := NewRecorder()
	h := rec.Handler("root")
	if err := Attach("default.ping", h); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer Detach("default.ping", nil)

	owner := newWidget()
	m, err := Setup(owner, nil)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer m.Destroy()
	if Lookup(owner) != m {
		t.Error("Lookup must find the manager")
	}

	if _, err := m.Invoke("default.ping", "child"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if _, err := Invoke("default.ping", "root"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	var args []any
	for _, c := range rec.Calls() {
		args = append(args, c.Args...)
	}
	if diff := cmp.Diff([]any{"child", "root"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	if !Detach("default.ping", h) {
		t.Error("Detach must remove the handler")
	}
	if err := Configure(WithStrict(true)); err == nil {
		t.Error("Configure after Setup must fail")
	}
}
