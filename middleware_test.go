package eventtree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rbaliyan/eventtree/ratelimit"
)

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(inv *Invocation, args ...any) {
				order = append(order, name)
				next(inv, args...)
			}
		}
	}
	r := TestRegistry()
	m := mustSetup(t, r, newWidget(), nil)
	fn := Chain(func(*Invocation, ...any) { order = append(order, "handler") }, mw("outer"), mw("inner"))
	if _, err := m.AttachFunc("e", fn); err != nil {
		t.Fatalf("AttachFunc failed: %v", err)
	}
	if _, err := m.Invoke("e"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if diff := cmp.Diff([]string{"outer", "inner", "handler"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestThrottle(t *testing.T) {
	r := TestRegistry()
	m := mustSetup(t, r, newWidget(), nil)
	rec := NewRecorder()

	limiter := ratelimit.NewTokenBucket(0.001, 2)
	if _, err := m.AttachFunc("resize", Chain(rec.Func("resize", nil), Throttle(limiter))); err != nil {
		t.Fatalf("AttachFunc failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := m.Invoke("resize"); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
	}
	if rec.Count() != 2 {
		t.Errorf("expected 2 calls within the burst, got %d", rec.Count())
	}
}

func TestDedupe(t *testing.T) {
	r := TestRegistry()
	a, b := chain(t, r)
	rec := NewRecorder()

	h := NewNamedHandler("dedupe", Chain(rec.Func("dedupe", nil), Dedupe()))
	for _, m := range []*Manager{a, b} {
		if err := m.Attach("e", h); err != nil {
			t.Fatalf("Attach failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := b.Invoke("e"); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
	}
	calls := rec.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected one call per invocation, got %d", len(calls))
	}
	for _, c := range calls {
		if c.Manager != b.ID() {
			t.Errorf("expected the first listener on the chain to run, got manager %d", c.Manager)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	r := TestRegistry()
	m := mustSetup(t, r, newWidget(), nil)
	rec := NewRecorder()
	if _, err := m.AttachFunc("e", Chain(rec.Func("e", nil), Logging())); err != nil {
		t.Fatalf("AttachFunc failed: %v", err)
	}
	if _, err := m.Invoke("e"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if rec.Count() != 1 {
		t.Errorf("expected 1 call, got %d", rec.Count())
	}
}

func TestSuspendAbandon(t *testing.T) {
	r := TestRegistry()
	loop := NewLoop(0)
	rec := NewRecorder()
	m := mustSetup(t, r, newWidget(), nil)

	errUpload := errors.New("upload failed")
	var got error
	work := func(ctx context.Context, args ...any) error {
		if ContextName(ctx) != "save" {
			t.Errorf("work context must carry the event name, got %q", ContextName(ctx))
		}
		return errUpload
	}
	onDone := func(inv *Invocation, err error) {
		got = err
		inv.Stop()
	}
	if _, err := m.AttachFunc("save", Suspend(loop, work, onDone)); err != nil {
		t.Fatalf("AttachFunc failed: %v", err)
	}
	if err := m.Attach("save", rec.Handler("after")); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var inv *Invocation
	if err := loop.Do(ctx, func() { inv, _ = m.Dispatch(ctx, "save") }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !wait(inv.Done(), waitTimeoutMS) {
		t.Fatal("invocation did not finish")
	}

	var state State
	if err := loop.Do(ctx, func() { state = inv.State() }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if state != StateStopped {
		t.Errorf("expected stopped, got %s", state)
	}
	if !errors.Is(got, errUpload) {
		t.Errorf("expected upload error, got %v", got)
	}
	if rec.Count() != 0 {
		t.Error("abandoned invocation must not run later listeners")
	}
}

func TestLimited(t *testing.T) {
	var calls [][]any
	work := func(ctx context.Context, args ...any) error {
		calls = append(calls, args)
		return nil
	}
	limited := Limited(ratelimit.NewTokenBucket(0.001, 1), work)

	if err := limited(context.Background(), "doc"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limited(ctx, "late"); err == nil {
		t.Error("expected the spent limiter to fail the wait")
	}
	if diff := cmp.Diff([][]any{{"doc"}}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
