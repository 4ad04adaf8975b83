package eventtree

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoop(t *testing.T) {
	t.Run("runs posted functions in order", func(t *testing.T) {
		loop := NewLoop(8)
		var got []int
		for i := 0; i < 5; i++ {
			if err := loop.Post(func() { got = append(got, i) }); err != nil {
				t.Fatalf("Post failed: %v", err)
			}
		}
		loop.Close()
		if err := loop.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		for i, v := range got {
			if v != i {
				t.Fatalf("expected %d at %d, got %d", i, i, v)
			}
		}
		if len(got) != 5 {
			t.Errorf("expected 5 calls, got %d", len(got))
		}
		if !wait(loop.Done(), waitTimeoutMS) {
			t.Error("Done must be closed after Run returns")
		}
	})

	t.Run("post after close", func(t *testing.T) {
		loop := NewLoop(1)
		loop.Close()
		loop.Close()
		if err := loop.Post(func() {}); !errors.Is(err, ErrLoopClosed) {
			t.Errorf("expected ErrLoopClosed, got %v", err)
		}
	})

	t.Run("full queue", func(t *testing.T) {
		loop := NewLoop(1)
		if err := loop.Post(func() {}); err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		if err := loop.Post(func() {}); !errors.Is(err, ErrLoopFull) {
			t.Errorf("expected ErrLoopFull, got %v", err)
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		loop := NewLoop(4)
		ran := false
		_ = loop.Post(func() { panic("boom") })
		_ = loop.Post(func() { ran = true })
		loop.Close()
		if err := loop.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !ran {
			t.Error("loop must keep running after a panic")
		}
	})

	t.Run("stops with context", func(t *testing.T) {
		loop := NewLoop(1)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := loop.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("do waits for the function", func(t *testing.T) {
		loop := NewLoop(1)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = loop.Run(ctx) }()

		value := 0
		if err := loop.Do(ctx, func() { value = 42 }); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if value != 42 {
			t.Errorf("expected 42, got %d", value)
		}
	})
}
