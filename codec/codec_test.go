package codec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rbaliyan/eventtree"
)

type owner struct{ name string }

func (o *owner) String() string { return o.name }

func testSnapshot(t *testing.T) *eventtree.Snapshot {
	t.Helper()
	r := eventtree.NewRegistry(eventtree.WithTracing(false), eventtree.WithMetrics(false))
	parent, err := r.Setup(&owner{"parent"}, nil)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	child, err := r.Setup(&owner{"child"}, parent.Owner())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	noop := func(*eventtree.Invocation, ...any) {}
	if err := child.Attach("click", eventtree.NewNamedHandler("onClick", noop), eventtree.Once()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := parent.Attach("click", eventtree.NewNamedHandler("onBubble", noop), eventtree.BubbleOnly()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	return r.Snapshot()
}

func TestCodecs(t *testing.T) {
	for _, c := range []Codec{JSON{}, MsgPack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			want := testSnapshot(t)

			data, err := c.Encode(want)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, c := range []Codec{JSON{}, MsgPack{}} {
		if _, err := c.Decode([]byte{0xc1}); !errors.Is(err, ErrDecodeFailure) {
			t.Errorf("%s: expected ErrDecodeFailure, got %v", c.Name(), err)
		}
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"", "application/json"},
		{"json", "application/json"},
		{"msgpack", "application/msgpack"},
	}
	for _, tt := range tests {
		c, err := ByName(tt.name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", tt.name, err)
		}
		if c.ContentType() != tt.contentType {
			t.Errorf("ByName(%q): expected %s, got %s", tt.name, tt.contentType, c.ContentType())
		}
	}
	if _, err := ByName("gob"); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("expected ErrUnknownCodec, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	if Default().Name() != "json" {
		t.Errorf("expected json, got %s", Default().Name())
	}
}
