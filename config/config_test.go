package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	want := Default()
	want.Name = "ui"
	want.ArbitraryEvents = false
	want.EventList = []string{"open", "close"}
	want.Strict = true

	tests := []struct {
		file    string
		content string
	}{
		{"events.yaml", "name: ui\narbitrary_events: false\nevent_list: [open, close]\nstrict: true\n"},
		{"events.yml", "name: ui\narbitrary_events: false\nevent_list:\n  - open\n  - close\nstrict: true\n"},
		{"events.json", `{"name": "ui", "arbitrary_events": false, "event_list": ["open", "close"], "strict": true}`},
		{"events.toml", "name = \"ui\"\narbitrary_events = false\nevent_list = [\"open\", \"close\"]\nstrict = true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if _, err := Load(writeFile(t, "events.ini", "strict=true")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Load(writeFile(t, "events.json", "{")); err == nil {
		t.Error("expected decode error")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("EVENTTREE_STRICT", "true")
	t.Setenv("EVENTTREE_BUBBLE", "false")
	t.Setenv("EVENTTREE_EVENT_LIST", "a,b,c")
	t.Setenv("EVENTTREE_LOG_LEVEL", "debug")

	got, err := FromEnv(Default())
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	want := Default()
	want.Strict = true
	want.Bubble = false
	want.EventList = []string{"a", "b", "c"}
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if got.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", got.Level())
	}

	t.Setenv("EVENTTREE_STRICT", "maybe")
	if _, err := FromEnv(Default()); err == nil {
		t.Error("expected error for an invalid bool")
	}
}

func TestLevel(t *testing.T) {
	f := Default()
	f.LogLevel = "nonsense"
	if f.Level() != slog.LevelInfo {
		t.Errorf("expected info for an invalid level, got %v", f.Level())
	}
	f.LogLevel = "WARN"
	if f.Level() != slog.LevelWarn {
		t.Errorf("expected warn, got %v", f.Level())
	}
}

func TestNewRegistry(t *testing.T) {
	f := Default()
	f.Name = "config-test"
	f.Tracing = false
	f.Metrics = false
	f.ArbitraryInvoke = false
	f.EventList = []string{"open"}

	r := f.NewRegistry()
	if r.Name() != "config-test" {
		t.Errorf("expected name config-test, got %s", r.Name())
	}
	cfg := r.Config()
	if cfg.ArbitraryInvoke {
		t.Error("expected arbitrary invoke disabled")
	}
	if diff := cmp.Diff([]string{"open"}, cfg.EventList); diff != "" {
		t.Errorf("event list mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Bubble || cfg.Strict {
		t.Errorf("unexpected policy %+v", cfg)
	}
}
