// Package config loads registry settings from files and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/rbaliyan/eventtree"
)

// EnvPrefix prefixes every environment variable read by FromEnv
const EnvPrefix = "EVENTTREE_"

// ErrUnsupportedFormat is returned for unknown file extensions
var ErrUnsupportedFormat = errors.New("unsupported config format")

// File holds registry settings. Keys missing from a file or the environment
// keep their previous value, so start from Default.
type File struct {
	Name            string   `json:"name" yaml:"name" toml:"name" env:"NAME"`
	ArbitraryEvents bool     `json:"arbitrary_events" yaml:"arbitrary_events" toml:"arbitrary_events" env:"ARBITRARY_EVENTS"`
	ArbitraryInvoke bool     `json:"arbitrary_invoke" yaml:"arbitrary_invoke" toml:"arbitrary_invoke" env:"ARBITRARY_INVOKE"`
	EventList       []string `json:"event_list" yaml:"event_list" toml:"event_list" env:"EVENT_LIST" envSeparator:","`
	Strict          bool     `json:"strict" yaml:"strict" toml:"strict" env:"STRICT"`
	Bubble          bool     `json:"bubble" yaml:"bubble" toml:"bubble" env:"BUBBLE"`
	Tracing         bool     `json:"tracing" yaml:"tracing" toml:"tracing" env:"TRACING"`
	Metrics         bool     `json:"metrics" yaml:"metrics" toml:"metrics" env:"METRICS"`
	Recovery        bool     `json:"recovery" yaml:"recovery" toml:"recovery" env:"RECOVERY"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the settings matching eventtree defaults
func Default() File {
	cfg := eventtree.DefaultConfig()
	return File{
		Name:            eventtree.DefaultName,
		ArbitraryEvents: cfg.ArbitraryEvents,
		ArbitraryInvoke: cfg.ArbitraryInvoke,
		Strict:          cfg.Strict,
		Bubble:          cfg.Bubble,
		Tracing:         true,
		Metrics:         true,
		Recovery:        true,
		LogLevel:        "info",
	}
}

// Load reads a configuration file on top of Default based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (File, error) {
	f := Default()
	if err := ReadFile(path, &f); err != nil {
		return f, err
	}
	return f, nil
}

// ReadFile decodes the file at path into v based on its extension
func ReadFile(path string, v any) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Unmarshal(b, filepath.Ext(path), v)
}

// Unmarshal decodes data into v. format is a file extension, with or
// without the leading dot.
func Unmarshal(data []byte, format string, v any) error {
	switch ext := strings.TrimPrefix(strings.ToLower(format), "."); ext {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode toml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// FromEnv overrides f with EVENTTREE_* environment variables
func FromEnv(f File) (File, error) {
	if err := env.ParseWithOptions(&f, env.Options{Prefix: EnvPrefix}); err != nil {
		return f, fmt.Errorf("parse env: %w", err)
	}
	return f, nil
}

// Level returns the parsed log level, info when it is invalid
func (f File) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ConfigOptions returns the event policy as registry configuration options
func (f File) ConfigOptions() []eventtree.ConfigOption {
	opts := []eventtree.ConfigOption{
		eventtree.WithArbitraryEvents(f.ArbitraryEvents),
		eventtree.WithArbitraryInvoke(f.ArbitraryInvoke),
		eventtree.WithStrict(f.Strict),
		eventtree.WithBubble(f.Bubble),
	}
	if len(f.EventList) > 0 {
		opts = append(opts, eventtree.WithEventList(f.EventList...))
	}
	return opts
}

// Options returns registry options. extra are appended and win over f.
func (f File) Options(extra ...eventtree.Option) []eventtree.Option {
	opts := []eventtree.Option{
		eventtree.WithName(f.Name),
		eventtree.WithTracing(f.Tracing),
		eventtree.WithMetrics(f.Metrics),
		eventtree.WithRecovery(f.Recovery),
		eventtree.WithConfig(f.ConfigOptions()...),
	}
	return append(opts, extra...)
}

// NewRegistry creates a registry from f
func (f File) NewRegistry(extra ...eventtree.Option) *eventtree.Registry {
	return eventtree.NewRegistry(f.Options(extra...)...)
}
