package eventtree

import (
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

// DefaultName is the name used for the tracer and meter of a registry
// created without WithName.
var DefaultName = "eventtree"

// Config is the event policy read by managers at decision points.
// A Registry freezes its Config at the first Setup.
type Config struct {
	// ArbitraryEvents allows any non-empty event name. When false, names
	// must appear in EventList.
	ArbitraryEvents bool
	// ArbitraryInvoke exposes Invoke and RegisterList. When false, events can
	// only be invoked through the Invoker returned by Register.
	ArbitraryInvoke bool
	// EventList is the closed set of allowed names when ArbitraryEvents is false.
	EventList []string
	// Strict requires events to be registered before Attach or Invoke.
	Strict bool
	// Bubble propagates registrations to ancestors. Invocations always walk
	// the parent chain; an ancestor without the event has no listeners to run.
	Bubble bool
	// ErrorHandler receives error-severity errors instead of the caller.
	ErrorHandler func(error)
	// WarningHandler receives warning-severity errors. Warnings are dropped
	// when it is nil.
	WarningHandler func(error)
}

// DefaultConfig returns the default policy: arbitrary names and invocation
// allowed, bubbling enabled, strict mode off, no handlers.
func DefaultConfig() Config {
	return Config{
		ArbitraryEvents: true,
		ArbitraryInvoke: true,
		Bubble:          true,
	}
}

func (c Config) clone() Config {
	c.EventList = slices.Clone(c.EventList)
	return c
}

// allows reports whether name passes the event-name policy.
func (c *Config) allows(name string) bool {
	if name == "" {
		return false
	}
	if c.ArbitraryEvents {
		return true
	}
	return slices.Contains(c.EventList, name)
}

// ConfigOption changes one Config key. It is used both for the registry
// wide configuration and for per-manager overrides passed to Setup.
type ConfigOption func(*Config)

// WithArbitraryEvents enables/disables arbitrary event names.
func WithArbitraryEvents(v bool) ConfigOption {
	return func(c *Config) {
		c.ArbitraryEvents = v
	}
}

// WithArbitraryInvoke enables/disables Invoke and RegisterList.
func WithArbitraryInvoke(v bool) ConfigOption {
	return func(c *Config) {
		c.ArbitraryInvoke = v
	}
}

// WithEventList sets the allowed event names used when arbitrary events
// are disabled.
func WithEventList(names ...string) ConfigOption {
	return func(c *Config) {
		c.EventList = slices.Clone(names)
	}
}

// WithStrict enables/disables strict mode.
func WithStrict(v bool) ConfigOption {
	return func(c *Config) {
		c.Strict = v
	}
}

// WithBubble enables/disables upward propagation of registrations.
func WithBubble(v bool) ConfigOption {
	return func(c *Config) {
		c.Bubble = v
	}
}

// WithErrorHandler sets the handler for error-severity errors.
func WithErrorHandler(fn func(error)) ConfigOption {
	return func(c *Config) {
		c.ErrorHandler = fn
	}
}

// WithWarningHandler sets the handler for warning-severity errors.
func WithWarningHandler(fn func(error)) ConfigOption {
	return func(c *Config) {
		c.WarningHandler = fn
	}
}

// options holds registry configuration (unexported)
type options struct {
	name            string
	logger          *slog.Logger
	tracingEnabled  bool
	metricsEnabled  bool
	recoveryEnabled bool
	tracerProvider  trace.TracerProvider
	config          []ConfigOption
}

// Option configures a Registry
type Option func(*options)

// WithName sets the registry name used for tracing and metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger for the registry
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracing enables/disables OpenTelemetry tracing of invocations
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithTracerProvider sets the provider of the invocation tracer. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMetrics enables/disables OpenTelemetry metrics
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithRecovery enables/disables panic recovery around listeners.
// Recovery should stay enabled; disable it in tests that expect a panic.
func WithRecovery(enabled bool) Option {
	return func(o *options) {
		o.recoveryEnabled = enabled
	}
}

// WithConfig applies configuration options before any manager exists.
// It is equivalent to calling Configure right after NewRegistry.
func WithConfig(opts ...ConfigOption) Option {
	return func(o *options) {
		o.config = append(o.config, opts...)
	}
}

// newOptions creates options with defaults and applies provided options
func newOptions(opts ...Option) *options {
	o := &options{
		name:            DefaultName,
		tracingEnabled:  true,
		metricsEnabled:  true,
		recoveryEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = Logger(o.name)
	}
	return o
}

// Logger returns the default component logger
func Logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// ListenerOptions filter when a listener runs.
type ListenerOptions struct {
	// Once removes the listener the first time an invocation reaches it.
	Once bool `json:"once,omitempty" yaml:"once,omitempty" toml:"once,omitempty" msgpack:"once,omitempty"`
	// OriginOnly runs the listener only when the event originated on its own manager.
	OriginOnly bool `json:"origin_only,omitempty" yaml:"origin_only,omitempty" toml:"origin_only,omitempty" msgpack:"origin_only,omitempty"`
	// BubbleOnly runs the listener only for events bubbled up from a descendant.
	BubbleOnly bool `json:"bubble_only,omitempty" yaml:"bubble_only,omitempty" toml:"bubble_only,omitempty" msgpack:"bubble_only,omitempty"`
}

// ListenerOption sets a listener option
type ListenerOption func(*ListenerOptions)

// Once marks the listener to be removed the first time an invocation reaches
// it, whether or not its filters let it run.
func Once() ListenerOption {
	return func(o *ListenerOptions) {
		o.Once = true
	}
}

// OriginOnly restricts the listener to events raised on its own manager.
func OriginOnly() ListenerOption {
	return func(o *ListenerOptions) {
		o.OriginOnly = true
	}
}

// BubbleOnly restricts the listener to events bubbled from descendants.
func BubbleOnly() ListenerOption {
	return func(o *ListenerOptions) {
		o.BubbleOnly = true
	}
}

// WithOptions replaces all listener options with v.
func WithOptions(v ListenerOptions) ListenerOption {
	return func(o *ListenerOptions) {
		*o = v
	}
}

func newListenerOptions(opts []ListenerOption) ListenerOptions {
	var o ListenerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
