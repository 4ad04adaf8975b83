package eventtree

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package-level
// functions.
func Default() *Registry {
	return defaultRegistry
}

// Configure changes the configuration of the default registry
func Configure(opts ...ConfigOption) error {
	return defaultRegistry.Configure(opts...)
}

// Setup creates a manager for owner in the default registry
func Setup(owner, parent any, overrides ...ConfigOption) (*Manager, error) {
	return defaultRegistry.Setup(owner, parent, overrides...)
}

// Lookup returns the manager of owner in the default registry, or nil
func Lookup(owner any) *Manager {
	return defaultRegistry.Lookup(owner)
}

// Root returns the root manager of the default registry
func Root() *Manager {
	return defaultRegistry.Root()
}

// Attach attaches h to name on the default root manager
func Attach(name string, h *Handler, opts ...ListenerOption) error {
	return defaultRegistry.Root().Attach(name, h, opts...)
}

// Detach detaches h from name on the default root manager
func Detach(name string, h *Handler, opts ...ListenerOption) bool {
	return defaultRegistry.Root().Detach(name, h, opts...)
}

// Invoke invokes name on the default root manager
func Invoke(name string, args ...any) (bool, error) {
	return defaultRegistry.Root().Invoke(name, args...)
}
