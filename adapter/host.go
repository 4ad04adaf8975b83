package adapter

import (
	"fmt"
	"maps"
	"slices"
)

// Table is a Host that keeps bound methods in a map. Embed it in an owner
// type to give the owner a dynamic method set.
type Table struct {
	methods map[string]Method
}

// Bind adds or replaces name
func (t *Table) Bind(name string, fn Method) {
	if t.methods == nil {
		t.methods = make(map[string]Method)
	}
	t.methods[name] = fn
}

// Unbind removes name
func (t *Table) Unbind(name string) {
	delete(t.methods, name)
}

// Has reports whether name is bound
func (t *Table) Has(name string) bool {
	_, ok := t.methods[name]
	return ok
}

// Names returns the sorted bound names
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.methods))
}

// Call runs the method bound to name
func (t *Table) Call(name string, args ...any) (any, error) {
	fn, ok := t.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	return fn(args...)
}

var _ Host = (*Table)(nil)
