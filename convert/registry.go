package convert

import "sync"

// Registry maps names to converters: either *Definition rule sets or
// plain functions. Definitions resolve string converter options through
// a registry, so rule sets can reference each other (including
// recursively) by name.
//
// Registries are safe for concurrent lookup and registration. Last
// registration wins on a name collision.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]any)}
}

// Register adds a converter under the given name.
func (r *Registry) Register(name string, converter any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = converter
}

// Unregister removes the named converter, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// Lookup returns the named converter.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[name]

	return v, ok
}

// Names returns all registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}

	return names
}

// defaultRegistry backs the package-level convenience functions.
// Definitions that do not set their own Registry use it.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// RegisterNamedConverter registers a converter in the process-wide
// registry. Last registration wins on name collision.
func RegisterNamedConverter(name string, converter any) {
	defaultRegistry.Register(name, converter)
}

// UnregisterNamedConverter removes a converter from the process-wide
// registry.
func UnregisterNamedConverter(name string) {
	defaultRegistry.Unregister(name)
}
