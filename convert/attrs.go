package convert

// Attrs is the ordered name -> (value, options) map produced by value
// resolution and consumed exactly once by instantiation or population.
// Insertion order is preserved; setting an existing name overwrites in
// place (last write wins).
type Attrs struct {
	names   []string
	entries map[string]attrEntry
}

type attrEntry struct {
	val  any
	opts *Options
}

// NewAttrs creates an empty ordered attribute map.
func NewAttrs() *Attrs {
	return &Attrs{entries: make(map[string]attrEntry)}
}

// Set stores a value and its rule options under name.
func (a *Attrs) Set(name string, val any, opts *Options) {
	if _, exists := a.entries[name]; !exists {
		a.names = append(a.names, name)
	}

	a.entries[name] = attrEntry{val: val, opts: opts}
}

// Len returns the number of attributes.
func (a *Attrs) Len() int { return len(a.names) }

// Names returns attribute names in insertion order.
func (a *Attrs) Names() []string { return a.names }

// Get returns the value stored under name.
func (a *Attrs) Get(name string) (any, bool) {
	e, ok := a.entries[name]
	return e.val, ok
}

// Options returns the rule options stored under name.
func (a *Attrs) Options(name string) *Options {
	return a.entries[name].opts
}

// Each visits attributes in insertion order, stopping on the first
// error.
func (a *Attrs) Each(fn func(name string, val any, opts *Options) error) error {
	for _, name := range a.names {
		e := a.entries[name]
		if err := fn(name, e.val, e.opts); err != nil {
			return err
		}
	}

	return nil
}

// Values returns a plain name -> value map, for lifecycle hooks that do
// not care about per-rule options.
func (a *Attrs) Values() map[string]any {
	out := make(map[string]any, len(a.names))
	for name, e := range a.entries {
		out[name] = e.val
	}

	return out
}
