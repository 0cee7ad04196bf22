package convert

import (
	"fmt"
	"reflect"
	"strings"
)

// Getter reads an attribute or dotted path from a source object. The
// path literal "self" is reserved and returns the whole source. A
// missing attribute returns the supplied default (typically Omit).
type Getter interface {
	Get(source any, path string, dflt any, opts *Options) (any, error)
}

// Setter writes an attribute on a destination. When the instance is a
// mapping, implementations must fall back to mapping-style assignment.
type Setter interface {
	Set(inst any, path string, val any, opts *Options) error
}

// CreatingGetter is implemented by adapters whose destination getter can
// create a missing intermediate node during a deep-path set. The right
// argument is the remaining path below this segment.
type CreatingGetter interface {
	GetForSet(inst any, path, right string, opts *Options) (any, error)
}

// Lifecycle is implemented by adapters that control destination
// construction and population themselves (e.g. the relational-row
// adapter which persists on create).
type Lifecycle interface {
	Instantiate(c *Converter, attrs *Attrs) (any, error)
	Populate(c *Converter, inst any, attrs *Attrs) (any, error)
}

// Adapter is the capability set through which representation-specific
// behavior is injected. The engine depends only on this seam.
type Adapter interface {
	Getter
	Setter

	// ValueIsCollection reports whether v maps as a collection. Adapters
	// narrow the default predicate to exclude their own structured types.
	ValueIsCollection(v any) bool
}

// DefaultAdapter operates on map[string]any values and on structs
// (and struct pointers) via reflection. It is the adapter used when a
// Definition does not configure one.
type DefaultAdapter struct{}

// Get resolves a dotted path against maps and structs. Missing segments
// return the default.
func (DefaultAdapter) Get(source any, path string, dflt any, _ *Options) (any, error) {
	if path == "self" {
		return source, nil
	}

	v, ok := LookupPath(source, path)
	if !ok {
		return dflt, nil
	}

	return v, nil
}

// Set assigns on the final path segment: mapping-style for maps,
// field assignment for struct pointers.
func (DefaultAdapter) Set(inst any, path string, val any, _ *Options) error {
	return SetAttr(inst, path, val)
}

// ValueIsCollection treats slices and arrays as collections, excluding
// strings, byte slices and maps.
func (DefaultAdapter) ValueIsCollection(v any) bool {
	return IsCollection(v)
}

// IsCollection is the default collection predicate: ordered containers
// (slices, arrays) except string-like and mapping-like values.
func IsCollection(v any) bool {
	if v == nil {
		return false
	}

	switch v.(type) {
	case string, []byte:
		return false
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}

	return false
}

// LookupPath resolves a dotted path against nested maps, structs and
// struct pointers. It reports false when any segment is missing.
func LookupPath(v any, path string) (any, bool) {
	cur := v

	for _, seg := range strings.Split(path, ".") {
		next, ok := lookupAttr(cur, seg)
		if !ok {
			return nil, false
		}

		cur = next
	}

	return cur, true
}

func lookupAttr(v any, name string) (any, bool) {
	if v == nil {
		return nil, false
	}

	if m, ok := v.(map[string]any); ok {
		val, ok := m[name]
		return val, ok
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Map:
		key := reflect.ValueOf(name)
		if !key.Type().AssignableTo(rv.Type().Key()) {
			return nil, false
		}

		val := rv.MapIndex(key)
		if !val.IsValid() {
			return nil, false
		}

		return val.Interface(), true

	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}

		return lookupAttr(rv.Elem().Interface(), name)

	case reflect.Struct:
		f := structField(rv, name)
		if !f.IsValid() {
			return nil, false
		}

		return f.Interface(), true
	}

	return nil, false
}

// SetAttr assigns a single (non-dotted) attribute: mapping assignment
// for maps, field assignment for struct pointers.
func SetAttr(inst any, name string, val any) error {
	if m, ok := inst.(map[string]any); ok {
		m[name] = val
		return nil
	}

	rv := reflect.ValueOf(inst)

	switch rv.Kind() {
	case reflect.Map:
		key := reflect.ValueOf(name)
		if !key.Type().AssignableTo(rv.Type().Key()) {
			return fmt.Errorf("cannot set %q on map keyed by %s", name, rv.Type().Key())
		}

		rv.SetMapIndex(key, reflect.ValueOf(val))

		return nil

	case reflect.Pointer:
		if rv.IsNil() {
			return fmt.Errorf("cannot set %q on nil pointer", name)
		}

		elem := rv.Elem()
		if elem.Kind() != reflect.Struct {
			return fmt.Errorf("cannot set %q on %T", name, inst)
		}

		f := structField(elem, name)
		if !f.IsValid() {
			return fmt.Errorf("no field %q on %s", name, elem.Type())
		}

		if !f.CanSet() {
			return fmt.Errorf("field %q on %s is not settable", name, elem.Type())
		}

		return assignField(f, val)
	}

	return fmt.Errorf("cannot set %q on %T", name, inst)
}

// structField finds a field by exact name, falling back to a
// case-insensitive scan so map-style lowercase paths reach exported
// fields.
func structField(rv reflect.Value, name string) reflect.Value {
	f := rv.FieldByName(name)
	if f.IsValid() {
		return f
	}

	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, name) {
			return rv.Field(i)
		}
	}

	return reflect.Value{}
}

func assignField(f reflect.Value, val any) error {
	if val == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}

	v := reflect.ValueOf(val)

	if v.Type().AssignableTo(f.Type()) {
		f.Set(v)
		return nil
	}

	if v.Type().ConvertibleTo(f.Type()) {
		f.Set(v.Convert(f.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to field of type %s", val, f.Type())
}
