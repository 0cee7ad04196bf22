// Package text builds strings from rule sets: every resolved attribute
// value contributes, in rule order, to one joined string. Collection
// values are flattened one level, nil values are skipped.
package text

import (
	"fmt"
	"reflect"
	"strings"

	"graphconvert/convert"
)

// JoinOptions configure string building.
type JoinOptions struct {
	// JoinString is inserted between contributed values.
	JoinString string

	// Transform, when set, rewrites each contributed value before
	// joining.
	Transform func(string) string
}

// JoinDefinition builds a rule set whose destination is a string:
// instead of setting attributes, resolved values are stringified and
// joined. Rules behave as initialization attributes.
func JoinDefinition(name string, opts JoinOptions, rules ...convert.RawRule) *convert.Definition {
	return &convert.Definition{
		Name:    name,
		To:      convert.Types(""),
		Options: convert.ConverterOptions{PassAttrsToInit: true},
		Rules:   rules,
		Instantiate: func(c *convert.Converter, attrs *convert.Attrs) (any, error) {
			return join(attrs, opts), nil
		},
	}
}

// UpperDefinition is a JoinDefinition variant producing an entirely
// uppercase string.
func UpperDefinition(name string, opts JoinOptions, rules ...convert.RawRule) *convert.Definition {
	base := opts.Transform
	opts.Transform = func(s string) string {
		if base != nil {
			s = base(s)
		}

		return strings.ToUpper(s)
	}

	return JoinDefinition(name, opts, rules...)
}

func join(attrs *convert.Attrs, opts JoinOptions) string {
	out := ""
	first := true

	_ = attrs.Each(func(_ string, val any, _ *convert.Options) error {
		if val == nil {
			return nil
		}

		for _, item := range flatten(val) {
			if item == nil {
				continue
			}

			s := stringify(item)
			if opts.Transform != nil {
				s = opts.Transform(s)
			}

			if !first {
				out += opts.JoinString
			}

			out += s
			first = false
		}

		return nil
	})

	return out
}

func flatten(val any) []any {
	if !convert.IsCollection(val) {
		return []any{val}
	}

	if items, ok := val.([]any); ok {
		return items
	}

	rv := reflect.ValueOf(val)
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}
