package convert

import (
	"fmt"
	"reflect"
	"sort"
)

// convertChild dispatches the resolved value to the rule's converter.
// Collection values with mapping enabled convert element-wise; filters
// decide inclusion of the whole value or of each element; nested rule
// sets thread the parent scope and may merge into an existing child
// destination.
func (c *Converter) convertChild(rule Rule, val, inst any) (any, error) {
	opts := rule.Opts

	shouldMap := opts.MapEnabled() && c.adapter().ValueIsCollection(val)

	if !shouldMap && opts.Filter != nil {
		ok, err := c.filterIncludes(opts.Filter, val)
		if err != nil {
			return nil, err
		}

		if !ok {
			return Omit, nil
		}
	}

	conv := opts.Converter

	if conv == nil {
		if opts.Filter == nil {
			if opts.ReverseAttr != "" && !IsOmit(inst) {
				if err := c.setValue(val, opts.ReverseAttr, &Options{}, inst); err != nil {
					return nil, err
				}
			}

			return val, nil
		}

		// filter without converter: identity conversion
		conv = func(v any) any { return v }
	}

	if val == nil && !opts.ConverterWantsNils {
		return nil, nil
	}

	if opts.ReverseAttr != "" && IsOmit(inst) {
		return nil, fmt.Errorf(
			"%s: reverse_attr_name set on initialization attribute %q; mark it with initialization_attribute: false",
			c.def.displayName(), rule.Dst)
	}

	rc, err := c.resolveConverter(conv, rule.Dst)
	if err != nil {
		return nil, err
	}

	var subDest any = Omit
	if c.attrShouldMerge(opts) && !IsOmit(inst) && inst != nil {
		subDest, err = c.adapter().Get(inst, rule.Dst, Omit, opts)
		if err != nil {
			return nil, err
		}
	}

	if shouldMap {
		return c.mapConvert(rule, rc, val, inst, subDest)
	}

	return rc.call(c, val, subDest, opts.ReverseAttr, inst)
}

// mapConvert converts a collection element-wise, pairing elements with
// the existing destination collection when merging, filtering before
// conversion, and dropping elements whose conversion yields Omit.
func (c *Converter) mapConvert(rule Rule, rc *resolvedConverter, val, inst, subDest any) (any, error) {
	items := toAnySlice(val)

	var subDests []any
	if rc.wantsDest() && !IsOmit(subDest) && IsCollection(subDest) {
		subDests = toAnySlice(subDest)
	}

	out := make([]any, 0, len(items))

	for i, item := range items {
		if rule.Opts.Filter != nil {
			ok, err := c.filterIncludes(rule.Opts.Filter, item)
			if err != nil {
				return nil, err
			}

			if !ok {
				continue
			}
		}

		if item == nil && !rule.Opts.ConverterWantsNils {
			out = append(out, nil)
			continue
		}

		var sd any = Omit
		if subDests != nil && i < len(subDests) {
			sd = subDests[i]
		}

		res, err := rc.call(c, item, sd, rule.Opts.ReverseAttr, inst)
		if err != nil {
			return nil, err
		}

		if IsOmit(res) {
			continue
		}

		out = append(out, res)
	}

	return out, nil
}

// resolvedConverter is a converter in callable form: either a nested
// rule set or a plain function, possibly destination-aware.
type resolvedConverter struct {
	def    *Definition
	fn     func(c *Converter, v any) (any, error)
	destFn func(c *Converter, v, dest any) (any, error)
}

func (rc *resolvedConverter) wantsDest() bool {
	return rc.def != nil || rc.destFn != nil
}

func (rc *resolvedConverter) call(c *Converter, v, subDest any, rev string, inst any) (any, error) {
	if rc.def != nil {
		opts := []ConvertOption{WithParent(c)}

		if !IsOmit(subDest) && subDest != nil {
			opts = append(opts, WithDestination(subDest))
		}

		if rev != "" && !IsOmit(inst) {
			opts = append(opts, WithExtraAttrs(map[string]any{rev: inst}))
		}

		return rc.def.Convert(v, opts...)
	}

	var (
		out any
		err error
	)

	if rc.destFn != nil {
		var dest any
		if !IsOmit(subDest) {
			dest = subDest
		}

		out, err = rc.destFn(c, v, dest)
	} else {
		out, err = rc.fn(c, v)
	}

	if err != nil {
		return nil, err
	}

	if rev != "" && !IsOmit(inst) && out != nil && !IsOmit(out) {
		if err := c.setValue(out, rev, &Options{}, inst); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// resolveConverter maps the rule's converter value onto a callable.
// Strings resolve through the definition's method table then the
// registry; functions are matched against the supported shapes, with a
// reflective fallback for other single-argument functions.
func (c *Converter) resolveConverter(conv any, dst string) (*resolvedConverter, error) {
	switch cv := conv.(type) {
	case *Definition:
		return &resolvedConverter{def: cv}, nil

	case string:
		if m, ok := c.def.Methods[cv]; ok {
			return c.resolveConverter(m, dst)
		}

		if r, ok := c.registry().Lookup(cv); ok {
			return c.resolveConverter(r, dst)
		}

		return nil, fmt.Errorf("%s: unknown named converter %q for %q",
			c.def.displayName(), cv, dst)

	case func(any) any:
		return &resolvedConverter{fn: func(_ *Converter, v any) (any, error) {
			return cv(v), nil
		}}, nil

	case func(any) (any, error):
		return &resolvedConverter{fn: func(_ *Converter, v any) (any, error) {
			return cv(v)
		}}, nil

	case func(any, *Converter) any:
		return &resolvedConverter{fn: func(c *Converter, v any) (any, error) {
			return cv(v, c), nil
		}}, nil

	case func(any, *Converter) (any, error):
		return &resolvedConverter{fn: func(c *Converter, v any) (any, error) {
			return cv(v, c)
		}}, nil

	case func(any, any) any:
		return &resolvedConverter{destFn: func(_ *Converter, v, dest any) (any, error) {
			return cv(v, dest), nil
		}}, nil

	case func(any, any) (any, error):
		return &resolvedConverter{destFn: func(_ *Converter, v, dest any) (any, error) {
			return cv(v, dest)
		}}, nil
	}

	rv := reflect.ValueOf(conv)
	if rv.Kind() != reflect.Func || rv.Type().NumIn() != 1 || rv.Type().NumOut() < 1 {
		return nil, &UnsupportedConverterTypeError{Dst: dst, Converter: conv}
	}

	return &resolvedConverter{fn: reflectConverter(c.def.displayName(), dst, rv)}, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func reflectConverter(defName, dst string, rv reflect.Value) func(*Converter, any) (any, error) {
	t := rv.Type()
	in := t.In(0)

	return func(_ *Converter, v any) (any, error) {
		av := reflect.ValueOf(v)

		switch {
		case v == nil:
			av = reflect.Zero(in)
		case av.Type().AssignableTo(in):
		case av.Type().ConvertibleTo(in):
			av = av.Convert(in)
		default:
			return nil, fmt.Errorf("%s: converter for %q cannot accept %T as %s",
				defName, dst, v, in)
		}

		out := rv.Call([]reflect.Value{av})
		if t.NumOut() > 1 && t.Out(t.NumOut()-1) == errType {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return nil, err
			}
		}

		return out[0].Interface(), nil
	}
}

func (c *Converter) filterIncludes(filter, v any) (bool, error) {
	switch f := filter.(type) {
	case func(any) bool:
		return f(v), nil
	case func(any, any) bool:
		return f(v, c.source), nil
	}

	rv := reflect.ValueOf(filter)
	t := rv.Type()
	if rv.Kind() == reflect.Func && t.NumIn() == 1 && t.NumOut() == 1 &&
		t.Out(0).Kind() == reflect.Bool {
		av := reflect.ValueOf(v)

		switch {
		case v == nil:
			av = reflect.Zero(t.In(0))
		case av.Type().AssignableTo(t.In(0)):
		case av.Type().ConvertibleTo(t.In(0)):
			av = av.Convert(t.In(0))
		default:
			return false, fmt.Errorf("%s: filter cannot accept %T", c.def.displayName(), v)
		}

		return rv.Call([]reflect.Value{av})[0].Bool(), nil
	}

	return false, fmt.Errorf("%s: unsupported filter type %T", c.def.displayName(), filter)
}

// finishValue applies washers, truncation and sorting, then the
// definition-wide nil and empty-string policy. The policy runs last so
// a washer may still rewrite a nil before the policy sees it.
func (c *Converter) finishValue(rule Rule, val any) (any, error) {
	opts := rule.Opts

	if !opts.SkipWash {
		val = washValue(c.def.Washers, val)
	}

	if opts.MaxLen != nil {
		var err error

		val, err = c.truncate(val, *opts.MaxLen, opts)
		if err != nil {
			return nil, err
		}
	}

	if opts.Sort != nil {
		var err error

		val, err = c.sortValue(rule, val)
		if err != nil {
			return nil, err
		}
	}

	if val == nil {
		switch {
		case c.def.Options.DropNils:
			return Omit, nil
		case c.def.Options.ConvertNilsToBlanks:
			val = ""
		}
	}

	if s, ok := val.(string); ok && s == "" && c.def.Options.DropEmptyStrings {
		return Omit, nil
	}

	return val, nil
}

func (c *Converter) truncate(val any, maxLen int, opts *Options) (any, error) {
	if c.def.Truncate != nil {
		return c.def.Truncate(val, maxLen, opts)
	}

	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		r := []rune(v)
		if len(r) > maxLen {
			return string(r[:maxLen]), nil
		}

		return v, nil
	case []byte:
		if len(v) > maxLen {
			return v[:maxLen], nil
		}

		return v, nil
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice {
		if rv.Len() > maxLen {
			return rv.Slice(0, maxLen).Interface(), nil
		}

		return val, nil
	}

	return nil, fmt.Errorf("%s: max_len is only applicable to strings and slices, got %T",
		c.def.displayName(), val)
}

func (c *Converter) sortValue(rule Rule, val any) (any, error) {
	srt := rule.Opts.Sort
	if b, ok := srt.(bool); ok && !b {
		return val, nil
	}

	if !c.adapter().ValueIsCollection(val) {
		return nil, fmt.Errorf("%s: sort for %q is only applicable to collections, got %T",
			c.def.displayName(), rule.Dst, val)
	}

	key := func(v any) any { return v }

	switch k := srt.(type) {
	case bool:
	case func(any) any:
		key = k
	default:
		return nil, fmt.Errorf("%s: sort for %q must be a boolean or a key function, got %T",
			c.def.displayName(), rule.Dst, srt)
	}

	items := toAnySlice(val)
	sort.SliceStable(items, func(i, j int) bool {
		return compareValues(key(items[i]), key(items[j])) < 0
	})

	return items, nil
}

// toAnySlice copies any slice or array into a fresh []any, leaving the
// input untouched.
func toAnySlice(v any) []any {
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		copy(out, s)

		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out
}

func compareValues(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)

	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)

	if !aok || !bok {
		as, bs = fmt.Sprint(a), fmt.Sprint(b)
	}

	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
