package convert

import (
	"fmt"
	"reflect"
)

// resolveAndConvert runs the full per-rule pipeline: read the raw value,
// enforce required, fall back to the default, pluralize, dispatch to the
// converter, then finish with washers, truncation, sorting and the
// nil/empty policy. An Omit result drops the attribute entirely.
func (c *Converter) resolveAndConvert(rule Rule, inst any) (any, error) {
	raw, err := c.rawValue(rule, inst)
	if err != nil {
		return nil, err
	}

	if err := c.checkRequired(rule, raw); err != nil {
		return nil, err
	}

	val, err := c.applyDefault(rule, raw)
	if err != nil {
		return nil, err
	}

	if IsOmit(val) {
		return Omit, nil
	}

	if rule.Opts.Pluralize && !c.adapter().ValueIsCollection(val) {
		val = []any{val}
	}

	val, err = c.convertChild(rule, val, inst)
	if err != nil {
		return nil, err
	}

	if IsOmit(val) {
		return Omit, nil
	}

	return c.finishValue(rule, val)
}

// rawValue reads the rule's source value. An override short-circuits
// everything; pass_instance substitutes the in-progress instance; a
// NotOnSource source yields no value; otherwise the getter runs and a
// miss falls back to the conversion context.
func (c *Converter) rawValue(rule Rule, inst any) (any, error) {
	opts := rule.Opts

	if opts.hasOverride {
		return opts.override, nil
	}

	if opts.PassInstanceToConverter {
		return inst, nil
	}

	if rule.Src == NotOnSource {
		return Omit, nil
	}

	var (
		val any
		err error
	)

	if opts.Getter != nil {
		val, err = opts.Getter(c.source, rule.Src, opts)
	} else {
		val, err = c.adapter().Get(c.source, rule.Src, Omit, opts)
	}

	if err != nil {
		return nil, err
	}

	if IsOmit(val) {
		if ctxVal, ok := LookupPath(c.Context(), rule.Src); ok {
			val = ctxVal
		}
	}

	return val, nil
}

// checkRequired validates the raw value before any default is applied:
// making an attribute both required and defaulted still fails on a
// missing source.
func (c *Converter) checkRequired(rule Rule, raw any) error {
	switch req := rule.Opts.Required.(type) {
	case nil:
		return nil
	case bool:
		if req && IsOmit(raw) {
			return &ValueRequiredError{Path: rule.Src}
		}

		return nil
	case func(any) bool:
		if IsOmit(raw) {
			return &ValueRequiredError{Path: rule.Src}
		}

		if !req(raw) {
			return &ValueRequiredError{
				Path:    rule.Src,
				Message: fmt.Sprintf("%q value from source does not satisfy requirement condition", rule.Src),
			}
		}

		return nil
	default:
		return &InvalidRuleSpecError{
			Dst: rule.Dst, Src: rule.Src,
			Detail: fmt.Sprintf("required option must be a boolean or a predicate, got %T", req),
		}
	}
}

// applyDefault substitutes the default provider's value when the source
// value is missing, nil, or an empty string. With no default, a missing
// value stays missing while nil and "" pass through to the converter.
func (c *Converter) applyDefault(rule Rule, raw any) (any, error) {
	if !IsOmit(raw) && raw != nil && raw != "" {
		return raw, nil
	}

	dflt := rule.Opts.Default
	if dflt == nil {
		return raw, nil
	}

	return callDefault(dflt)
}

func callDefault(dflt any) (any, error) {
	rv := reflect.ValueOf(dflt)
	if rv.Kind() != reflect.Func {
		return dflt, nil
	}

	out := rv.Call(nil)
	if len(out) == 0 {
		return nil, fmt.Errorf("default provider %T returned nothing", dflt)
	}

	if len(out) > 1 {
		if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
			return nil, err
		}
	}

	return out[0].Interface(), nil
}
