package convert

import (
	"fmt"
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/copystructure"
)

// RawRule is any accepted raw rule form. See the package documentation
// for the shapes and their normalization precedence.
type RawRule = any

// Rule is the canonical (destination, source, options) triple every raw
// form reduces to. The destination path may be dotted ("a.b.c") for
// nested sets; the source path may be NotOnSource.
type Rule struct {
	Dst  string
	Src  string
	Opts *Options
}

// nameCounter feeds fresh destination names for unnamed computed rules.
// Names never collide across normalization passes.
var nameCounter atomic.Int64

func nextAnonymousName() string {
	return fmt.Sprintf("-not-on-dest-%d", nameCounter.Add(1))
}

// Copy declares a rule copying the same-named attribute.
func Copy(name string) Rule {
	return Rule{Dst: name, Src: name, Opts: &Options{}}
}

// Rename declares a rule copying src into dst.
func Rename(dst, src string) Rule {
	return Rule{Dst: dst, Src: src, Opts: &Options{}}
}

// Field declares a rule with full options.
func Field(dst, src string, opts *Options) Rule {
	if opts == nil {
		opts = &Options{}
	}

	return Rule{Dst: dst, Src: src, Opts: opts}
}

// Absent declares a rule for an attribute with no source counterpart,
// populated from the given default.
func Absent(dst string, dflt any) Rule {
	return Rule{Dst: dst, Src: NotOnSource, Opts: &Options{Default: dflt}}
}

// Computed declares an unnamed whole-source rule: fn receives the entire
// source object and its result becomes part of the destination. The rule
// is given a fresh unique destination name during normalization.
func Computed(fn any) RawRule {
	return fn
}

// Normalize turns heterogeneous raw rule declarations into canonical
// triples. It is pure: no side effects beyond reporting malformed input.
// All malformed rules in the list are reported, aggregated.
func Normalize(rules []RawRule) ([]Rule, error) {
	return normalizeRules(rules, nil)
}

func normalizeRules(rules []RawRule, absentDefault any) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))

	var merr *multierror.Error

	for _, raw := range rules {
		r, err := normalizeOne(raw, absentDefault)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		if err := validateRuleDefault(r); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}

		out = append(out, r)
	}

	return out, merr.ErrorOrNil()
}

func normalizeOne(raw RawRule, absentDefault any) (Rule, error) {
	switch v := raw.(type) {
	case Rule:
		return cloneRule(v), nil

	case *Rule:
		return cloneRule(*v), nil

	case string:
		return Rule{Dst: v, Src: v, Opts: &Options{}}, nil

	case []any:
		return normalizeTuple(v, absentDefault)

	case []string:
		tuple := make([]any, len(v))
		for i, s := range v {
			tuple[i] = s
		}

		return normalizeTuple(tuple, absentDefault)
	}

	// A bare function is a whole-source computed rule. As there may be
	// multiple unnamed rules, each gets a unique destination name so they
	// do not conflict in the intermediate attribute map.
	if reflect.ValueOf(raw).Kind() == reflect.Func {
		return Rule{
			Dst:  nextAnonymousName(),
			Src:  "self",
			Opts: &Options{Converter: raw},
		}, nil
	}

	return Rule{}, &InvalidRuleSpecError{
		Detail: fmt.Sprintf("copy field spec is not valid: %#v", raw),
	}
}

func normalizeTuple(tuple []any, absentDefault any) (Rule, error) {
	switch len(tuple) {
	case 1:
		dst, ok := tuple[0].(string)
		if !ok {
			return Rule{}, &InvalidRuleSpecError{
				Detail: fmt.Sprintf("destination field %#v is invalid", tuple[0]),
			}
		}

		return Rule{Dst: dst, Src: dst, Opts: &Options{}}, nil

	case 2:
		return normalizePair(tuple, absentDefault)

	case 3:
		return normalizeTriple(tuple)
	}

	return Rule{}, &InvalidRuleSpecError{
		Detail: fmt.Sprintf("copy field spec is not valid: %#v", tuple),
	}
}

func normalizePair(tuple []any, absentDefault any) (Rule, error) {
	dst, ok := tuple[0].(string)
	if !ok {
		return Rule{}, &InvalidRuleSpecError{
			Detail: fmt.Sprintf("destination field %#v is invalid", tuple[0]),
		}
	}

	switch second := tuple[1].(type) {
	case string:
		if second == NotOnSource {
			opts := &Options{}
			if absentDefault != nil {
				opts.Default = absentDefault
			}

			return Rule{Dst: dst, Src: NotOnSource, Opts: opts}, nil
		}

		return Rule{Dst: dst, Src: second, Opts: &Options{}}, nil

	case map[string]any:
		opts, err := DecodeOptions(second)
		if err != nil {
			return Rule{}, &InvalidRuleSpecError{Dst: dst, Src: dst, Detail: err.Error()}
		}

		return Rule{Dst: dst, Src: dst, Opts: opts}, nil

	case *Options:
		return Rule{Dst: dst, Src: dst, Opts: second}, nil

	case *Definition:
		return Rule{Dst: dst, Src: dst, Opts: &Options{Converter: second}}, nil
	}

	if reflect.ValueOf(tuple[1]).Kind() == reflect.Func {
		return Rule{Dst: dst, Src: dst, Opts: &Options{Converter: tuple[1]}}, nil
	}

	return Rule{}, &InvalidRuleSpecError{
		Dst:    dst,
		Detail: fmt.Sprintf("copy field spec is not valid: %#v", tuple),
	}
}

func normalizeTriple(tuple []any) (Rule, error) {
	dst := ""

	switch first := tuple[0].(type) {
	case nil:
		dst = nextAnonymousName()
	case string:
		dst = first
	default:
		return Rule{}, &InvalidRuleSpecError{
			Detail: fmt.Sprintf("destination field %#v is invalid", tuple[0]),
		}
	}

	src, ok := tuple[1].(string)
	if !ok {
		return Rule{}, &InvalidRuleSpecError{
			Dst:    dst,
			Detail: fmt.Sprintf("source field %#v is invalid", tuple[1]),
		}
	}

	switch third := tuple[2].(type) {
	case map[string]any:
		opts, err := DecodeOptions(third)
		if err != nil {
			return Rule{}, &InvalidRuleSpecError{Dst: dst, Src: src, Detail: err.Error()}
		}

		return Rule{Dst: dst, Src: src, Opts: opts}, nil

	case *Options:
		return Rule{Dst: dst, Src: src, Opts: third}, nil
	}

	if src == NotOnSource {
		return Rule{Dst: dst, Src: NotOnSource, Opts: &Options{Default: tuple[2]}}, nil
	}

	switch third := tuple[2].(type) {
	case string:
		return Rule{Dst: dst, Src: src, Opts: &Options{Converter: third}}, nil
	case *Definition:
		return Rule{Dst: dst, Src: src, Opts: &Options{Converter: third}}, nil
	}

	if reflect.ValueOf(tuple[2]).Kind() == reflect.Func {
		return Rule{Dst: dst, Src: src, Opts: &Options{Converter: tuple[2]}}, nil
	}

	return Rule{}, &InvalidRuleSpecError{
		Dst:    dst,
		Src:    src,
		Detail: fmt.Sprintf("converter %#v is invalid", tuple[2]),
	}
}

// validateRuleDefault enforces the default invariant eagerly: a default
// must be a zero-argument function, a number, or a string, so malformed
// configuration fails before any data flows.
func validateRuleDefault(r Rule) error {
	dflt := r.Opts.Default
	if dflt == nil {
		return nil
	}

	rv := reflect.ValueOf(dflt)

	switch rv.Kind() {
	case reflect.Func:
		if rv.Type().NumIn() == 0 && rv.Type().NumOut() >= 1 {
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return nil
	}

	return &InvalidRuleSpecError{
		Dst: r.Dst,
		Src: r.Src,
		Detail: fmt.Sprintf(
			"default option can only be a zero-argument function, number or string, got %T", dflt),
	}
}

// applyExtraAttrs merges conversion-call-time overrides into a rule list:
// a matching destination gets the value stashed as an override, others
// append as new NotOnSource rules. Appended rules are ordered by name so
// the pass is deterministic.
func applyExtraAttrs(rules []Rule, extra map[string]any) []Rule {
	if len(extra) == 0 {
		return rules
	}

	missing := make([]string, 0, len(extra))

	for name, val := range extra {
		found := false

		for i := range rules {
			if rules[i].Dst == name {
				rules[i].Opts.override = val
				rules[i].Opts.hasOverride = true
				found = true

				break
			}
		}

		if !found {
			missing = append(missing, name)
		}
	}

	sort.Strings(missing)

	for _, name := range missing {
		rules = append(rules, Rule{
			Dst:  name,
			Src:  NotOnSource,
			Opts: &Options{override: extra[name], hasOverride: true},
		})
	}

	return rules
}

// cloneRule deep-copies a rule so per-run override stashing never
// mutates the shared definition. Function values are shared by
// reference.
func cloneRule(r Rule) Rule {
	opts := &Options{}
	if r.Opts != nil {
		*opts = *r.Opts
	}

	if opts.Extra != nil {
		copied, err := copystructure.Copy(opts.Extra)
		if err == nil {
			opts.Extra = copied.(map[string]any)
		}
	}

	return Rule{Dst: r.Dst, Src: r.Src, Opts: opts}
}
