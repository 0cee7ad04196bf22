package convert

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TypeSet is a set of acceptable types. A source type set may carry
// several alternatives; a destination type set must not.
type TypeSet []reflect.Type

// Types builds a TypeSet from example values or reflect.Types.
func Types(examples ...any) TypeSet {
	ts := make(TypeSet, 0, len(examples))

	for _, e := range examples {
		if t, ok := e.(reflect.Type); ok {
			ts = append(ts, t)
			continue
		}

		ts = append(ts, reflect.TypeOf(e))
	}

	return ts
}

// Definition is a reusable conversion rule set: what to copy, to where,
// and how. A Definition is configured once and may be used concurrently;
// each Convert call gets its own working state.
type Definition struct {
	// Name identifies the definition in error messages and registries.
	Name string

	// From lists acceptable source types. Empty accepts anything. More
	// than one entry declares a union of alternatives.
	From TypeSet

	// To declares the destination type. More than one entry is forbidden
	// and fails with InvalidDestinationTypeError.
	To TypeSet

	// NewDest overrides default destination construction.
	NewDest func() any

	// Rules is the raw rule list; normalized once on first use.
	Rules []RawRule

	// Options configure whole-definition behaviour.
	Options ConverterOptions

	// Washers are scanned in declaration order after each conversion.
	Washers []Washer

	// Methods resolves string converter and setter names before the
	// registry is consulted.
	Methods map[string]any

	// Adapter is the representation capability set; DefaultAdapter when
	// nil.
	Adapter Adapter

	// Registry resolves named converters; the process-wide default
	// registry when nil.
	Registry *Registry

	// AbsentDefault is the definition-level default provider applied to
	// two-element NotOnSource rules.
	AbsentDefault any

	// BuildContext computes this definition's contribution to the
	// conversion context.
	BuildContext func(c *Converter) map[string]any

	// PostConvert transforms the finished instance.
	PostConvert func(c *Converter, inst any) (any, error)

	// Instantiate overrides destination construction entirely, receiving
	// the initialization attributes. Returning Omit or nil aborts the
	// conversion and returns that value (find-existing-or-skip).
	Instantiate func(c *Converter, attrs *Attrs) (any, error)

	// Truncate overrides max_len truncation, e.g. for content-aware
	// truncation of escaped text.
	Truncate func(v any, maxLen int, opts *Options) (any, error)

	compileOnce sync.Once
	compiled    []Rule
	compileErr  error
}

// compile validates the definition and normalizes its rules, once.
func (d *Definition) compile() error {
	d.compileOnce.Do(func() {
		if len(d.To) > 1 {
			d.compileErr = &InvalidDestinationTypeError{
				Definition: d.displayName(),
				Types:      d.To,
			}

			return
		}

		rules, err := normalizeRules(d.Rules, d.AbsentDefault)
		if err != nil {
			d.compileErr = fmt.Errorf("%s: %w", d.displayName(), err)
			return
		}

		d.compiled = rules
	})

	return d.compileErr
}

// NormalizedRules returns the definition's canonical rule list.
func (d *Definition) NormalizedRules() ([]Rule, error) {
	if err := d.compile(); err != nil {
		return nil, err
	}

	return d.compiled, nil
}

func (d *Definition) displayName() string {
	if d.Name != "" {
		return d.Name
	}

	return "converter"
}

func (d *Definition) checkSource(source any) error {
	if source == nil || len(d.From) == 0 {
		return nil
	}

	st := reflect.TypeOf(source)

	for _, t := range d.From {
		switch {
		case st == t,
			st.AssignableTo(t),
			t.Kind() == reflect.Interface && st.Implements(t),
			st.Kind() == reflect.Pointer && st.Elem() == t,
			t.Kind() == reflect.Pointer && st == t.Elem():
			return nil
		}
	}

	return &TypeMismatchError{Definition: d.displayName(), Accepted: d.From, Source: source}
}

// ConvertOption configures one Convert call.
type ConvertOption func(*convertConfig)

type convertConfig struct {
	context    map[string]any
	dest       any
	extraAttrs map[string]any
	scope      *Scope
	shared     map[string]any
}

// WithContext supplies caller context, merged over the inherited and
// built contexts for the duration of this conversion.
func WithContext(m map[string]any) ConvertOption {
	return func(cfg *convertConfig) { cfg.context = m }
}

// WithDestination converts into an existing instance instead of
// constructing a new one.
func WithDestination(dest any) ConvertOption {
	return func(cfg *convertConfig) { cfg.dest = dest }
}

// WithExtraAttrs supplies call-time attribute overrides: a matching rule
// destination takes the override value, others become new attributes.
func WithExtraAttrs(m map[string]any) ConvertOption {
	return func(cfg *convertConfig) { cfg.extraAttrs = m }
}

// WithParent threads a parent conversion's scope and shared state into a
// nested conversion, so manually invoked sub-conversions see the same
// context stack. Sub-conversions spawned by the pipeline are threaded
// automatically.
func WithParent(parent *Converter) ConvertOption {
	return func(cfg *convertConfig) {
		cfg.scope = parent.scope
		cfg.shared = parent.shared
	}
}

// WithShared attaches an arbitrary state bag visible to this conversion
// and everything nested under it.
func WithShared(m map[string]any) ConvertOption {
	return func(cfg *convertConfig) { cfg.shared = m }
}

// Convert runs the rule set over source and returns the destination
// instance. ValueRequiredError is recoverable by the caller; rule-shape
// and type errors are fatal and surface before any data is touched.
func (d *Definition) Convert(source any, opts ...ConvertOption) (any, error) {
	c, err := d.newConverter(source, opts...)
	if err != nil {
		return nil, err
	}

	return c.run()
}

func (d *Definition) newConverter(source any, opts ...ConvertOption) (*Converter, error) {
	if err := d.compile(); err != nil {
		return nil, err
	}

	if err := d.checkSource(source); err != nil {
		return nil, err
	}

	var cfg convertConfig
	for _, o := range opts {
		o(&cfg)
	}

	scope := cfg.scope
	if scope == nil {
		scope = NewScope()
	}

	rules := make([]Rule, len(d.compiled))
	for i, r := range d.compiled {
		rules[i] = cloneRule(r)
	}

	rules = applyExtraAttrs(rules, cfg.extraAttrs)

	return &Converter{
		def:         d,
		source:      source,
		dest:        cfg.dest,
		creating:    cfg.dest == nil,
		scope:       scope,
		suppliedCtx: cfg.context,
		shared:      cfg.shared,
		rules:       rules,
	}, nil
}

// Converter is the working state of one conversion run. Converter
// methods are exposed so converter functions and adapter hooks can reach
// the context, the in-progress instance, and the source.
type Converter struct {
	def         *Definition
	source      any
	dest        any
	inst        any
	creating    bool
	scope       *Scope
	suppliedCtx map[string]any
	shared      map[string]any
	rules       []Rule
}

// Source returns the object being converted.
func (c *Converter) Source() any { return c.source }

// Instance returns the in-progress destination instance. It is only set
// once instantiation (or the update-mode destination) is established.
func (c *Converter) Instance() any { return c.inst }

// Creating reports whether this run constructs a fresh destination.
// Lifecycle hooks doing find-or-create may flip it with SetCreating.
func (c *Converter) Creating() bool { return c.creating }

// SetCreating overrides the creating flag.
func (c *Converter) SetCreating(creating bool) { c.creating = creating }

// Context returns the innermost active conversion context.
func (c *Converter) Context() map[string]any { return c.scope.Current() }

// Shared returns the state bag threaded through nested conversions.
func (c *Converter) Shared() map[string]any { return c.shared }

// Definition returns the rule set this run executes.
func (c *Converter) Definition() *Definition { return c.def }

func (c *Converter) adapter() Adapter {
	if c.def.Adapter != nil {
		return c.def.Adapter
	}

	return DefaultAdapter{}
}

func (c *Converter) registry() *Registry {
	if c.def.Registry != nil {
		return c.def.Registry
	}

	return defaultRegistry
}

func (c *Converter) run() (any, error) {
	var built map[string]any
	if c.def.BuildContext != nil {
		built = c.def.BuildContext(c)
	}

	restore := c.scope.enter(built, c.suppliedCtx)
	defer restore()

	return c.instanceConvert()
}

// instanceConvert is the two-phase build: initialization attributes are
// resolved first and either construct a fresh instance or update the
// supplied destination; population attributes are resolved after the
// instance exists, so they may depend on it.
func (c *Converter) instanceConvert() (any, error) {
	initAttrs, err := c.params(true, Omit)
	if err != nil {
		return nil, err
	}

	var inst any

	if c.dest != nil {
		inst, err = c.populateInstance(c.dest, initAttrs)
		if err != nil {
			return nil, err
		}
	} else {
		inst, err = c.instantiate(initAttrs)
		if err != nil {
			return nil, err
		}

		if inst == nil || IsOmit(inst) {
			return inst, nil
		}
	}

	c.inst = inst

	popAttrs, err := c.params(false, inst)
	if err != nil {
		return nil, err
	}

	if _, err := c.populateInstance(inst, popAttrs); err != nil {
		return nil, err
	}

	if c.def.PostConvert != nil {
		return c.def.PostConvert(c, inst)
	}

	return inst, nil
}

func (c *Converter) params(init bool, inst any) (*Attrs, error) {
	attrs := NewAttrs()

	for _, rule := range c.rules {
		if c.isInitializationAttr(rule) != init {
			continue
		}

		val, err := c.resolveAndConvert(rule, inst)
		if err != nil {
			return nil, err
		}

		if IsOmit(val) {
			continue
		}

		attrs.Set(rule.Dst, val, rule.Opts)
	}

	return attrs, nil
}

// isInitializationAttr decides whether a rule feeds instantiation or
// post-construction population. An explicit per-rule flag wins;
// otherwise pass_attrs_to_init applies unless the rule has a deep
// destination, a reverse attribute, wants the instance, or merges.
func (c *Converter) isInitializationAttr(rule Rule) bool {
	if rule.Opts.InitializationAttribute != nil {
		return *rule.Opts.InitializationAttribute
	}

	return c.def.Options.PassAttrsToInit &&
		!rule.Opts.PassInstanceToConverter &&
		!strings.Contains(rule.Dst, ".") &&
		rule.Opts.ReverseAttr == "" &&
		!c.attrShouldMerge(rule.Opts)
}

func (c *Converter) attrShouldMerge(opts *Options) bool {
	return opts.Merge || c.def.Options.MergeAll
}

func (c *Converter) instantiate(attrs *Attrs) (any, error) {
	if c.def.Options.CopyOnly {
		return nil, fmt.Errorf(
			"%s: cannot instantiate a new instance: copy_only is set and no destination was supplied",
			c.def.displayName())
	}

	if c.def.Instantiate != nil {
		return c.def.Instantiate(c, attrs)
	}

	if lc, ok := c.adapter().(Lifecycle); ok {
		return lc.Instantiate(c, attrs)
	}

	inst, err := c.newDestination()
	if err != nil {
		return nil, err
	}

	if err := c.ApplyAttrs(inst, attrs); err != nil {
		return nil, err
	}

	return inst, nil
}

func (c *Converter) newDestination() (any, error) {
	if c.def.NewDest != nil {
		return c.def.NewDest(), nil
	}

	if len(c.def.To) == 0 {
		return map[string]any{}, nil
	}

	t := c.def.To[0]

	switch t.Kind() {
	case reflect.Map:
		return reflect.MakeMap(t).Interface(), nil
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return reflect.New(t.Elem()).Interface(), nil
		}
	case reflect.Struct:
		return reflect.New(t).Interface(), nil
	}

	return nil, fmt.Errorf("%s: cannot construct destination of type %s",
		c.def.displayName(), t)
}

func (c *Converter) populateInstance(inst any, attrs *Attrs) (any, error) {
	if lc, ok := c.adapter().(Lifecycle); ok {
		return lc.Populate(c, inst, attrs)
	}

	if err := c.ApplyAttrs(inst, attrs); err != nil {
		return nil, err
	}

	return inst, nil
}

// ApplyAttrs sets resolved attributes on an instance through the
// adapter's setter, skipping merge rules: their values were already
// merged into the destination's nested state during conversion, and a
// direct set would overwrite it.
func (c *Converter) ApplyAttrs(inst any, attrs *Attrs) error {
	return attrs.Each(func(name string, val any, opts *Options) error {
		if c.attrShouldMerge(opts) {
			return nil
		}

		return c.setValue(inst, name, opts, val)
	})
}

// setValue writes through the adapter, recursing along dotted paths.
// A missing intermediate that the adapter cannot create silently aborts
// this one assignment. Slice destinations fan the write out over their
// elements.
func (c *Converter) setValue(inst any, path string, opts *Options, val any) error {
	left, right, deep := strings.Cut(path, ".")
	if deep && right != "" {
		sub, err := c.getForSet(inst, left, right, opts)
		if err != nil {
			return err
		}

		if sub == nil || IsOmit(sub) {
			return nil
		}

		return c.setValue(sub, right, opts, val)
	}

	if inst != nil {
		rv := reflect.ValueOf(inst)
		if rv.Kind() == reflect.Slice {
			if _, isBytes := inst.([]byte); !isBytes {
				for i := 0; i < rv.Len(); i++ {
					if err := c.setOne(rv.Index(i).Interface(), path, opts, val); err != nil {
						return err
					}
				}

				return nil
			}
		}
	}

	return c.setOne(inst, path, opts, val)
}

func (c *Converter) setOne(inst any, path string, opts *Options, val any) error {
	if opts != nil && opts.Setter != nil {
		switch s := opts.Setter.(type) {
		case SetterFunc:
			return s(inst, path, val, opts)
		case func(inst any, path string, val any, opts *Options) error:
			return s(inst, path, val, opts)
		case string:
			if m, ok := c.def.Methods[s]; ok {
				if fn, ok := m.(func(inst any, path string, val any, opts *Options) error); ok {
					return fn(inst, path, val, opts)
				}

				if fn, ok := m.(SetterFunc); ok {
					return fn(inst, path, val, opts)
				}
			}

			return fmt.Errorf("%s: unknown setter %q", c.def.displayName(), s)
		default:
			return fmt.Errorf("%s: unsupported setter type %T", c.def.displayName(), opts.Setter)
		}
	}

	return c.adapter().Set(inst, path, val, opts)
}

func (c *Converter) getForSet(inst any, left, right string, opts *Options) (any, error) {
	if cg, ok := c.adapter().(CreatingGetter); ok {
		return cg.GetForSet(inst, left, right, opts)
	}

	return c.adapter().Get(inst, left, nil, opts)
}

// MapDefinition is a convenience constructor for rule sets converting
// plain map[string]any to map[string]any.
func MapDefinition(name string, rules ...RawRule) *Definition {
	return &Definition{
		Name:  name,
		From:  Types(map[string]any{}),
		To:    Types(map[string]any{}),
		Rules: rules,
	}
}

// CompoundConverter chains converters: the output of each feeds the
// next. Each element may be any supported converter form (function,
// *Definition, registry name).
func CompoundConverter(converters ...any) func(v any, c *Converter) (any, error) {
	return func(v any, c *Converter) (any, error) {
		result := v

		for _, conv := range converters {
			rc, err := c.resolveConverter(conv, "compound")
			if err != nil {
				return nil, err
			}

			result, err = rc.call(c, result, Omit, "", Omit)
			if err != nil {
				return nil, err
			}
		}

		return result, nil
	}
}
