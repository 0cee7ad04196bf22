package convert

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// GetterFunc is a per-rule getter override. It receives the whole source
// object and the rule's source path, and returns the raw value or Omit.
type GetterFunc func(source any, path string, opts *Options) (any, error)

// SetterFunc is a per-rule setter override.
type SetterFunc func(inst any, path string, val any, opts *Options) error

// Options is the per-rule configuration record. Rules written with the
// dynamic forms carry options as open maps; they are decoded into this
// struct once at normalization time. Unrecognized keys are preserved in
// Extra for adapters (e.g. the markup adapter's "xml_type").
type Options struct {
	// Converter converts the resolved value. It may be a function, a
	// *Definition, or a string naming a method-table or registry entry.
	Converter any `mapstructure:"converter"`

	// ConverterWantsNils passes nil values to the converter instead of
	// short-circuiting them to nil.
	ConverterWantsNils bool `mapstructure:"converter_wants_nils"`

	// Default is used when the source value is missing, nil, or an empty
	// string. It must be a zero-argument function, a number, or a string.
	Default any `mapstructure:"default"`

	// Filter keeps or drops values. Accepts func(v any) bool or
	// func(v, source any) bool.
	Filter any `mapstructure:"filter"`

	// Getter overrides the adapter getter for this rule.
	Getter GetterFunc `mapstructure:"getter"`

	// Setter overrides the adapter setter for this rule. It may be a
	// SetterFunc or a string naming a method-table entry.
	Setter any `mapstructure:"setter"`

	// Map controls collection handling: when true (the default) the
	// converter maps over collection elements; when false the whole
	// collection is passed to the converter once.
	Map *bool `mapstructure:"map"`

	// MaxLen truncates the converted value to this length.
	MaxLen *int `mapstructure:"max_len"`

	// Merge merges the value into the destination's existing attribute
	// instead of overwriting it.
	Merge bool `mapstructure:"merge"`

	// Pluralize wraps non-collection source values in a single-element
	// slice so downstream handling is uniform.
	Pluralize bool `mapstructure:"pluralize"`

	// ReverseAttr sets the owning destination instance on the converted
	// child value under this name, instead of the normal direction.
	ReverseAttr string `mapstructure:"reverse_attr_name"`

	// Required is either a bool or a predicate func(v any) bool. It is
	// checked against the raw pre-default source value.
	Required any `mapstructure:"required"`

	// Sort orders collection values: true compares elements directly, a
	// func(v any) any is used as the sort key.
	Sort any `mapstructure:"sort"`

	// SkipWash bypasses the definition's washers for this rule.
	SkipWash bool `mapstructure:"skip_wash"`

	// PassInstanceToConverter resolves the in-progress destination
	// instance as the raw value, instead of reading the source.
	PassInstanceToConverter bool `mapstructure:"pass_instance_to_converter"`

	// InitializationAttribute forces the rule into (or out of) the
	// initialization phase, overriding the definition-level default.
	InitializationAttribute *bool `mapstructure:"initialization_attribute"`

	// Extra holds unrecognized option keys for adapters.
	Extra map[string]any `mapstructure:",remain"`

	// override is the conversion-call-time value stashed by the extra
	// attribute merge pass. It wins over everything at resolution time.
	override    any
	hasOverride bool
}

// DecodeOptions decodes an open option map into a typed Options record.
func DecodeOptions(m map[string]any) (*Options, error) {
	var opts Options

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &opts,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("invalid rule options: %w", err)
	}

	return &opts, nil
}

// MapEnabled reports whether collection mapping is active (default true).
func (o *Options) MapEnabled() bool {
	return o.Map == nil || *o.Map
}

// ExtraBool reads a boolean adapter option from Extra.
func (o *Options) ExtraBool(key string, dflt bool) bool {
	if o == nil || o.Extra == nil {
		return dflt
	}

	if v, ok := o.Extra[key].(bool); ok {
		return v
	}

	return dflt
}

// ExtraString reads a string adapter option from Extra.
func (o *Options) ExtraString(key string) string {
	if o == nil || o.Extra == nil {
		return ""
	}

	if v, ok := o.Extra[key].(string); ok {
		return v
	}

	return ""
}

// SetExtra stores an adapter option, initializing Extra if needed.
func (o *Options) SetExtra(key string, v any) {
	if o.Extra == nil {
		o.Extra = make(map[string]any)
	}

	o.Extra[key] = v
}

// ConverterOptions configure the behaviour of a whole definition.
// Adapters may add further options through Extra.
type ConverterOptions struct {
	// ConvertNilsToBlanks converts nil values to empty strings.
	ConvertNilsToBlanks bool `mapstructure:"convert_nils_to_blanks"`

	// DropNils drops nil values instead of copying them.
	DropNils bool `mapstructure:"drop_nils"`

	// DropEmptyStrings drops empty-string values instead of copying them.
	DropEmptyStrings bool `mapstructure:"drop_empty_strings"`

	// PassAttrsToInit passes attributes to instantiation instead of
	// setting them after construction.
	PassAttrsToInit bool `mapstructure:"pass_attrs_to_init"`

	// MergeAll applies merge semantics to every rule.
	MergeAll bool `mapstructure:"merge_all"`

	// CopyOnly forbids instantiation; a destination must be supplied.
	CopyOnly bool `mapstructure:"copy_only"`

	// Extra holds adapter-specific definition options.
	Extra map[string]any `mapstructure:",remain"`
}

// MergeConverterOptions overlays an open option map onto a base options
// struct. This is the explicit merge step used instead of implicit
// class-hierarchy scanning: compose definitions by merging maps once at
// definition time.
func MergeConverterOptions(base ConverterOptions, patch map[string]any) (ConverterOptions, error) {
	out := base

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &out,
	})
	if err != nil {
		return out, err
	}

	if err := dec.Decode(patch); err != nil {
		return out, fmt.Errorf("invalid converter options: %w", err)
	}

	return out, nil
}
