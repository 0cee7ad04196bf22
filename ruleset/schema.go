package ruleset

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"graphconvert/convert"
)

// File represents the root of a YAML rule-set file.
type File struct {
	// Version of the rule-set schema (for future compatibility).
	Version string `yaml:"version,omitempty"`

	// Converters maps converter names to their declarations.
	Converters map[string]*ConverterDecl `yaml:"converters"`
}

// ConverterDecl declares one named converter.
type ConverterDecl struct {
	// Options configure whole-converter behaviour.
	Options OptionsDecl `yaml:"options,omitempty"`

	// AbsentDefault is the default applied to two-element rules whose
	// source is NotOnSource.
	AbsentDefault any `yaml:"absent_default,omitempty"`

	// Rules is the rule list in shorthand or full form.
	Rules []RuleDecl `yaml:"rules"`
}

// OptionsDecl is the YAML spelling of converter-level options. The
// include flags carry the declarative polarity ("include nils: no");
// they invert onto the engine's drop flags, whose zero value means
// include.
type OptionsDecl struct {
	IncludeNils         *bool `yaml:"include_nils,omitempty"`
	IncludeEmptyStrings *bool `yaml:"include_empty_strings,omitempty"`
	ConvertNilsToBlanks bool  `yaml:"convert_nils_to_blanks,omitempty"`
	PassAttrsToInit     bool  `yaml:"pass_attrs_to_init,omitempty"`
	MergeAll            bool  `yaml:"merge_all,omitempty"`
	CopyOnly            bool  `yaml:"copy_only,omitempty"`
}

func (o OptionsDecl) toConverterOptions() convert.ConverterOptions {
	return convert.ConverterOptions{
		DropNils:            o.IncludeNils != nil && !*o.IncludeNils,
		DropEmptyStrings:    o.IncludeEmptyStrings != nil && !*o.IncludeEmptyStrings,
		ConvertNilsToBlanks: o.ConvertNilsToBlanks,
		PassAttrsToInit:     o.PassAttrsToInit,
		MergeAll:            o.MergeAll,
		CopyOnly:            o.CopyOnly,
	}
}

// RuleDecl is one rule in any of the accepted YAML forms. It decodes
// into the engine's raw rule representation, so normalization and
// validation happen in one place.
type RuleDecl struct {
	raw convert.RawRule
}

// Raw returns the engine-level raw rule.
func (r RuleDecl) Raw() convert.RawRule { return r.raw }

// ruleMapping is the full mapping form of a rule.
type ruleMapping struct {
	Dst       string         `yaml:"dst"`
	Src       string         `yaml:"src,omitempty"`
	Converter string         `yaml:"converter,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
}

// UnmarshalYAML implements custom YAML unmarshaling for RuleDecl.
// Accepts a scalar (bare copy), a sequence (rename shorthand), or a
// mapping (full form).
func (r *RuleDecl) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		if err := node.Decode(&str); err != nil {
			return err
		}

		if str == "" {
			return fmt.Errorf("line %d: empty rule name", node.Line)
		}

		r.raw = str

		return nil

	case yaml.SequenceNode:
		var arr []any

		if err := node.Decode(&arr); err != nil {
			return err
		}

		r.raw = arr

		return nil

	case yaml.MappingNode:
		var m ruleMapping

		if err := node.Decode(&m); err != nil {
			return err
		}

		if m.Dst == "" {
			return fmt.Errorf("line %d: rule mapping requires dst", node.Line)
		}

		src := m.Src
		if src == "" {
			src = m.Dst
		}

		opts := make(map[string]any, len(m.Options)+1)
		for k, v := range m.Options {
			opts[k] = v
		}

		if m.Converter != "" {
			opts["converter"] = m.Converter
		}

		if len(opts) == 0 {
			r.raw = []any{m.Dst, src}
			return nil
		}

		r.raw = []any{m.Dst, src, opts}

		return nil
	}

	return fmt.Errorf("line %d: expected rule scalar, sequence or mapping, got %v",
		node.Line, node.Kind)
}

// MarshalYAML implements custom YAML marshaling for RuleDecl, emitting
// the shortest form that round-trips.
func (r RuleDecl) MarshalYAML() (any, error) {
	switch v := r.raw.(type) {
	case string:
		return v, nil
	case []any:
		if len(v) == 3 {
			opts, ok := v[2].(map[string]any)
			if ok {
				m := ruleMapping{Dst: v[0].(string), Options: opts}
				if s, ok := v[1].(string); ok && s != m.Dst {
					m.Src = s
				}

				return m, nil
			}
		}

		return v, nil
	}

	return nil, fmt.Errorf("rule %#v is not representable in YAML", r.raw)
}
