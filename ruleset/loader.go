package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"graphconvert/convert"
)

// LoadFile loads and parses a YAML rule-set file from the given path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule-set file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a File.
func Parse(data []byte) (*File, error) {
	var f File

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rule-set YAML: %w", err)
	}

	applyDefaults(&f)

	return &f, nil
}

func applyDefaults(f *File) {
	if f.Version == "" {
		f.Version = "1"
	}
}

// Marshal serializes a File to YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// WriteFile writes a File to the given path.
func WriteFile(f *File, path string) error {
	data, err := Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal rule set: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rule-set file %s: %w", path, err)
	}

	return nil
}

// Build turns declarations into engine definitions and registers each
// under its declared name, so rules may reference sibling converters by
// name (including recursively). A nil registry uses the process-wide
// default. Every definition is validated eagerly.
func (f *File) Build(reg *convert.Registry) (map[string]*convert.Definition, error) {
	if reg == nil {
		reg = convert.DefaultRegistry()
	}

	defs := make(map[string]*convert.Definition, len(f.Converters))

	for name, decl := range f.Converters {
		rules := make([]convert.RawRule, len(decl.Rules))
		for i, r := range decl.Rules {
			rules[i] = r.Raw()
		}

		defs[name] = &convert.Definition{
			Name:          name,
			To:            convert.Types(map[string]any{}),
			Rules:         rules,
			Options:       decl.Options.toConverterOptions(),
			AbsentDefault: decl.AbsentDefault,
			Registry:      reg,
		}
	}

	// register before validating so cross-references resolve
	for name, d := range defs {
		reg.Register(name, d)
	}

	for name, d := range defs {
		if _, err := d.NormalizedRules(); err != nil {
			return nil, fmt.Errorf("converter %q: %w", name, err)
		}
	}

	return defs, nil
}
