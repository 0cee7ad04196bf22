package tabular

import (
	"fmt"
	"io"
	"strings"

	"graphconvert/convert"
)

// Adapter reads rule source values out of frames. Rule options it
// understands (via the open option map):
//
//   - "groupby": group the frame by the named column (empty string
//     groups per row) and resolve to the list of sub-frames, which a
//     nested rule set then converts element-wise.
//   - "pass_through_column": resolve to the whole column as a list
//     instead of requiring a single unique value.
//
// Without either, a column resolves to its single unique value across
// the frame's rows, and multiple distinct values are an error.
type Adapter struct{}

// Get implements convert.Getter over *Frame sources.
func (Adapter) Get(source any, path string, dflt any, opts *Options) (any, error) {
	f, ok := source.(*Frame)
	if !ok {
		return convert.DefaultAdapter{}.Get(source, path, dflt, opts)
	}

	if opts != nil {
		if groupCol, grouped := opts.Extra["groupby"]; grouped {
			col, ok := groupCol.(string)
			if !ok {
				return nil, fmt.Errorf("groupby option must be a column name, got %T", groupCol)
			}

			groups := f.GroupBy(col)
			out := make([]any, len(groups))
			for i, g := range groups {
				out[i] = g
			}

			return out, nil
		}
	}

	if path == "self" {
		return f, nil
	}

	if !f.Has(path) {
		return nil, nil
	}

	if opts.ExtraBool("pass_through_column", false) {
		return f.Column(path), nil
	}

	return f.UniqueValue(path)
}

// Set implements convert.Setter; destinations are plain maps.
func (Adapter) Set(inst any, path string, val any, _ *Options) error {
	return convert.SetAttr(inst, path, val)
}

// ValueIsCollection excludes frames themselves from collection
// mapping: a frame passes to its converter whole.
func (Adapter) ValueIsCollection(v any) bool {
	if _, ok := v.(*Frame); ok {
		return false
	}

	return convert.IsCollection(v)
}

// Options aliases the engine option record for the adapter signatures.
type Options = convert.Options

// FrameDefinition builds a rule set converting one frame (usually one
// row group) to a map.
func FrameDefinition(name string, rules ...convert.RawRule) *convert.Definition {
	return &convert.Definition{
		Name:    name,
		From:    convert.Types(&Frame{}),
		To:      convert.Types(map[string]any{}),
		Adapter: Adapter{},
		Rules:   rules,
	}
}

// ConvertCSV reads CSV, groups rows by groupBy (each row alone when
// empty) and converts every group through the definition.
func ConvertCSV(def *convert.Definition, csv string, groupBy string) ([]any, error) {
	f, err := ReadCSV(strings.NewReader(csv))
	if err != nil {
		return nil, err
	}

	return ConvertFrame(def, f, groupBy)
}

// ConvertCSVReader is ConvertCSV over an io.Reader.
func ConvertCSVReader(def *convert.Definition, r io.Reader, groupBy string) ([]any, error) {
	f, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}

	return ConvertFrame(def, f, groupBy)
}

// ConvertFrame converts every groupBy group of the frame.
func ConvertFrame(def *convert.Definition, f *Frame, groupBy string) ([]any, error) {
	groups := f.GroupBy(groupBy)

	out := make([]any, 0, len(groups))

	for _, g := range groups {
		converted, err := def.Convert(g)
		if err != nil {
			return nil, err
		}

		if convert.IsOmit(converted) {
			continue
		}

		out = append(out, converted)
	}

	return out, nil
}
