// Package tabular converts row-oriented tabular data (CSV and friends)
// through rule sets. A Frame is an ordered set of rows sharing columns;
// rules read single-valued columns, whole columns, or grouped sub-frames
// converted by nested rule sets.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Frame is an immutable group of rows over named columns. Cell values
// are strings when read from CSV; converters give them types.
type Frame struct {
	columns []string
	rows    []map[string]any
}

// NewFrame builds a frame from explicit columns and rows.
func NewFrame(columns []string, rows []map[string]any) *Frame {
	return &Frame{columns: columns, rows: rows}
}

// ReadCSV reads a header-prefixed CSV document into a frame. All cell
// values stay strings; downstream converters decide types, so type
// guessing never varies with the data.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []map[string]any

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}

		rows = append(rows, row)
	}

	return &Frame{columns: header, rows: rows}, nil
}

// Columns returns the column names.
func (f *Frame) Columns() []string { return f.columns }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Has reports whether the named column exists.
func (f *Frame) Has(col string) bool {
	for _, c := range f.columns {
		if c == col {
			return true
		}
	}

	return false
}

// Column returns every row's value for the named column, in row order.
func (f *Frame) Column(col string) []any {
	out := make([]any, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[col]
	}

	return out
}

// UniqueValue returns the single value the column holds across all
// rows. Distinct values are an error: the caller grouped wrongly.
func (f *Frame) UniqueValue(col string) (any, error) {
	var (
		val any
		set bool
	)

	for _, row := range f.rows {
		v := row[col]

		if !set {
			val, set = v, true
			continue
		}

		if v != val {
			return nil, fmt.Errorf(
				"unable to determine value from column %q: multiple values exist", col)
		}
	}

	return val, nil
}

// GroupBy partitions rows by the named column's value, groups ordered
// by first appearance. An empty column name yields one group per row.
func (f *Frame) GroupBy(col string) []*Frame {
	if col == "" {
		groups := make([]*Frame, len(f.rows))
		for i, row := range f.rows {
			groups[i] = &Frame{columns: f.columns, rows: []map[string]any{row}}
		}

		return groups
	}

	var order []any

	grouped := map[any][]map[string]any{}

	for _, row := range f.rows {
		key := row[col]
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}

		grouped[key] = append(grouped[key], row)
	}

	groups := make([]*Frame, len(order))
	for i, key := range order {
		groups[i] = &Frame{columns: f.columns, rows: grouped[key]}
	}

	return groups
}

// Int converts a cell value to int, tolerating surrounding whitespace.
func Int(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil, fmt.Errorf("cannot read int from %q", n)
		}

		return i, nil
	}

	return nil, fmt.Errorf("cannot read int from %T", v)
}

// Float converts a cell value to float64, tolerating surrounding
// whitespace.
func Float(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot read float from %q", n)
		}

		return f, nil
	}

	return nil, fmt.Errorf("cannot read float from %T", v)
}
