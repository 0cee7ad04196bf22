package record

import (
	"fmt"

	"graphconvert/convert"
)

// Adapter persists conversions through a Store. Rule options it
// understands (via the open option map):
//
//   - "content_field": the value is file-like content; only string and
//     []byte are accepted and stored as bytes.
//   - "relation_fk": the converted value is a related row (or list of
//     rows); instead of a column write, each row's foreign key column
//     is pointed at this row. Combine with
//     "initialization_attribute: false" so the owning row exists first.
//   - "related_table" + "related_fk" (getter side): resolve to the
//     source row's related rows instead of a column.
type Adapter struct {
	Store Store

	// Table is the destination table for instantiated rows.
	Table string

	// SkipSave disables the create-on-instantiate and save-after-populate
	// behaviour; rows are built in memory only.
	SkipSave bool
}

var _ convert.Adapter = (*Adapter)(nil)
var _ convert.Lifecycle = (*Adapter)(nil)

// Get implements convert.Getter over *Row sources.
func (a *Adapter) Get(source any, path string, dflt any, opts *convert.Options) (any, error) {
	row, ok := source.(*Row)
	if !ok {
		return convert.DefaultAdapter{}.Get(source, path, dflt, opts)
	}

	if related := opts.ExtraString("related_table"); related != "" {
		fk := opts.ExtraString("related_fk")
		if fk == "" {
			return nil, fmt.Errorf("related_table %q requires related_fk", related)
		}

		rows, err := a.Store.ListRelated(related, fk, row.ID)
		if err != nil {
			return nil, err
		}

		out := make([]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}

		return out, nil
	}

	if path == "self" {
		return row, nil
	}

	if v, ok := row.Get(path); ok {
		return v, nil
	}

	return dflt, nil
}

// Set implements convert.Setter over *Row destinations.
func (a *Adapter) Set(inst any, path string, val any, opts *convert.Options) error {
	row, ok := inst.(*Row)
	if !ok {
		return convert.SetAttr(inst, path, val)
	}

	if fk := opts.ExtraString("relation_fk"); fk != "" {
		return a.setRelation(row, fk, val)
	}

	if opts.ExtraBool("content_field", false) {
		content, err := contentBytes(path, val)
		if err != nil {
			return err
		}

		row.Set(path, content)

		return nil
	}

	row.Set(path, val)

	return nil
}

func (a *Adapter) setRelation(owner *Row, fk string, val any) error {
	if owner.ID == 0 {
		return fmt.Errorf("cannot relate rows to unsaved %s row", owner.Table)
	}

	children := []any{val}
	if vs, ok := val.([]any); ok {
		children = vs
	}

	for _, child := range children {
		cr, ok := child.(*Row)
		if !ok {
			return fmt.Errorf("relation %q expects rows, got %T", fk, child)
		}

		if err := a.Store.SetRelation(cr.Table, cr.ID, fk, owner.ID); err != nil {
			return err
		}

		cr.Set(fk, owner.ID)
	}

	return nil
}

func contentBytes(column string, val any) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}

	return nil, fmt.Errorf("content field %q accepts string or []byte, got %T", column, val)
}

// ValueIsCollection excludes rows from collection mapping.
func (a *Adapter) ValueIsCollection(v any) bool {
	if _, ok := v.(*Row); ok {
		return false
	}

	return convert.IsCollection(v)
}

// Instantiate builds a fresh row from the initialization attributes and
// creates it in the store. Without a destination table the adapter is
// read-only (rows in, maps out) and builds a plain map instead.
func (a *Adapter) Instantiate(c *convert.Converter, attrs *convert.Attrs) (any, error) {
	if a.Table == "" {
		m := map[string]any{}
		if err := c.ApplyAttrs(m, attrs); err != nil {
			return nil, err
		}

		return m, nil
	}

	row := NewRow(a.Table)

	if err := c.ApplyAttrs(row, attrs); err != nil {
		return nil, err
	}

	if a.SkipSave {
		return row, nil
	}

	id, err := a.Store.Create(row.Table, row.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s row: %w", row.Table, err)
	}

	row.ID = id

	return row, nil
}

// Populate applies population attributes and saves the row.
func (a *Adapter) Populate(c *convert.Converter, inst any, attrs *convert.Attrs) (any, error) {
	row, ok := inst.(*Row)
	if !ok {
		if err := c.ApplyAttrs(inst, attrs); err != nil {
			return nil, err
		}

		return inst, nil
	}

	if err := c.ApplyAttrs(row, attrs); err != nil {
		return nil, err
	}

	if a.SkipSave || row.ID == 0 || attrs.Len() == 0 {
		return row, nil
	}

	if err := a.Store.Save(row.Table, row.ID, row.Fields); err != nil {
		return nil, fmt.Errorf("failed to save %s row: %w", row.Table, err)
	}

	return row, nil
}

// RowDefinition builds a rule set converting sources into persisted
// rows of the given table. Plain attributes feed row creation; relation
// and reverse-attribute rules run after the row exists.
func RowDefinition(name string, store Store, table string, rules ...convert.RawRule) *convert.Definition {
	return &convert.Definition{
		Name:    name,
		To:      convert.Types(&Row{}),
		Adapter: &Adapter{Store: store, Table: table},
		Options: convert.ConverterOptions{PassAttrsToInit: true},
		Rules:   rules,
	}
}

// AutoRowDefinition builds a row rule set like RowDefinition and
// appends a bare copy rule for every table field not already covered by
// an explicit rule. The store must implement FieldLister. The
// identifier column is never copied; relation fields still need
// explicit rules, auto-assigning them over existing rows is rarely what
// is wanted.
func AutoRowDefinition(name string, store Store, table string, rules ...convert.RawRule) (*convert.Definition, error) {
	lister, ok := store.(FieldLister)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list the fields of %q", store, table)
	}

	normalized, err := convert.Normalize(rules)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]bool, len(normalized))
	for _, r := range normalized {
		covered[r.Dst] = true
	}

	fields, err := lister.ListFields(table)
	if err != nil {
		return nil, err
	}

	all := append([]convert.RawRule{}, rules...)
	for _, field := range fields {
		if covered[field] {
			continue
		}

		all = append(all, field)
	}

	return RowDefinition(name, store, table, all...), nil
}
