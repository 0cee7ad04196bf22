// Package record converts to and from relational rows. Persistence
// stays behind the narrow Store interface: the adapter creates rows
// from initialization attributes, saves after population, resolves
// related rows, and wires up foreign-key relations. The conversion
// rules never see SQL.
package record

import "fmt"

// Row is one record of a table: its column values plus the identifier
// the store assigned on creation. A zero ID means not yet persisted.
type Row struct {
	Table  string
	ID     int64
	Fields map[string]any
}

// NewRow creates an unsaved row for a table.
func NewRow(table string) *Row {
	return &Row{Table: table, Fields: map[string]any{}}
}

// Get returns a column value.
func (r *Row) Get(column string) (any, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Set assigns a column value.
func (r *Row) Set(column string, v any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}

	r.Fields[column] = v
}

func (r *Row) String() string {
	return fmt.Sprintf("%s#%d", r.Table, r.ID)
}

// Store is the persistence seam the adapter drives. Four verbs cover
// the conversion lifecycle; anything richer belongs to the caller.
type Store interface {
	// Create inserts a new row and returns its identifier.
	Create(table string, fields map[string]any) (int64, error)

	// Save writes the row's current fields.
	Save(table string, id int64, fields map[string]any) error

	// ListRelated returns the rows of table whose fkColumn references
	// id.
	ListRelated(table, fkColumn string, id int64) ([]*Row, error)

	// SetRelation points the row's fkColumn at parentID.
	SetRelation(table string, id int64, fkColumn string, parentID int64) error
}

// FieldLister is implemented by stores that can report the writable
// columns of a table. The identifier column is not listed: auto-built
// rule sets copy rows, they do not retarget existing ones.
type FieldLister interface {
	ListFields(table string) ([]string, error)
}
