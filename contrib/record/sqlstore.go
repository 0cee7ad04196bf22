package record

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// SQLStore implements Store over database/sql. Table and column names
// come from conversion rules written by the integrating developer, not
// from converted data; they are interpolated as identifiers.
type SQLStore struct {
	DB *sql.DB

	// IDColumn is the primary key column, "id" when empty.
	IDColumn string
}

var _ Store = (*SQLStore)(nil)
var _ FieldLister = (*SQLStore)(nil)

func (s *SQLStore) idColumn() string {
	if s.IDColumn != "" {
		return s.IDColumn
	}

	return "id"
}

// Create implements Store.
func (s *SQLStore) Create(table string, fields map[string]any) (int64, error) {
	cols := sortedKeys(fields)

	if len(cols) == 0 {
		res, err := s.DB.Exec(fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table))
		if err != nil {
			return 0, err
		}

		return res.LastInsertId()
	}

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = "?"
		args[i] = fields[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	res, err := s.DB.Exec(query, args...)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// Save implements Store.
func (s *SQLStore) Save(table string, id int64, fields map[string]any) error {
	cols := sortedKeys(fields)
	if len(cols) == 0 {
		return nil
	}

	assignments := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		assignments[i] = col + " = ?"
		args = append(args, fields[col])
	}

	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		table, strings.Join(assignments, ", "), s.idColumn())

	_, err := s.DB.Exec(query, args...)

	return err
}

// ListRelated implements Store.
func (s *SQLStore) ListRelated(table, fkColumn string, id int64) ([]*Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s",
		table, fkColumn, s.idColumn())

	rows, err := s.DB.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []*Row

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		r := NewRow(table)
		for i, col := range cols {
			if col == s.idColumn() {
				if id, ok := vals[i].(int64); ok {
					r.ID = id
					continue
				}
			}

			r.Set(col, vals[i])
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

// ListFields implements FieldLister: the table's columns in
// declaration order, identifier excluded.
func (s *SQLStore) ListFields(table string) ([]string, error) {
	rows, err := s.DB.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(cols))
	for _, col := range cols {
		if col == s.idColumn() {
			continue
		}

		fields = append(fields, col)
	}

	return fields, rows.Err()
}

// SetRelation implements Store.
func (s *SQLStore) SetRelation(table string, id int64, fkColumn string, parentID int64) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		table, fkColumn, s.idColumn())

	_, err := s.DB.Exec(query, parentID, id)

	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
