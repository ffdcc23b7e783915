// Package malcolm holds the values exchanged with a Malcolm device besides
// scan-point generators: tables, ordered maps, configure parameters and
// the names of the standard attributes.
package malcolm

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

var (
	// ErrColumnLength is returned when a column's row count differs from
	// the table's.
	ErrColumnLength = errors.New("malcolm: column length mismatch")
	// ErrNoSuchColumn is returned for a column the table does not have.
	ErrNoSuchColumn = errors.New("malcolm: no such column")
)

// Table is a column-oriented table. Each column is a Go slice of one
// element type; columns keep the order they were added in and all have
// the same number of rows.
type Table struct {
	names   []string
	columns map[string]reflect.Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{columns: map[string]reflect.Value{}}
}

// AddColumn appends a column holding a copy of values, which must be a
// slice. Adding an existing name replaces that column in place.
func (t *Table) AddColumn(name string, values any) error {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return fmt.Errorf("malcolm: column %q is %T, not a slice", name, values)
	}
	_, replacing := t.columns[name]
	if n := len(t.names); n > 0 && !(replacing && n == 1) && rv.Len() != t.NumRows() {
		return fmt.Errorf("%w: column %q has %d rows, table has %d", ErrColumnLength, name, rv.Len(), t.NumRows())
	}
	cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(cp, rv)
	if !replacing {
		t.names = append(t.names, name)
	}
	t.columns[name] = cp
	return nil
}

// AddRow appends one value to every column, in column order. Each value
// must be assignable to its column's element type.
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.names) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", ErrColumnLength, len(values), len(t.names))
	}
	grown := make([]reflect.Value, len(t.names))
	for i, name := range t.names {
		col := t.columns[name]
		v := reflect.ValueOf(values[i])
		if !v.IsValid() || !v.Type().AssignableTo(col.Type().Elem()) {
			return fmt.Errorf("malcolm: column %q holds %s, got %T", name, col.Type().Elem(), values[i])
		}
		grown[i] = reflect.Append(col, v)
	}
	for i, name := range t.names {
		t.columns[name] = grown[i]
	}
	return nil
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string { return slices.Clone(t.names) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.names) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.names) == 0 {
		return 0
	}
	return t.columns[t.names[0]].Len()
}

// Column returns the values of the named column, or nil. Callers must not
// modify the returned slice.
func (t *Table) Column(name string) any {
	col, ok := t.columns[name]
	if !ok {
		return nil
	}
	return col.Interface()
}

// Column returns the named column as a []T.
func Column[T any](t *Table, name string) ([]T, error) {
	col, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchColumn, name)
	}
	values, ok := col.Interface().([]T)
	if !ok {
		return nil, fmt.Errorf("malcolm: column %q is %s, not []%T", name, col.Type(), *new(T))
	}
	return values, nil
}

// Equal reports whether t and o have the same columns, in the same order,
// with equal values.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !slices.Equal(t.names, o.names) {
		return false
	}
	for _, name := range t.names {
		if !reflect.DeepEqual(t.columns[name].Interface(), o.columns[name].Interface()) {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	return fmt.Sprintf("Table%v(%d rows)", t.names, t.NumRows())
}
