// Package table provides the in-memory tabular structure passed between the
// extract, transform and load stages.
//
// A Table is column-oriented: an ordered list of named columns, each holding
// one value per row. Every column has the same length. Values are pgtype
// scalars (Text, Int8, Float8, Date); a value with Valid=false is null.
package table

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Kind is the scalar type shared by all values in a column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindDate
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Value is a single cell. Implementations are pgtype scalars, so a value can
// be handed to database/sql or to pgx without conversion.
type Value = driver.Valuer

// Column is a named sequence of values of one kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	Columns []Column
}

// New returns an empty table with text columns named names.
func New(names ...string) *Table {
	t := &Table{Columns: make([]Column, len(names))}
	for i, n := range names {
		t.Columns[i] = Column{Name: n, Kind: KindText}
	}
	return t
}

// AddColumn appends a column. It fails if the column length does not match
// the rows already present.
func (t *Table) AddColumn(c Column) error {
	if len(t.Columns) > 0 && len(c.Values) != t.NumRows() {
		return fmt.Errorf("column %q has %d values, table has %d rows", c.Name, len(c.Values), t.NumRows())
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// AppendRow appends one value per column.
func (t *Table) AppendRow(values ...Value) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	for i := range t.Columns {
		t.Columns[i].Values = append(t.Columns[i].Values, values[i])
	}
	return nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the first column named name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns the values of row i across all columns.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy. Value slices are copied; the values themselves
// are immutable pgtype structs and are copied by assignment.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.Columns[i] = Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return out
}

// Filter returns a new table holding only the rows for which keep returns
// true. The receiver is left unchanged.
func (t *Table) Filter(keep func(row int) bool) *Table {
	kept := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if keep(i) {
			kept = append(kept, i)
		}
	}

	out := &Table{Columns: make([]Column, len(t.Columns))}
	for j, c := range t.Columns {
		values := make([]Value, len(kept))
		for k, row := range kept {
			values[k] = c.Values[row]
		}
		out.Columns[j] = Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	return out
}

// Validate checks the row-alignment invariant.
func (t *Table) Validate() error {
	rows := t.NumRows()
	for _, c := range t.Columns {
		if len(c.Values) != rows {
			return fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), rows)
		}
	}
	return nil
}

// String renders the table as comma-separated lines, nulls shown as empty.
// Intended for debugging and test failure output.
func (t *Table) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Names(), ","))
	for i := 0; i < t.NumRows(); i++ {
		b.WriteByte('\n')
		for j, c := range t.Columns {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(String(c.Values[i]))
		}
	}
	return b.String()
}
