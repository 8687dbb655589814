package core

import "fmt"

// Column is a named, typed column of a host frame.
type Column struct {
	Name   string
	Type   ValueType
	Values []any
}

// Frame is the host-side tabular representation: ordered columns of
// possibly different value types. A nil entry is a missing value.
type Frame struct {
	Columns []Column
}

// NewFrame creates a frame from columns and validates it.
func NewFrame(columns ...Column) (*Frame, error) {
	f := &Frame{Columns: columns}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NumRows returns the number of rows. A frame without columns has zero rows.
func (f *Frame) NumRows() int {
	if f == nil || len(f.Columns) == 0 {
		return 0
	}
	return len(f.Columns[0].Values)
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// ColumnNames returns the column names in order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the values of row i across all columns.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.Columns))
	for j, c := range f.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// Validate checks that all columns have the same length and that every
// value matches its column's declared type.
func (f *Frame) Validate() error {
	rows := f.NumRows()
	for _, c := range f.Columns {
		if len(c.Values) != rows {
			return fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), rows)
		}
		for i, v := range c.Values {
			if !c.Type.Accepts(v) {
				return fmt.Errorf("column %q row %d: %T is not a %s value", c.Name, i, v, c.Type)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i, c := range f.Columns {
		values := make([]any, len(c.Values))
		copy(values, c.Values)
		out.Columns[i] = Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return out
}
