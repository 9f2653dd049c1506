package table

import (
	"github.com/gear6io/wwi-etl/pkg/errors"
)

var (
	TableColumnLengthMismatch = errors.MustNewCode("table.column_length_mismatch")
	TableDuplicateColumn      = errors.MustNewCode("table.duplicate_column")
)

// Frame is an ordered set of equal-length columns. Frames are treated as
// immutable: every operation returns a new Frame and columns are shared.
type Frame struct {
	Name    string
	columns []*Column
	index   map[string]int
	rows    int
}

// NewFrame validates that columns have equal length and unique names
func NewFrame(name string, rows int, columns ...*Column) (*Frame, error) {
	f := &Frame{Name: name, rows: rows, index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if c.Len() != rows {
			return nil, errors.Newf(TableColumnLengthMismatch, "column %q has %d rows, frame has %d", c.Name, c.Len(), rows).
				AddContext("table", name)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.Newf(TableDuplicateColumn, "duplicate column %q", c.Name).AddContext("table", name)
		}
		f.index[c.Name] = len(f.columns)
		f.columns = append(f.columns, c)
	}
	return f, nil
}

func (f *Frame) Rows() int {
	return f.rows
}

func (f *Frame) NumColumns() int {
	return len(f.columns)
}

// Columns returns the columns in order. The slice is a copy.
func (f *Frame) Columns() []*Column {
	return append([]*Column(nil), f.columns...)
}

func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	kept := make([]*Column, 0, len(f.columns))
	for _, c := range f.columns {
		if _, ok := skip[c.Name]; !ok {
			kept = append(kept, c)
		}
	}
	return f.with(kept)
}

// Replace swaps the column with the same name as c, keeping its position.
// A column with a new name is appended.
func (f *Frame) Replace(c *Column) (*Frame, error) {
	cols := f.Columns()
	if i, ok := f.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return NewFrame(f.Name, f.rows, cols...)
}

// WithColumns builds a frame with the same name and row count
func (f *Frame) WithColumns(cols []*Column) (*Frame, error) {
	return NewFrame(f.Name, f.rows, cols...)
}

func (f *Frame) with(cols []*Column) *Frame {
	out := &Frame{Name: f.Name, rows: f.rows, columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		out.index[c.Name] = i
	}
	return out
}
