package ml

import "fmt"

// Frame is a small row-major table. Cells hold decoded JSON scalars:
// float64, string, bool or nil.
type Frame struct {
	Columns []string
	Rows    [][]any
}

func NewFrame(columns []string) *Frame {
	return &Frame{Columns: append([]string(nil), columns...)}
}

// Append adds a row; it must have one cell per column.
func (f *Frame) Append(row []any) error {
	if len(row) != len(f.Columns) {
		return fmt.Errorf("%w: row has %d cells, frame has %d columns", ErrShapeMismatch, len(row), len(f.Columns))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// HasColumns reports whether the frame's columns equal columns, in order.
func (f *Frame) HasColumns(columns []string) bool {
	if len(f.Columns) != len(columns) {
		return false
	}
	for i := range columns {
		if f.Columns[i] != columns[i] {
			return false
		}
	}
	return true
}
