// Package frame is a small column-named table used to move intermediate data
// between the database, files and the plotting helpers.
package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownColumn is returned when a column name is not in the frame.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnsupportedFormat is returned for file extensions Save/Load do not handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// TimeLayouts are tried in order by Times and ParseTime.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Frame stores string cells under ordered column names.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty frame with the given columns.
func New(columns ...string) *Frame {
	f := &Frame{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range f.columns {
		f.index[c] = i
	}
	return f
}

// Append adds a row. Short rows are padded with blanks, extra cells dropped.
func (f *Frame) Append(cells ...string) {
	row := make([]string, len(f.columns))
	copy(row, cells)
	f.rows = append(f.rows, row)
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len is the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Has reports whether the column exists.
func (f *Frame) Has(column string) bool {
	_, ok := f.index[column]
	return ok
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []string {
	return append([]string(nil), f.rows[i]...)
}

// Value returns the cell at row i, or "" if the column is absent.
func (f *Frame) Value(i int, column string) string {
	j, ok := f.index[column]
	if !ok {
		return ""
	}
	return f.rows[i][j]
}

// Strings returns a column's raw cells.
func (f *Frame) Strings(column string) ([]string, error) {
	j, ok := f.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Floats parses a column as numbers. Blank and NA-like cells become NaN.
func (f *Frame) Floats(column string) ([]float64, error) {
	cells, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, ok, err := ParseFloat(c)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", column, i, err)
		}
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Times parses a column as timestamps using TimeLayouts.
func (f *Frame) Times(column string) ([]time.Time, error) {
	cells, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(cells))
	for i, c := range cells {
		t, err := ParseTime(c)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", column, i, err)
		}
		out[i] = t
	}
	return out, nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := New(f.columns...)
	c.rows = make([][]string, len(f.rows))
	for i, row := range f.rows {
		c.rows[i] = append([]string(nil), row...)
	}
	return c
}

// ParseFloat parses a numeric cell. ok is false for blank or NA-like cells.
func ParseFloat(cell string) (v float64, ok bool, err error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "na", "n/a", "null", "none", "<na>":
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// ParseTime parses a timestamp cell with the first matching layout.
func ParseTime(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", cell)
}

// FormatFloat renders v for storage; NaN becomes an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTime renders t in RFC3339.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
