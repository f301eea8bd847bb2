package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrEmptyCSV        = errors.New("csv has no header row")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrLengthMismatch  = errors.New("column length does not match row count")
)

// Table is an ordered set of rows sharing named columns. Cells are kept as the
// raw strings read from the source so that display round-trips the input.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV parses a header row followed by data rows. Every data row must have
// as many fields as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, h)
		}
		seen[h] = struct{}{}
		cols[i] = h
	}
	t := &Table{Columns: cols, Rows: [][]string{}}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteCSV writes the header and all rows.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// AppendColumn adds a column in place.
func (t *Table) AppendColumn(name string, values []string) error {
	if t.ColumnIndex(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %d values for %d rows", ErrLengthMismatch, len(values), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// AppendFloatColumn formats values with full precision and appends them.
func (t *Table) AppendFloatColumn(name string, values []float64) error {
	return t.AppendColumn(name, formatFloats(values))
}

// SetColumn replaces the named column in place, or appends it when absent.
func (t *Table) SetColumn(name string, values []string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return t.AppendColumn(name, values)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %d values for %d rows", ErrLengthMismatch, len(values), len(t.Rows))
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// SetFloatColumn is SetColumn for float values.
func (t *Table) SetFloatColumn(name string, values []float64) error {
	return t.SetColumn(name, formatFloats(values))
}

func formatFloats(values []float64) []string {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return cells
}

// Records converts the table to one map per row. Cells that parse as numbers
// are returned as float64.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			rec[c] = Cell(row[j])
		}
		out[i] = rec
	}
	return out
}

// Cell returns v as a float64 when it is numeric, otherwise the string itself.
func Cell(v string) any {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return f
}
