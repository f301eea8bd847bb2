package features

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"studentscore/internal/data"
)

// maxCellErrors caps how many cell-level problems are reported per request.
const maxCellErrors = 20

// Schema is the feature contract a pipeline artifact expects.
type Schema struct {
	Categorical []string `json:"categorical"`
	Numeric     []string `json:"numeric"`
}

var DefaultSchema = Schema{
	Categorical: data.CategoricalColumns,
	Numeric:     data.NumericColumns,
}

func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.Categorical)+len(s.Numeric))
	out = append(out, s.Categorical...)
	return append(out, s.Numeric...)
}

// Validate checks that every schema column is present in t. With strict set,
// columns outside the schema are rejected too; otherwise they are ignored.
func (s Schema) Validate(t *data.Table, strict bool) error {
	want := make(map[string]struct{}, len(s.Categorical)+len(s.Numeric))
	for _, c := range s.Columns() {
		want[c] = struct{}{}
	}
	se := &SchemaError{}
	for _, c := range s.Columns() {
		if t.ColumnIndex(c) < 0 {
			se.Missing = append(se.Missing, c)
		}
	}
	if strict {
		for _, c := range t.Columns {
			if _, ok := want[c]; !ok {
				se.Unexpected = append(se.Unexpected, c)
			}
		}
	}
	if len(se.Missing) == 0 && len(se.Unexpected) == 0 {
		return nil
	}
	sort.Strings(se.Missing)
	sort.Strings(se.Unexpected)
	return se
}

// SchemaError lists every way a table disagrees with a Schema.
type SchemaError struct {
	Missing    []string
	Unexpected []string
	Cells      error
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	if e.Cells != nil {
		parts = append(parts, "invalid cells: "+e.Cells.Error())
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// Details is the client-facing view of the error.
func (e *SchemaError) Details() map[string]any {
	d := map[string]any{}
	if len(e.Missing) > 0 {
		d["missing"] = e.Missing
	}
	if len(e.Unexpected) > 0 {
		d["unexpected"] = e.Unexpected
	}
	if e.Cells != nil {
		var cells []string
		for _, err := range multierr.Errors(e.Cells) {
			cells = append(cells, err.Error())
		}
		d["cells"] = cells
	}
	return d
}

// CellError locates a value that could not be converted. Row is 1-based over
// data rows.
type CellError struct {
	Row    int
	Column string
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d, column %q: %q is not a number", e.Row, e.Column, e.Value)
}
