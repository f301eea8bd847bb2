package predict

import (
	"fmt"
	"strconv"
	"strings"

	"studentscore/internal/data"
	"studentscore/internal/features"
	"studentscore/internal/models"
)

// Fit trains a preprocessor for schema and then m on the encoded rows of t,
// using target as the label column.
func Fit(t *data.Table, schema features.Schema, target string, m models.Regressor) (*Pipeline, error) {
	y, err := Targets(t, target)
	if err != nil {
		return nil, err
	}
	pre := features.NewPreprocessor(schema)
	if err := pre.Fit(t); err != nil {
		return nil, fmt.Errorf("fit preprocessor: %w", err)
	}
	X, err := pre.Transform(t)
	if err != nil {
		return nil, fmt.Errorf("transform training set: %w", err)
	}
	if err := m.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit %s: %w", m.Name(), err)
	}
	p := New(pre, m)
	p.ModelWidth = pre.NumFeatures()
	return p, nil
}

// Targets parses the label column of t.
func Targets(t *data.Table, target string) ([]float64, error) {
	raw, ok := t.Column(target)
	if !ok {
		return nil, fmt.Errorf("target column %q not found", target)
	}
	y := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: target %q: %w", i+1, s, err)
		}
		y[i] = v
	}
	return y, nil
}

// Split returns the first frac of rows and the remainder. Row slices are
// shared with t.
func Split(t *data.Table, frac float64) (*data.Table, *data.Table) {
	cut := int(frac * float64(t.Len()))
	head := &data.Table{Columns: append([]string(nil), t.Columns...), Rows: t.Rows[:cut:cut]}
	tail := &data.Table{Columns: append([]string(nil), t.Columns...), Rows: t.Rows[cut:]}
	return head, tail
}
