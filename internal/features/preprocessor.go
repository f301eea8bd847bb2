package features

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"

	"studentscore/internal/data"
)

var ErrNotFitted = errors.New("preprocessor is not fitted")

// NumericColumn imputes blanks with the training median, then standardises.
type NumericColumn struct {
	Name   string
	Median float64
	Mean   float64
	Scale  float64
}

// CategoricalColumn imputes blanks with the training mode and one-hot encodes
// against the known categories. Each indicator is divided by its training
// standard deviation; categories never seen in training encode as zeros.
type CategoricalColumn struct {
	Name       string
	Categories []string
	Mode       string
	Scales     []float64
}

// Preprocessor turns a table into a dense feature matrix. Numeric features
// come first, then the one-hot blocks in column order.
type Preprocessor struct {
	Numeric     []NumericColumn
	Categorical []CategoricalColumn
}

func NewPreprocessor(s Schema) *Preprocessor {
	p := &Preprocessor{}
	for _, c := range s.Numeric {
		p.Numeric = append(p.Numeric, NumericColumn{Name: c})
	}
	for _, c := range s.Categorical {
		p.Categorical = append(p.Categorical, CategoricalColumn{Name: c})
	}
	return p
}

func (p *Preprocessor) Schema() Schema {
	s := Schema{}
	for _, c := range p.Categorical {
		s.Categorical = append(s.Categorical, c.Name)
	}
	for _, c := range p.Numeric {
		s.Numeric = append(s.Numeric, c.Name)
	}
	return s
}

func (p *Preprocessor) Fitted() bool {
	for _, c := range p.Numeric {
		if c.Scale == 0 {
			return false
		}
	}
	for _, c := range p.Categorical {
		if len(c.Categories) == 0 {
			return false
		}
	}
	return len(p.Numeric)+len(p.Categorical) > 0
}

// NumFeatures is the width of Transform's output.
func (p *Preprocessor) NumFeatures() int {
	n := len(p.Numeric)
	for _, c := range p.Categorical {
		n += len(c.Categories)
	}
	return n
}

func (p *Preprocessor) FeatureNames() []string {
	names := make([]string, 0, p.NumFeatures())
	for _, c := range p.Numeric {
		names = append(names, c.Name)
	}
	for _, c := range p.Categorical {
		for _, cat := range c.Categories {
			names = append(names, c.Name+"_"+cat)
		}
	}
	return names
}

// Fit learns imputation values, categories and scales from t.
func (p *Preprocessor) Fit(t *data.Table) error {
	if err := p.Schema().Validate(t, false); err != nil {
		return err
	}
	if t.Len() == 0 {
		return errors.New("fit: empty table")
	}
	for i := range p.Numeric {
		nc := &p.Numeric[i]
		raw, _ := t.Column(nc.Name)
		vals := make([]float64, 0, len(raw))
		var errs error
		for r, s := range raw {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				errs = multierr.Append(errs, &CellError{Row: r + 1, Column: nc.Name, Value: s})
				continue
			}
			vals = append(vals, v)
		}
		if errs != nil {
			return &SchemaError{Cells: errs}
		}
		if len(vals) == 0 {
			return fmt.Errorf("fit: column %q has no values", nc.Name)
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		nc.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		for n := len(vals); n < len(raw); n++ {
			vals = append(vals, nc.Median)
		}
		mean, variance := stat.PopMeanVariance(vals, nil)
		nc.Mean = mean
		nc.Scale = safeScale(math.Sqrt(variance))
	}
	for i := range p.Categorical {
		cc := &p.Categorical[i]
		raw, _ := t.Column(cc.Name)
		counts := map[string]int{}
		for _, s := range raw {
			if s = strings.TrimSpace(s); s != "" {
				counts[s]++
			}
		}
		if len(counts) == 0 {
			return fmt.Errorf("fit: column %q has no values", cc.Name)
		}
		cc.Categories = cc.Categories[:0]
		for k := range counts {
			cc.Categories = append(cc.Categories, k)
		}
		sort.Strings(cc.Categories)
		cc.Mode = cc.Categories[0]
		for _, k := range cc.Categories {
			if counts[k] > counts[cc.Mode] {
				cc.Mode = k
			}
		}
		n := float64(t.Len())
		cc.Scales = make([]float64, len(cc.Categories))
		for j, k := range cc.Categories {
			c := float64(counts[k])
			if k == cc.Mode {
				c += n - float64(sumCounts(counts))
			}
			q := c / n
			cc.Scales[j] = safeScale(math.Sqrt(q * (1 - q)))
		}
	}
	return nil
}

// Transform encodes every row of t. Columns outside the schema are ignored.
// Missing columns and unparseable numeric cells are reported as *SchemaError.
func (p *Preprocessor) Transform(t *data.Table) ([][]float64, error) {
	if !p.Fitted() {
		return nil, ErrNotFitted
	}
	if err := p.Schema().Validate(t, false); err != nil {
		return nil, err
	}
	numIdx := make([]int, len(p.Numeric))
	for i, c := range p.Numeric {
		numIdx[i] = t.ColumnIndex(c.Name)
	}
	catIdx := make([]int, len(p.Categorical))
	lookup := make([]map[string]int, len(p.Categorical))
	for i, c := range p.Categorical {
		catIdx[i] = t.ColumnIndex(c.Name)
		lookup[i] = make(map[string]int, len(c.Categories))
		for j, cat := range c.Categories {
			lookup[i][cat] = j
		}
	}

	width := p.NumFeatures()
	X := make([][]float64, t.Len())
	var cellErrs error
	nCellErrs := 0
	for r, row := range t.Rows {
		x := make([]float64, width)
		k := 0
		for i, c := range p.Numeric {
			s := strings.TrimSpace(row[numIdx[i]])
			v := c.Median
			if s != "" {
				parsed, err := strconv.ParseFloat(s, 64)
				if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
					if nCellErrs < maxCellErrors {
						cellErrs = multierr.Append(cellErrs, &CellError{Row: r + 1, Column: c.Name, Value: s})
					}
					nCellErrs++
				}
				v = parsed
			}
			x[k] = (v - c.Mean) / c.Scale
			k++
		}
		for i, c := range p.Categorical {
			s := strings.TrimSpace(row[catIdx[i]])
			if s == "" {
				s = c.Mode
			}
			if j, ok := lookup[i][s]; ok {
				x[k+j] = 1 / c.Scales[j]
			}
			k += len(c.Categories)
		}
		X[r] = x
	}
	if cellErrs != nil {
		return nil, &SchemaError{Cells: cellErrs}
	}
	return X, nil
}

func (p *Preprocessor) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(p)
}

func LoadPreprocessor(r io.Reader) (*Preprocessor, error) {
	var p Preprocessor
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preprocessor: %w", err)
	}
	if !p.Fitted() {
		return nil, ErrNotFitted
	}
	return &p, nil
}

func sumCounts(m map[string]int) int {
	s := 0
	for _, c := range m {
		s += c
	}
	return s
}

func safeScale(s float64) float64 {
	if s == 0 || math.IsNaN(s) {
		return 1
	}
	return s
}
