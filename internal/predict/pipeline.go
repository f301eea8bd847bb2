// Package predict loads the preprocessing and model artifacts and applies
// them to tabular batches.
package predict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"studentscore/internal/apperr"
	"studentscore/internal/data"
	"studentscore/internal/features"
	"studentscore/internal/models"
)

const (
	PreprocessorFile = "preprocessor.gob"
	ModelFile        = "model.gob"
)

// Pipeline is read-only after construction and safe for concurrent use.
type Pipeline struct {
	Preprocessor *features.Preprocessor
	Model        models.Regressor
	// ModelWidth is the input width Model was fitted on; zero skips the check.
	ModelWidth int
	Strict     bool
}

func New(p *features.Preprocessor, m models.Regressor) *Pipeline {
	return &Pipeline{Preprocessor: p, Model: m}
}

// Load reads both artifacts from dir. Every failure is an artifact error.
func Load(dir string) (*Pipeline, error) {
	pf, err := os.Open(filepath.Join(dir, PreprocessorFile))
	if err != nil {
		return nil, apperr.Artifact("preprocessor artifact unavailable", err)
	}
	defer pf.Close()
	pre, err := features.LoadPreprocessor(pf)
	if err != nil {
		return nil, apperr.Artifact("preprocessor artifact is corrupt", err)
	}

	mf, err := os.Open(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, apperr.Artifact("model artifact unavailable", err)
	}
	defer mf.Close()
	a, err := models.Load(mf)
	if err != nil {
		return nil, apperr.Artifact("model artifact is corrupt", err)
	}
	p := &Pipeline{Preprocessor: pre, Model: a.Model, ModelWidth: a.Features}
	if err := p.checkWidth(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes both artifacts into dir, creating it if needed.
func (p *Pipeline) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, PreprocessorFile), p.Preprocessor.Save); err != nil {
		return fmt.Errorf("save preprocessor: %w", err)
	}
	if err := writeFile(filepath.Join(dir, ModelFile), func(w io.Writer) error {
		return models.Save(w, models.Artifact{Model: p.Model, Features: p.ModelWidth})
	}); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

func (p *Pipeline) Ready() bool {
	return p != nil && p.Preprocessor != nil && p.Model != nil
}

func (p *Pipeline) ModelName() string {
	if !p.Ready() {
		return ""
	}
	return p.Model.Name()
}

func (p *Pipeline) Schema() features.Schema {
	if !p.Ready() {
		return features.Schema{}
	}
	return p.Preprocessor.Schema()
}

// Predict returns one value per row of t, in row order.
func (p *Pipeline) Predict(ctx context.Context, t *data.Table) ([]float64, error) {
	if !p.Ready() {
		return nil, apperr.Artifact("prediction pipeline is not loaded", nil)
	}
	if err := p.checkWidth(); err != nil {
		return nil, err
	}
	if err := p.Preprocessor.Schema().Validate(t, p.Strict); err != nil {
		return nil, schemaErr(err)
	}
	if t.Len() == 0 {
		return []float64{}, nil
	}
	X, err := p.Preprocessor.Transform(t)
	if err != nil {
		return nil, schemaErr(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := p.Model.Predict(X)
	if len(out) != len(X) {
		return nil, apperr.Artifact("model returned an unexpected number of predictions",
			fmt.Errorf("%s: got %d predictions for %d rows", p.Model.Name(), len(out), len(X)))
	}
	return out, nil
}

// checkWidth rejects a preprocessor and model that disagree on feature count.
func (p *Pipeline) checkWidth() error {
	if p.ModelWidth == 0 || p.ModelWidth == p.Preprocessor.NumFeatures() {
		return nil
	}
	return apperr.Artifact("model and preprocessor artifacts do not match",
		fmt.Errorf("%s expects %d features, preprocessor produces %d", p.Model.Name(), p.ModelWidth, p.Preprocessor.NumFeatures())).
		WithDetails(map[string]any{"model_features": p.ModelWidth, "preprocessor_features": p.Preprocessor.NumFeatures()})
}

func schemaErr(err error) error {
	var se *features.SchemaError
	if errors.As(err, &se) {
		return apperr.Schema("input does not match the model's feature schema", err).WithDetails(se.Details())
	}
	if errors.Is(err, features.ErrNotFitted) {
		return apperr.Artifact("preprocessor artifact is not fitted", err)
	}
	return err
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
