package predict

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentscore/internal/apperr"
	"studentscore/internal/data"
	"studentscore/internal/features"
	"studentscore/internal/models"
)

func trainedPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := Fit(data.SyntheticStudents(300, 42), features.DefaultSchema, data.ColMathScore, models.NewLinearRegression())
	require.NoError(t, err)
	return p
}

func sampleRecord() data.StudentRecord {
	return data.StudentRecord{
		Gender: "female", RaceEthnicity: "group C", ParentalLevelOfEducation: "bachelor's degree",
		Lunch: "standard", TestPreparationCourse: "completed", ReadingScore: 80, WritingScore: 82,
	}
}

func TestPredictSingleRecord(t *testing.T) {
	p := trainedPipeline(t)

	out, err := p.Predict(context.Background(), sampleRecord().AsTable())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 75, out[0], 25)
}

func TestPredictIsDeterministic(t *testing.T) {
	p := trainedPipeline(t)

	a, err := p.Predict(context.Background(), sampleRecord().AsTable())
	require.NoError(t, err)
	b, err := p.Predict(context.Background(), sampleRecord().AsTable())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictKeepsRowOrder(t *testing.T) {
	p := trainedPipeline(t)
	tbl := data.SyntheticStudents(20, 9)

	all, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)
	require.Len(t, all, 20)

	for _, i := range []int{0, 7, 19} {
		one := &data.Table{Columns: tbl.Columns, Rows: [][]string{tbl.Rows[i]}}
		got, err := p.Predict(context.Background(), one)
		require.NoError(t, err)
		assert.InDelta(t, all[i], got[0], 1e-9)
	}
}

func TestPredictMissingColumnIsSchemaError(t *testing.T) {
	p := trainedPipeline(t)
	tbl := &data.Table{Columns: []string{data.ColGender}, Rows: [][]string{{"male"}}}

	_, err := p.Predict(context.Background(), tbl)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchema, apperr.KindOf(err))

	e, _ := apperr.As(err)
	details, ok := e.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["missing"], data.ColLunch)
}

func TestPredictStrictRejectsExtraColumns(t *testing.T) {
	p := trainedPipeline(t)
	tbl := data.SyntheticStudents(2, 1)

	_, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)

	p.Strict = true
	_, err = p.Predict(context.Background(), tbl)
	assert.Equal(t, apperr.KindSchema, apperr.KindOf(err))
}

func TestPredictEmptyTable(t *testing.T) {
	p := trainedPipeline(t)
	tbl := &data.Table{Columns: features.DefaultSchema.Columns()}

	out, err := p.Predict(context.Background(), tbl)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPredictUnloadedPipeline(t *testing.T) {
	var p *Pipeline
	_, err := p.Predict(context.Background(), sampleRecord().AsTable())
	assert.Equal(t, apperr.KindArtifact, apperr.KindOf(err))
	assert.False(t, p.Ready())
	assert.Empty(t, p.ModelName())
}

func TestPredictShortModelOutputIsArtifactError(t *testing.T) {
	p := trainedPipeline(t)
	p.Model = models.NewLightGBMCLI()

	_, err := p.Predict(context.Background(), sampleRecord().AsTable())
	assert.Equal(t, apperr.KindArtifact, apperr.KindOf(err))
}

func TestPredictCanceledContext(t *testing.T) {
	p := trainedPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Predict(ctx, sampleRecord().AsTable())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := trainedPipeline(t)
	dir := filepath.Join(t.TempDir(), "artifacts")
	require.NoError(t, p.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "LinearRegression", loaded.ModelName())

	want, err := p.Predict(context.Background(), sampleRecord().AsTable())
	require.NoError(t, err)
	got, err := loaded.Predict(context.Background(), sampleRecord().AsTable())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingArtifacts(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Equal(t, apperr.KindArtifact, apperr.KindOf(err))
}

func TestLoadCorruptModel(t *testing.T) {
	p := trainedPipeline(t)
	dir := t.TempDir()
	require.NoError(t, p.Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte("garbage"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindArtifact, e.Kind)
	assert.Equal(t, "model artifact is corrupt", e.Message)
}

func TestLoadMismatchedArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, trainedPipeline(t).Save(dir))

	numericOnly := features.Schema{Numeric: data.NumericColumns}
	other, err := Fit(data.SyntheticStudents(100, 3), numericOnly, data.ColMathScore, models.NewDecisionTree())
	require.NoError(t, err)
	otherDir := t.TempDir()
	require.NoError(t, other.Save(otherDir))
	pre, err := os.ReadFile(filepath.Join(otherDir, PreprocessorFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, PreprocessorFile), pre, 0o644))

	_, err = Load(dir)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindArtifact, e.Kind)
	assert.Equal(t, "model and preprocessor artifacts do not match", e.Message)
}

func TestPredictWidthMismatchIsArtifactError(t *testing.T) {
	p := trainedPipeline(t)
	tree, err := Fit(data.SyntheticStudents(100, 3), features.Schema{Numeric: data.NumericColumns}, data.ColMathScore, models.NewDecisionTree())
	require.NoError(t, err)
	p.Model, p.ModelWidth = tree.Model, tree.ModelWidth

	var out []float64
	require.NotPanics(t, func() {
		out, err = p.Predict(context.Background(), sampleRecord().AsTable())
	})
	assert.Nil(t, out)
	assert.Equal(t, apperr.KindArtifact, apperr.KindOf(err))
}

func TestTargetsRejectsNonNumeric(t *testing.T) {
	tbl := data.SyntheticStudents(3, 1)
	tbl.Rows[2][tbl.ColumnIndex(data.ColMathScore)] = "n/a"

	_, err := Targets(tbl, data.ColMathScore)
	assert.ErrorContains(t, err, "row 3")

	_, err = Targets(tbl, "nope")
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	tbl := data.SyntheticStudents(10, 1)
	head, tail := Split(tbl, 0.8)
	assert.Equal(t, 8, head.Len())
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, tbl.Rows[8], tail.Rows[0])
}
