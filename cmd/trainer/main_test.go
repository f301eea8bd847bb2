package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentscore/internal/data"
	"studentscore/internal/features"
	"studentscore/internal/models"
	"studentscore/internal/predict"
)

func TestCurveSizes(t *testing.T) {
	sizes := curveSizes(800, 5, 50)
	require.NotEmpty(t, sizes)
	assert.Equal(t, 50, sizes[0])
	assert.Equal(t, 800, sizes[len(sizes)-1])
	for i := 1; i < len(sizes); i++ {
		assert.Greater(t, sizes[i], sizes[i-1])
	}

	assert.Equal(t, []int{12}, curveSizes(12, 1, 100))
}

func TestEvaluateAndCurveOutputs(t *testing.T) {
	train, test := predict.Split(data.SyntheticStudents(400, 3), 0.75)
	p, err := predict.Fit(train, features.DefaultSchema, data.ColMathScore, models.NewLinearRegression())
	require.NoError(t, err)

	m, err := evaluate(p, test)
	require.NoError(t, err)
	assert.Greater(t, m.R2, 0.5)

	dir := t.TempDir()
	points := []curvePoint{{Size: 100, Train: m, Test: m}, {Size: 300, Train: m, Test: m}}
	csvPath := filepath.Join(dir, "curve", "lc.csv")
	require.NoError(t, writeCurveCSV(csvPath, points))
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "size,train_r2,test_r2"))

	pngPath := filepath.Join(dir, "lc.png")
	require.NoError(t, plotCurvePNG(pngPath, p.ModelName(), points))
	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
