package models

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"studentscore/pkg/utils"
)

// linearData draws y = 3 + 2*x0 - x1 with a little noise.
func linearData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		x0, x1 := rng.Float64()*10, rng.Float64()*10
		X[i] = []float64{x0, x1}
		y[i] = 3 + 2*x0 - x1 + rng.NormFloat64()*0.1
	}
	return X, y
}

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	X, y := linearData(400, 1)
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.InDelta(t, 2, lr.Coef[0], 0.02)
	assert.InDelta(t, -1, lr.Coef[1], 0.02)
	assert.InDelta(t, 3, lr.Intercept, 0.1)
}

func TestLinearRegressionHandlesCollinearColumns(t *testing.T) {
	X := [][]float64{{1, 0}, {0, 1}, {1, 0}, {0, 1}}
	y := []float64{10, 20, 10, 20}
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	pred := lr.Predict(X)
	assert.InDelta(t, 10, pred[0], 0.01)
	assert.InDelta(t, 20, pred[1], 0.01)
}

func TestEveryAlgorithmLearnsSignal(t *testing.T) {
	X, y := linearData(300, 2)
	Xt, yt := linearData(100, 3)
	for _, algo := range []string{"lr", "dt", "rf", "bagging", "gb"} {
		t.Run(algo, func(t *testing.T) {
			m, err := New(algo, Options{Estimators: 20})
			require.NoError(t, err)
			require.NoError(t, m.Fit(X, y))

			pred := m.Predict(Xt)
			require.Len(t, pred, len(Xt))
			assert.Greater(t, Evaluate(yt, pred).R2, 0.8, m.Name())
		})
	}
}

func TestFitRejectsEmptyInput(t *testing.T) {
	for _, algo := range []string{"lr", "dt", "rf", "bagging", "gb", "lgbm"} {
		m, err := New(algo, Options{})
		require.NoError(t, err)
		assert.Error(t, m.Fit(nil, nil), algo)
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	_, err := New("svm", Options{})
	assert.Error(t, err)
}

func TestSaveLoadPredictsIdentically(t *testing.T) {
	X, y := linearData(200, 4)
	for _, algo := range []string{"lr", "rf", "gb"} {
		t.Run(algo, func(t *testing.T) {
			m, err := New(algo, Options{Estimators: 5})
			require.NoError(t, err)
			require.NoError(t, m.Fit(X, y))

			var buf bytes.Buffer
			require.NoError(t, Save(&buf, Artifact{Model: m, Features: 2}))
			loaded, err := Load(&buf)
			require.NoError(t, err)

			assert.Equal(t, 2, loaded.Features)
			assert.Equal(t, m.Name(), loaded.Model.Name())
			assert.Equal(t, m.Predict(X), loaded.Model.Predict(X))
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(bytes.NewBufferString("not a gob stream"))
	assert.Error(t, err)
}

func TestLightGBMWithoutModelReturnsNil(t *testing.T) {
	assert.Nil(t, NewLightGBMCLI().Predict([][]float64{{1, 2}}))
}

func TestLightGBMLogsFailedRun(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	prev := utils.Logger()
	utils.SetLogger(zap.New(core))
	t.Cleanup(func() { utils.SetLogger(prev) })

	lg := NewLightGBMCLI()
	lg.ExecPath = filepath.Join(t.TempDir(), "no-such-lightgbm")
	lg.ModelText = "tree\n"

	assert.Nil(t, lg.Predict([][]float64{{1, 2}}))
	entries := logs.FilterMessage("lightgbm predict failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, lg.ExecPath, fields["exec"])
	assert.Contains(t, fields["error"], "lightgbm")
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]float64{1, 2, 3}, []float64{1, 2, 5})
	assert.InDelta(t, 2.0/3.0, m.MAE, 1e-9)
	assert.InDelta(t, 1.1547, m.RMSE, 1e-4)
	assert.InDelta(t, -1.0, m.R2, 1e-9)
}
