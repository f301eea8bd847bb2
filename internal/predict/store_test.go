package predict

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentscore/internal/apperr"
)

func TestStoreLoadsLazily(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, false)

	_, err := s.Predict(context.Background(), sampleRecord().AsTable())
	assert.Equal(t, apperr.KindArtifact, apperr.KindOf(err))
	assert.False(t, s.Ready())

	require.NoError(t, trainedPipeline(t).Save(dir))

	out, err := s.Predict(context.Background(), sampleRecord().AsTable())
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.True(t, s.Ready())
	assert.Equal(t, "LinearRegression", s.ModelName())
	assert.NotEmpty(t, s.Schema().Columns())
}

func TestStoreAppliesStrictMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, trainedPipeline(t).Save(dir))
	s := NewStore(dir, true)

	p, err := s.Reload()
	require.NoError(t, err)
	assert.True(t, p.Strict)
}

func TestStoreFailedReloadKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, trainedPipeline(t).Save(dir))
	s := NewStore(dir, false)
	first, err := s.Reload()
	require.NoError(t, err)

	s.dir = t.TempDir()
	_, err = s.Reload()
	require.Error(t, err)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, first, cur)
}

func TestStoreConcurrentPredict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, trainedPipeline(t).Save(dir))
	s := NewStore(dir, false)

	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.Predict(context.Background(), sampleRecord().AsTable())
			if err == nil {
				results[i] = out[0]
			}
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, results[0], r)
		assert.NotZero(t, r)
	}
}
