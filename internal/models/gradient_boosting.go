package models

import (
	"errors"
	"math/rand"
)

// GradientBoosting fits shallow regression trees to squared-error residuals.
type GradientBoosting struct {
	NEstimators        int
	LearningRate       float64
	MaxDepth           int
	MinSamples         int
	MaxThresholdsPerFe int
	Seed               int64
	Init               float64
	Trees              []*DecisionTree
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3, MinSamples: 10, MaxThresholdsPerFe: 32, Seed: 1}
}

func (gb *GradientBoosting) Name() string { return "GradientBoosting" }

func (gb *GradientBoosting) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return errors.New("gradient boosting: empty or misaligned training set")
	}
	rng := rand.New(rand.NewSource(gb.Seed))
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	gb.Init = sum / float64(n)
	F := make([]float64, n)
	for i := range F {
		F[i] = gb.Init
	}
	gb.Trees = gb.Trees[:0]
	r := make([]float64, n)
	for m := 0; m < gb.NEstimators; m++ {
		for i := 0; i < n; i++ {
			r[i] = y[i] - F[i]
		}
		dt := NewDecisionTree()
		dt.MaxDepth = gb.MaxDepth
		dt.MinSamplesSplit = gb.MinSamples
		dt.MaxThresholdsPerFe = gb.MaxThresholdsPerFe
		dt.Seed = rng.Int63()
		if err := dt.Fit(X, r); err != nil {
			return err
		}
		if dt.Root == nil || dt.Root.IsLeaf && dt.Root.Value == 0 {
			break
		}
		gb.Trees = append(gb.Trees, dt)
		inc := dt.Predict(X)
		for i := 0; i < n; i++ {
			F[i] += gb.LearningRate * inc[i]
		}
	}
	return nil
}

func (gb *GradientBoosting) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = gb.Init
	}
	for _, t := range gb.Trees {
		inc := t.Predict(X)
		for i := range out {
			out[i] += gb.LearningRate * inc[i]
		}
	}
	return out
}
