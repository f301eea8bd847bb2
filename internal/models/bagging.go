package models

import (
	"errors"
	"math/rand"
)

type Bagging struct {
	NEstimators        int
	MaxDepth           int
	MinSamples         int
	MaxThresholdsPerFe int
	Seed               int64
	Trees              []*DecisionTree
}

func NewBagging() *Bagging {
	return &Bagging{NEstimators: 30, MaxDepth: 8, MinSamples: 10, MaxThresholdsPerFe: 32, Seed: 1, Trees: []*DecisionTree{}}
}

func (bg *Bagging) Name() string { return "Bagging" }

func (bg *Bagging) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("bagging: empty or misaligned training set")
	}
	if bg.NEstimators <= 0 {
		bg.NEstimators = 30
	}
	rng := rand.New(rand.NewSource(bg.Seed))
	bg.Trees = make([]*DecisionTree, 0, bg.NEstimators)
	for k := 0; k < bg.NEstimators; k++ {
		Xb, yb := bootstrap(rng, X, y)
		dt := NewDecisionTree()
		dt.MaxDepth = bg.MaxDepth
		dt.MinSamplesSplit = bg.MinSamples
		dt.MaxThresholdsPerFe = bg.MaxThresholdsPerFe
		dt.Seed = rng.Int63()
		if err := dt.Fit(Xb, yb); err != nil {
			return err
		}
		bg.Trees = append(bg.Trees, dt)
	}
	return nil
}

func (bg *Bagging) Predict(X [][]float64) []float64 {
	return averageTrees(bg.Trees, X)
}
