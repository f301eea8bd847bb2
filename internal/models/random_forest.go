package models

import (
	"errors"
	"math"
	"math/rand"
)

// RandomForest averages trees grown on bootstrap samples, each split drawing
// from a random subset of features.
type RandomForest struct {
	NEstimators        int
	MaxDepth           int
	MinSamples         int
	MaxThresholdsPerFe int
	MaxFeatures        int
	Seed               int64
	Trees              []*DecisionTree
}

func NewRandomForest() *RandomForest {
	return &RandomForest{NEstimators: 30, MaxDepth: 8, MinSamples: 10, MaxThresholdsPerFe: 32, Seed: 1, Trees: []*DecisionTree{}}
}

func (rf *RandomForest) Name() string { return "RandomForest" }

func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("random forest: empty or misaligned training set")
	}
	if rf.NEstimators <= 0 {
		rf.NEstimators = 30
	}
	nFeats := len(X[0])
	if rf.MaxFeatures <= 0 {
		// a third of the features, the usual default for regression forests
		rf.MaxFeatures = int(math.Max(1, float64(nFeats)/3))
	}
	rng := rand.New(rand.NewSource(rf.Seed))
	rf.Trees = make([]*DecisionTree, 0, rf.NEstimators)
	for k := 0; k < rf.NEstimators; k++ {
		Xb, yb := bootstrap(rng, X, y)
		dt := NewDecisionTree()
		dt.MaxDepth = rf.MaxDepth
		dt.MinSamplesSplit = rf.MinSamples
		dt.MaxThresholdsPerFe = rf.MaxThresholdsPerFe
		dt.MaxFeatures = rf.MaxFeatures
		dt.Seed = rng.Int63()
		if err := dt.Fit(Xb, yb); err != nil {
			return err
		}
		rf.Trees = append(rf.Trees, dt)
	}
	return nil
}

func (rf *RandomForest) Predict(X [][]float64) []float64 {
	return averageTrees(rf.Trees, X)
}

func bootstrap(rng *rand.Rand, X [][]float64, y []float64) ([][]float64, []float64) {
	n := len(X)
	Xb := make([][]float64, n)
	yb := make([]float64, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		Xb[i] = X[j]
		yb[i] = y[j]
	}
	return Xb, yb
}

func averageTrees(trees []*DecisionTree, X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(trees) == 0 {
		return out
	}
	for _, dt := range trees {
		p := dt.Predict(X)
		for i := range out {
			out[i] += p[i]
		}
	}
	m := float64(len(trees))
	for i := range out {
		out[i] /= m
	}
	return out
}
