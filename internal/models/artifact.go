package models

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

func init() {
	gob.Register(&LinearRegression{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&Bagging{})
	gob.Register(&GradientBoosting{})
	gob.Register(&LightGBMCLI{})
}

// Artifact is the gob envelope for a trained model. Features is the input
// width the model was fitted on; zero means the width was not recorded.
type Artifact struct {
	Model    Regressor
	Features int
}

func Save(w io.Writer, a Artifact) error {
	if a.Model == nil {
		return errors.New("save: nil model")
	}
	return gob.NewEncoder(w).Encode(a)
}

func Load(r io.Reader) (Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return Artifact{}, fmt.Errorf("decode model: %w", err)
	}
	if a.Model == nil {
		return Artifact{}, errors.New("decode model: empty artifact")
	}
	return a, nil
}

// Options carries the hyper-parameters exposed on the command line.
type Options struct {
	Estimators   int
	MaxDepth     int
	MinSamples   int
	LearningRate float64
	Alpha        float64
	Seed         int64
}

// New builds an untrained model for algo: lr|dt|rf|bagging|gb|lgbm. Zero
// option values keep each model's defaults.
func New(algo string, o Options) (Regressor, error) {
	switch algo {
	case "lr", "":
		m := NewLinearRegression()
		setFloat(&m.Alpha, o.Alpha)
		return m, nil
	case "dt":
		dt := NewDecisionTree()
		setInt(&dt.MaxDepth, o.MaxDepth)
		setInt(&dt.MinSamplesSplit, o.MinSamples)
		setSeed(&dt.Seed, o.Seed)
		return dt, nil
	case "rf":
		rf := NewRandomForest()
		setInt(&rf.NEstimators, o.Estimators)
		setInt(&rf.MaxDepth, o.MaxDepth)
		setInt(&rf.MinSamples, o.MinSamples)
		setSeed(&rf.Seed, o.Seed)
		return rf, nil
	case "bagging":
		bg := NewBagging()
		setInt(&bg.NEstimators, o.Estimators)
		setInt(&bg.MaxDepth, o.MaxDepth)
		setInt(&bg.MinSamples, o.MinSamples)
		setSeed(&bg.Seed, o.Seed)
		return bg, nil
	case "gb":
		gb := NewGradientBoosting()
		setInt(&gb.NEstimators, o.Estimators)
		setInt(&gb.MaxDepth, o.MaxDepth)
		setInt(&gb.MinSamples, o.MinSamples)
		setFloat(&gb.LearningRate, o.LearningRate)
		setSeed(&gb.Seed, o.Seed)
		return gb, nil
	case "lgbm":
		lg := NewLightGBMCLI()
		if o.MaxDepth > 0 {
			lg.MaxDepth = o.MaxDepth
			lg.NumLeaves = 1 << o.MaxDepth
		}
		setInt(&lg.MinDataInLeaf, o.MinSamples)
		setInt(&lg.NumIterations, o.Estimators)
		setFloat(&lg.LearningRate, o.LearningRate)
		return lg, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algo)
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func setSeed(dst *int64, v int64) {
	if v != 0 {
		*dst = v
	}
}
