package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"studentscore/internal/data"
	"studentscore/internal/features"
	"studentscore/internal/models"
	"studentscore/internal/predict"
	"studentscore/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	regen := flag.Bool("regen", false, "Regenerate the synthetic dataset before training")
	n := flag.Int("n", 1000, "Number of synthetic students")
	seed := flag.Int64("seed", 42, "Seed for data generation, shuffling and models")
	dataPath := flag.String("data", "data/students.csv", "Training CSV (feature columns plus math_score)")
	algo := flag.String("algo", "lr", "Algorithm: lr|dt|rf|bagging|gb|lgbm")
	estimators := flag.Int("estimators", 0, "Ensemble size (rf/bagging/gb/lgbm), 0 keeps the default")
	maxDepth := flag.Int("max_depth", 0, "Maximum tree depth, 0 keeps the default")
	minSamples := flag.Int("min_samples", 0, "Minimum samples to split a node, 0 keeps the default")
	lr := flag.Float64("lr", 0, "Learning rate (gb/lgbm), 0 keeps the default")
	alpha := flag.Float64("alpha", 0, "Ridge penalty for lr, 0 keeps the default")
	testFrac := flag.Float64("test_frac", 0.2, "Fraction of rows held out for evaluation")
	out := flag.String("out", "artifacts", "Directory for preprocessor.gob and model.gob")
	curve := flag.Bool("curve", false, "Write a learning curve (CSV and PNG)")
	curvePoints := flag.Int("curve_points", 8, "Number of points on the learning curve")
	curveMin := flag.Int("curve_min", 50, "Smallest training size on the curve")
	curveImg := flag.String("curve_out_img", "data/learning_curve.png", "Learning curve PNG")
	curveCSV := flag.String("curve_out_csv", "data/learning_curve.csv", "Learning curve CSV")
	flag.Parse()

	if *testFrac <= 0 || *testFrac >= 1 {
		logger.Fatal("test_frac must be between 0 and 1", zap.Float64("test_frac", *testFrac))
	}

	_, statErr := os.Stat(*dataPath)
	if *regen || errors.Is(statErr, fs.ErrNotExist) {
		logger.Info("generating synthetic dataset", zap.Int("n", *n), zap.Int64("seed", *seed), zap.String("out", *dataPath))
		if err := data.GenerateSyntheticStudents(*n, *seed, *dataPath); err != nil {
			logger.Fatal("generate dataset", zap.Error(err))
		}
	}

	table, err := readTable(*dataPath)
	if err != nil {
		logger.Fatal("read dataset", zap.Error(err))
	}
	if table.Len() < 10 {
		logger.Fatal("dataset too small", zap.Int("rows", table.Len()))
	}
	rng := rand.New(rand.NewSource(*seed))
	rng.Shuffle(len(table.Rows), func(i, j int) { table.Rows[i], table.Rows[j] = table.Rows[j], table.Rows[i] })
	train, test := predict.Split(table, 1-*testFrac)
	logger.Info("dataset split", zap.Int("train", train.Len()), zap.Int("test", test.Len()))

	opts := models.Options{
		Estimators:   *estimators,
		MaxDepth:     *maxDepth,
		MinSamples:   *minSamples,
		LearningRate: *lr,
		Alpha:        *alpha,
		Seed:         *seed,
	}
	mdl, err := models.New(*algo, opts)
	if err != nil {
		logger.Fatal("build model", zap.Error(err))
	}
	pipe, err := predict.Fit(train, features.DefaultSchema, data.ColMathScore, mdl)
	if err != nil {
		logger.Fatal("train", zap.String("model", mdl.Name()), zap.Error(err))
	}

	trainM, err := evaluate(pipe, train)
	if err != nil {
		logger.Fatal("evaluate train", zap.Error(err))
	}
	testM, err := evaluate(pipe, test)
	if err != nil {
		logger.Fatal("evaluate holdout", zap.Error(err))
	}
	logger.Info("holdout metrics",
		zap.String("model", mdl.Name()),
		zap.Float64("train_r2", trainM.R2),
		zap.Float64("test_r2", testM.R2),
		zap.Float64("test_rmse", testM.RMSE),
		zap.Float64("test_mae", testM.MAE),
	)

	if err := pipe.Save(*out); err != nil {
		logger.Fatal("save artifacts", zap.Error(err))
	}
	logger.Info("artifacts saved", zap.String("dir", *out), zap.String("model", mdl.Name()))
	fmt.Println("Model:", mdl.Name())

	if !*curve {
		return
	}
	sizes := curveSizes(train.Len(), *curvePoints, *curveMin)
	points := make([]curvePoint, 0, len(sizes))
	for _, s := range sizes {
		sub := &data.Table{Columns: train.Columns, Rows: train.Rows[:s]}
		m, err := models.New(*algo, opts)
		if err != nil {
			logger.Fatal("build model", zap.Error(err))
		}
		p, err := predict.Fit(sub, features.DefaultSchema, data.ColMathScore, m)
		if err != nil {
			logger.Fatal("train curve point", zap.Int("size", s), zap.Error(err))
		}
		trM, err := evaluate(p, sub)
		if err != nil {
			logger.Fatal("evaluate curve point", zap.Int("size", s), zap.Error(err))
		}
		teM, err := evaluate(p, test)
		if err != nil {
			logger.Fatal("evaluate curve point", zap.Int("size", s), zap.Error(err))
		}
		points = append(points, curvePoint{Size: sub.Len(), Train: trM, Test: teM})
		logger.Debug("curve point", zap.Int("size", sub.Len()), zap.Float64("train_r2", trM.R2), zap.Float64("test_r2", teM.R2))
	}
	if err := writeCurveCSV(*curveCSV, points); err != nil {
		logger.Warn("write learning curve csv", zap.Error(err))
	}
	if err := plotCurvePNG(*curveImg, mdl.Name(), points); err != nil {
		logger.Warn("write learning curve png", zap.Error(err))
	} else {
		logger.Info("learning curve written", zap.String("png", *curveImg), zap.String("csv", *curveCSV))
	}
}

func readTable(path string) (*data.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return data.ReadCSV(f)
}

func evaluate(p *predict.Pipeline, t *data.Table) (models.Metrics, error) {
	y, err := predict.Targets(t, data.ColMathScore)
	if err != nil {
		return models.Metrics{}, err
	}
	X, err := p.Preprocessor.Transform(t)
	if err != nil {
		return models.Metrics{}, err
	}
	return models.Evaluate(y, p.Model.Predict(X)), nil
}

type curvePoint struct {
	Size  int
	Train models.Metrics
	Test  models.Metrics
}

// curveSizes spaces training sizes geometrically from smallest up to total.
// Sizes are strictly increasing and the last one is always total.
func curveSizes(total, points, smallest int) []int {
	if points < 2 {
		points = 2
	}
	if smallest < 10 {
		smallest = 10
	}
	if smallest > total {
		smallest = total
	}
	ratio := math.Pow(float64(total)/float64(smallest), 1/float64(points-1))
	sizes := make([]int, 0, points)
	last := 0
	for i := 0; i < points; i++ {
		s := int(math.Round(float64(smallest) * math.Pow(ratio, float64(i))))
		if s > total {
			s = total
		}
		if s <= last {
			continue
		}
		sizes = append(sizes, s)
		last = s
	}
	if sizes[len(sizes)-1] != total {
		sizes = append(sizes, total)
	}
	return sizes
}

func writeCurveCSV(path string, points []curvePoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"size", "train_r2", "test_r2", "train_rmse", "test_rmse", "train_mae", "test_mae"}); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, p := range points {
		rec := []string{strconv.Itoa(p.Size),
			ff(p.Train.R2), ff(p.Test.R2),
			ff(p.Train.RMSE), ff(p.Test.RMSE),
			ff(p.Train.MAE), ff(p.Test.MAE),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func plotCurvePNG(path, model string, points []curvePoint) error {
	p := plot.New()
	p.Title.Text = "Learning curve (" + model + ")"
	p.X.Label.Text = "Training rows"
	p.Y.Label.Text = "R²"

	train := make(plotter.XYs, len(points))
	test := make(plotter.XYs, len(points))
	for i, pt := range points {
		train[i].X, train[i].Y = float64(pt.Size), pt.Train.R2
		test[i].X, test[i].Y = float64(pt.Size), pt.Test.R2
	}
	if err := plotutil.AddLinePoints(p, "Train", train, "Test", test); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
