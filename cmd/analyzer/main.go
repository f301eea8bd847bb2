package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"studentscore/internal/data"
	"studentscore/internal/models"
	"studentscore/internal/predict"
	"studentscore/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	artifacts := flag.String("artifacts", "artifacts", "Directory holding preprocessor.gob and model.gob")
	dataPath := flag.String("data", "data/students.csv", "CSV to score; metrics need a math_score column")
	strict := flag.Bool("strict", false, "Reject columns the pipeline does not know")
	outImg := flag.String("out_img", "data/predicted_vs_actual.png", "Scatter plot of predicted against actual scores")
	outCSV := flag.String("out_csv", "data/predictions.csv", "Input rows with a Predictions column")
	flag.Parse()

	pipe, err := predict.Load(*artifacts)
	if err != nil {
		logger.Fatal("load artifacts", zap.String("dir", *artifacts), zap.Error(err))
	}
	pipe.Strict = *strict

	f, err := os.Open(*dataPath)
	if err != nil {
		logger.Fatal("open dataset", zap.Error(err))
	}
	table, err := data.ReadCSV(f)
	f.Close()
	if err != nil {
		logger.Fatal("read dataset", zap.Error(err))
	}

	preds, err := pipe.Predict(context.Background(), table)
	if err != nil {
		logger.Fatal("predict", zap.Error(err))
	}
	logger.Info("scored dataset", zap.String("model", pipe.ModelName()), zap.Int("rows", len(preds)))

	if _, ok := table.Column(data.ColMathScore); ok {
		y, err := predict.Targets(table, data.ColMathScore)
		if err != nil {
			logger.Fatal("read targets", zap.Error(err))
		}
		m := models.Evaluate(y, preds)
		logger.Info("metrics",
			zap.String("model", pipe.ModelName()),
			zap.Float64("r2", m.R2),
			zap.Float64("rmse", m.RMSE),
			zap.Float64("mae", m.MAE),
		)
		fmt.Printf("%s | rows=%d | r2=%.4f | rmse=%.3f | mae=%.3f\n", pipe.ModelName(), len(y), m.R2, m.RMSE, m.MAE)
		if err := plotScatter(*outImg, pipe.ModelName(), y, preds); err != nil {
			logger.Warn("write scatter plot", zap.Error(err))
		} else {
			logger.Info("scatter plot written", zap.String("png", *outImg))
		}
	} else {
		logger.Info("no math_score column, skipping metrics")
	}

	if err := table.SetFloatColumn(data.ColPredictions, preds); err != nil {
		logger.Fatal("set predictions", zap.Error(err))
	}
	if err := writeTable(*outCSV, table); err != nil {
		logger.Fatal("write predictions", zap.Error(err))
	}
	logger.Info("predictions written", zap.String("csv", *outCSV))
}

func writeTable(path string, t *data.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func plotScatter(path, model string, actual, predicted []float64) error {
	p := plot.New()
	p.Title.Text = "Predicted vs actual math score (" + model + ")"
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	pts := make(plotter.XYs, len(actual))
	for i := range actual {
		pts[i].X, pts[i].Y = actual[i], predicted[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(2)

	ideal := plotter.NewFunction(func(x float64) float64 { return x })
	ideal.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(s, ideal, plotter.NewGrid())
	p.Legend.Add("rows", s)
	p.Legend.Add("y = x", ideal)
	p.X.Min, p.X.Max = 0, 100
	p.Y.Min, p.Y.Max = 0, 100

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
