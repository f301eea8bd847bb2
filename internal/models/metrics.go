package models

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type Metrics struct {
	R2   float64
	RMSE float64
	MAE  float64
}

// Evaluate scores predictions against targets.
func Evaluate(y, pred []float64) Metrics {
	if len(y) == 0 || len(y) != len(pred) {
		return Metrics{}
	}
	var sse, sae float64
	for i := range y {
		d := y[i] - pred[i]
		sse += d * d
		sae += math.Abs(d)
	}
	n := float64(len(y))
	return Metrics{
		R2:   stat.RSquaredFrom(pred, y, nil),
		RMSE: math.Sqrt(sse / n),
		MAE:  sae / n,
	}
}
