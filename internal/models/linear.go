package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is least squares with an L2 penalty on the coefficients.
// A small Alpha keeps the normal equations solvable when one-hot blocks are
// collinear with the intercept.
type LinearRegression struct {
	Alpha     float64
	Coef      []float64
	Intercept float64
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{Alpha: 1e-3}
}

func (lr *LinearRegression) Name() string { return "LinearRegression" }

func (lr *LinearRegression) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return errors.New("linear regression: empty or misaligned training set")
	}
	d := len(X[0])
	means := make([]float64, d)
	yMean := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			means[j] += X[i][j]
		}
		yMean += y[i]
	}
	for j := range means {
		means[j] /= float64(n)
	}
	yMean /= float64(n)

	xc := mat.NewDense(n, d, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			xc.Set(i, j, X[i][j]-means[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, xc.T())
	alpha := lr.Alpha
	if alpha <= 0 {
		alpha = 1e-9
	}
	for j := 0; j < d; j++ {
		xtx.SetSym(j, j, xtx.At(j, j)+alpha)
	}
	var xty mat.VecDense
	xty.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return errors.New("linear regression: normal equations are not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return fmt.Errorf("linear regression: %w", err)
	}
	lr.Coef = make([]float64, d)
	lr.Intercept = yMean
	for j := 0; j < d; j++ {
		lr.Coef[j] = w.AtVec(j)
		lr.Intercept -= lr.Coef[j] * means[j]
	}
	return nil
}

func (lr *LinearRegression) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		v := lr.Intercept
		for j := 0; j < len(lr.Coef) && j < len(x); j++ {
			v += lr.Coef[j] * x[j]
		}
		out[i] = v
	}
	return out
}
