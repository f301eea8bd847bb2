package models

// Regressor maps feature vectors to continuous targets.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
	Name() string
}
