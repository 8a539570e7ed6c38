package modeling

import (
	"errors"
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// DefaultRidge is the L2 penalty used for the linear model. Balance is an
// exact linear combination of the two load columns and unused one-hot slots
// are constant, so plain least squares would be singular.
const DefaultRidge = 0.1

// LinearModel is y = Intercept + Coefficients . x on standardized features.
type LinearModel struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	TrainR2      float64   `json:"train_r2"`
}

// FitLinear fits ridge regression by appending one pseudo-observation per
// column (sqrt(lambda) on that column, target 0) to an ordinary least squares
// problem. The target is centered so the penalty does not pull the mean.
func FitLinear(x [][]float64, y []float64, lambda float64) (*LinearModel, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("fit linear: empty or mismatched data")
	}
	if lambda <= 0 {
		lambda = DefaultRidge
	}
	p := len(x[0])

	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(len(y))

	var r regression.Regression
	r.SetObserved("stress")
	for j := 0; j < p; j++ {
		r.SetVar(j, fmt.Sprintf("x%d", j))
	}
	for i, row := range x {
		r.Train(regression.DataPoint(y[i]-yMean, row))
	}
	penalty := math.Sqrt(lambda)
	for j := 0; j < p; j++ {
		row := make([]float64, p)
		row[j] = penalty
		r.Train(regression.DataPoint(0, row))
	}

	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("fit linear: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != p+1 {
		return nil, fmt.Errorf("fit linear: expected %d coefficients, got %d", p+1, len(coeffs))
	}
	return &LinearModel{
		Intercept:    yMean + coeffs[0],
		Coefficients: append([]float64(nil), coeffs[1:]...),
		TrainR2:      r.R2,
	}, nil
}

// Predict evaluates the model on one standardized row.
func (m *LinearModel) Predict(x []float64) float64 {
	y := m.Intercept
	for j, c := range m.Coefficients {
		y += c * x[j]
	}
	return y
}
