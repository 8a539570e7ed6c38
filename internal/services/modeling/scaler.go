package modeling

import "math"

// Scaler standardizes features with per-column mean and standard deviation.
// It is fit on the training split only and frozen afterwards.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes column statistics. Columns with zero spread get std 1 so
// they transform to zero instead of dividing by zero.
func FitScaler(rows [][]float64) Scaler {
	if len(rows) == 0 {
		return Scaler{}
	}
	p := len(rows[0])
	s := Scaler{Mean: make([]float64, p), Std: make([]float64, p)}
	n := float64(len(rows))

	for _, row := range rows {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] < 1e-12 {
			s.Std[j] = 1
		}
	}
	return s
}

// Width is the number of columns the scaler was fit on.
func (s Scaler) Width() int { return len(s.Mean) }

// Transform standardizes one row. The caller guarantees the width matches.
func (s Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

func (s Scaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
