package modeling

import "math"

// evaluate returns MAE, RMSE and R^2 of predictions against actuals.
// R^2 is 0 when the actuals have no variance.
func evaluate(pred, actual []float64) (mae, rmse, r2 float64) {
	n := float64(len(actual))
	if n == 0 {
		return 0, 0, 0
	}
	mean := 0.0
	for _, a := range actual {
		mean += a
	}
	mean /= n

	var absSum, ssRes, ssTot float64
	for i, a := range actual {
		d := a - pred[i]
		absSum += math.Abs(d)
		ssRes += d * d
		ssTot += (a - mean) * (a - mean)
	}
	mae = absSum / n
	rmse = math.Sqrt(ssRes / n)
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return mae, rmse, r2
}
