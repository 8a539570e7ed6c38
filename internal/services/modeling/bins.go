package modeling

// StressBins is the number of ordinal classes the classifier predicts.
const StressBins = 6

var binRepresentatives = [StressBins]float64{25, 75, 150, 250, 350, 450}

// StressToBin discretizes a stress score: [0-50] 0, 51-100 1, 101-200 2,
// 201-300 3, 301-400 4, above 400 5.
func StressToBin(stress float64) int {
	switch {
	case stress <= 50:
		return 0
	case stress <= 100:
		return 1
	case stress <= 200:
		return 2
	case stress <= 300:
		return 3
	case stress <= 400:
		return 4
	default:
		return 5
	}
}

// BinToStress returns the representative stress of a class.
func BinToStress(bin int) float64 {
	if bin < 0 {
		bin = 0
	}
	if bin >= StressBins {
		bin = StressBins - 1
	}
	return binRepresentatives[bin]
}
