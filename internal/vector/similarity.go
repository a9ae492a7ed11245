package vector

import "math"

// SquaredL2 returns the squared Euclidean distance between two vectors.
// Mismatched lengths yield +Inf so the pair can never rank as a neighbor.
func SquaredL2(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var dist float64
	for i := range a {
		d := float64(a[i] - b[i])
		dist += d * d
	}
	return dist
}
