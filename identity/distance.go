package identity

import "math"

// Distance returns the Euclidean distance between a and b, or math.MaxFloat64 when their
// lengths differ.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}
