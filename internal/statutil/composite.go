// Composite weighted score helper, generalized from a severity-escalation
// formula (S = w1*A + w2*Q + w3*I + w4*P) into an arbitrary-arity weighted
// sum. The calibration stability penalty adds its terms directly and uses
// only Clamp from this file.
package statutil

// WeightedSum computes Σ weights[i] * values[i]. Panics if the slices differ
// in length. Both slices are typically small (fewer than ten elements), so
// no attempt is made to vectorize or parallelize.
func WeightedSum(values, weights []float64) float64 {
	if len(values) != len(weights) {
		panic("statutil.WeightedSum: values and weights must be the same length")
	}
	var total float64
	for i, v := range values {
		total += v * weights[i]
	}
	return total
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
