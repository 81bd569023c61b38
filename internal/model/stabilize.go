package model

import "math"

// stableFloat rounds to the given number of significant decimal digits and
// normalizes signed zero, so repeated evaluations of the same timeline
// serialize byte-identically regardless of floating-point accumulation
// order.
func stableFloat(value float64, digits int) float64 {
	rounded := roundTo(value, digits)
	if rounded == 0.0 {
		return 0.0
	}
	return rounded
}

func roundTo(value float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(value*scale) / scale
}

// StableFloat rounds value to 10 decimal digits and normalizes signed zero.
func StableFloat(value float64) float64 {
	return stableFloat(value, 10)
}

// StabilizeNumericPayload walks a decoded JSON-like value tree (maps,
// slices, float64, and passthrough scalars) and stabilizes every float64 it
// finds, recursively. Used before writing any evaluation result to disk or
// emitting it over the control surface so identical runs produce identical
// bytes.
func StabilizeNumericPayload(v any) any {
	switch x := v.(type) {
	case float64:
		return StableFloat(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = StabilizeNumericPayload(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = StabilizeNumericPayload(item)
		}
		return out
	default:
		return v
	}
}
