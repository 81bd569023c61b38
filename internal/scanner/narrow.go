package scanner

import (
	"math"

	"github.com/apollion69/nordhold-calculator/internal/memback"
)

// NarrowMode selects which predicate a narrowing pass keeps a candidate
// under.
type NarrowMode string

// Supported narrow modes.
const (
	NarrowEqual     NarrowMode = "equal"
	NarrowUnchanged NarrowMode = "unchanged"
	NarrowChanged   NarrowMode = "changed"
	NarrowIncreased NarrowMode = "increased"
	NarrowDecreased NarrowMode = "decreased"
	NarrowDelta     NarrowMode = "delta"
)

// NarrowOptions parameterizes one narrowing pass over a previously scanned
// candidate set.
type NarrowOptions struct {
	ValueType      ValueType
	Mode           NarrowMode
	Epsilon        float64
	ExpectedValue  *float64
	ExpectedDelta  *float64
}

func keepCandidate(opts NarrowOptions, previous, current float64) bool {
	switch opts.Mode {
	case NarrowEqual:
		if opts.ExpectedValue == nil {
			return false
		}
		return valuesEqual(current, *opts.ExpectedValue, opts.ValueType, opts.Epsilon)
	case NarrowUnchanged:
		if !valuesEqual(current, previous, opts.ValueType, opts.Epsilon) {
			return false
		}
	case NarrowChanged:
		if valuesEqual(current, previous, opts.ValueType, opts.Epsilon) {
			return false
		}
	case NarrowIncreased:
		if opts.ValueType == ValueFloat32 {
			if !(current > previous+opts.Epsilon) {
				return false
			}
		} else if !(int64(current) > int64(previous)) {
			return false
		}
	case NarrowDecreased:
		if opts.ValueType == ValueFloat32 {
			if !(current < previous-opts.Epsilon) {
				return false
			}
		} else if !(int64(current) < int64(previous)) {
			return false
		}
	case NarrowDelta:
		if opts.ExpectedDelta == nil {
			return false
		}
		diff := current - previous
		if opts.ValueType == ValueFloat32 {
			if !floatEq(diff, *opts.ExpectedDelta, opts.Epsilon) {
				return false
			}
		} else if int64(math.Round(diff)) != int64(*opts.ExpectedDelta) {
			return false
		}
	default:
		return false
	}

	if opts.ExpectedValue == nil {
		return true
	}
	return valuesEqual(current, *opts.ExpectedValue, opts.ValueType, opts.Epsilon)
}

// NarrowStats summarizes one narrowing pass.
type NarrowStats struct {
	SourceCandidates int
	Kept             int
	ReadErrors       int
	ElapsedS         float64
}

// Narrow re-reads each of source's addresses against the live process and
// keeps only those whose current value satisfies opts' predicate. An
// address whose current read fails is dropped and counted as a read
// error — narrowing output is always a subset of its input (never larger),
// satisfying scan-narrow monotonicity.
func Narrow(backend memback.Backend, handle memback.Handle, source []Candidate, opts NarrowOptions) ([]Candidate, NarrowStats) {
	width := ValueWidth(opts.ValueType)
	var kept []Candidate
	var readErrors int
	for _, item := range source {
		raw, err := backend.ReadMemory(handle, item.Address, width)
		if err != nil {
			readErrors++
			continue
		}
		current := decodeValue(raw, opts.ValueType)
		if keepCandidate(opts, item.Value, current) {
			kept = append(kept, Candidate{Address: item.Address, Value: current})
		}
	}
	return kept, NarrowStats{
		SourceCandidates: len(source),
		Kept:             len(kept),
		ReadErrors:       readErrors,
	}
}
