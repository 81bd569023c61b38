package analytics

import (
	"github.com/apollion69/nordhold-calculator/internal/model"
	"github.com/apollion69/nordhold-calculator/internal/statutil"
)

// Forecast is the smoothed expectation over a build's evaluation history,
// plus the derived probability of clearing a wave without leaks.
type Forecast struct {
	Samples                 int
	ExpectedCombatDamage    float64
	ExpectedPotentialDamage float64
	ExpectedLeaks           float64
	SuccessProbability      float64
}

// extractScalarTotals pulls combat_damage/potential_damage/leaks out of a
// loosely-shaped history entry, which may be a bare totals map or a full
// payload with a nested "totals" key — mirroring whatever shape a caller
// happens to have persisted.
func extractScalarTotals(entry map[string]any) (combat, potential, leaks float64) {
	totals := entry
	if nested, ok := entry["totals"].(map[string]any); ok {
		totals = nested
	}
	if v, ok := totals["combat_damage"].(float64); ok {
		combat = v
	}
	if v, ok := totals["potential_damage"].(float64); ok {
		potential = v
	}
	if v, ok := totals["leaks"].(float64); ok {
		leaks = v
	}
	return combat, potential, leaks
}

// ForecastFromHistory computes the arithmetic mean of combat_damage,
// potential_damage, and leaks across history (and, if provided, a latest
// live evaluation appended to it), using statutil.Mean. success_probability
// is 1 - leaks/max(1, potential) clamped to [0,1], or 0 when potential is ~0.
func ForecastFromHistory(history []map[string]any, latest *model.EvaluationResult) Forecast {
	if len(history) == 0 && latest == nil {
		return Forecast{}
	}

	combatValues := make([]float64, 0, len(history)+1)
	potentialValues := make([]float64, 0, len(history)+1)
	leakValues := make([]float64, 0, len(history)+1)

	for _, entry := range history {
		combat, potential, leaks := extractScalarTotals(entry)
		combatValues = append(combatValues, combat)
		potentialValues = append(potentialValues, potential)
		leakValues = append(leakValues, leaks)
	}

	if latest != nil {
		combat, potential, leaks := extractScalarTotals(latest.Totals())
		combatValues = append(combatValues, combat)
		potentialValues = append(potentialValues, potential)
		leakValues = append(leakValues, leaks)
	}

	expectedCombat := statutil.Mean(combatValues)
	expectedPotential := statutil.Mean(potentialValues)
	expectedLeaks := statutil.Mean(leakValues)

	var successProbability float64
	if expectedPotential > 1e-9 {
		leakRatio := statutil.Clamp(expectedLeaks/maxF1(expectedPotential), 0.0, 1.0)
		successProbability = statutil.Clamp(1.0-leakRatio, 0.0, 1.0)
	}

	return Forecast{
		Samples:                 len(combatValues),
		ExpectedCombatDamage:    expectedCombat,
		ExpectedPotentialDamage: expectedPotential,
		ExpectedLeaks:           expectedLeaks,
		SuccessProbability:      successProbability,
	}
}

func maxF1(v float64) float64 {
	if v > 1.0 {
		return v
	}
	return 1.0
}
