package analytics

import (
	"github.com/apollion69/nordhold-calculator/internal/engine"
	"github.com/apollion69/nordhold-calculator/internal/model"
)

// SensitivityPoint is one swept factor's resulting combat damage, relative
// to the unscaled baseline.
type SensitivityPoint struct {
	Factor             float64
	CombatDamage       float64
	DeltaPctVsBaseline float64
}

// SensitivityResult is a baseline evaluation plus one point per swept
// factor value.
type SensitivityResult struct {
	Parameter string
	Baseline  map[string]any
	Points    []SensitivityPoint
}

func scaleTowerStat(base model.TowerStats, parameter string, factor float64) model.TowerStats {
	switch parameter {
	case "damage":
		base.Damage *= factor
	case "fire_rate":
		base.FireRate *= factor
	case "accuracy":
		base.Accuracy = clamp01(base.Accuracy * factor)
	}
	return base
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func scaledScenario(scenario model.ScenarioDefinition, parameter string, factor float64) model.ScenarioDefinition {
	towers := make(map[string]model.TowerDefinition, len(scenario.Towers))
	for id, tower := range scenario.Towers {
		scaled := tower
		scaled.BaseStats = scaleTowerStat(tower.BaseStats, parameter, factor)
		towers[id] = scaled
	}
	scenario.Towers = towers
	return scenario
}

// SensitivityAnalysis evaluates build once at baseline and once per factor
// in values, scaling one tower base stat (damage, fire_rate, or accuracy;
// accuracy is clamped to [0,1]) across every tower in the scenario before
// each swept evaluation. All evaluations share the same seed so only the
// swept stat varies between points.
func SensitivityAnalysis(scenario model.ScenarioDefinition, datasetVersion string, build model.BuildPlan, parameter string, values []float64, mode string, seed int64, monteCarloRuns int) (SensitivityResult, error) {
	switch parameter {
	case "damage", "fire_rate", "accuracy":
	default:
		return SensitivityResult{}, errorf("unsupported sensitivity parameter: %s", parameter)
	}

	baseline, err := engine.EvaluateTimeline(scenario, build, datasetVersion, mode, seed, monteCarloRuns)
	if err != nil {
		return SensitivityResult{}, err
	}
	baselineTotals := baseline.Totals()
	baselineCombat := combatDamageOf(baselineTotals)

	points := make([]SensitivityPoint, 0, len(values))
	for _, value := range values {
		adjusted := scaledScenario(scenario, parameter, value)
		result, err := engine.EvaluateTimeline(adjusted, build, datasetVersion, mode, seed, monteCarloRuns)
		if err != nil {
			return SensitivityResult{}, err
		}
		combat := combatDamageOf(result.Totals())

		var deltaPct float64
		if absF(baselineCombat) > 1e-9 {
			deltaPct = ((combat - baselineCombat) / baselineCombat) * 100.0
		}
		points = append(points, SensitivityPoint{
			Factor:             value,
			CombatDamage:       combat,
			DeltaPctVsBaseline: deltaPct,
		})
	}

	return SensitivityResult{
		Parameter: parameter,
		Baseline:  baselineTotals,
		Points:    points,
	}, nil
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
