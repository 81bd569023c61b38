package analytics

import (
	"sort"

	"github.com/apollion69/nordhold-calculator/internal/engine"
	"github.com/apollion69/nordhold-calculator/internal/model"
)

// ComparisonEntry is one build's ranked evaluation outcome.
type ComparisonEntry struct {
	Index      int
	ScenarioID string
	Totals     map[string]any
	Mode       string
}

// CompareBuilds evaluates each build against the same scenario with a
// distinct derived seed (seed + its 1-based position), then ranks the
// builds descending by combat_damage. Each build's seed offset keeps
// Monte Carlo / combat runs independent across the comparison set while
// remaining fully deterministic for a given base seed.
func CompareBuilds(scenario model.ScenarioDefinition, datasetVersion string, builds []model.BuildPlan, mode string, seed int64, monteCarloRuns int) ([]ComparisonEntry, error) {
	if len(builds) == 0 {
		return nil, errorf("compare requires at least one build")
	}

	entries := make([]ComparisonEntry, 0, len(builds))
	for i, build := range builds {
		index := i + 1
		result, err := engine.EvaluateTimeline(scenario, build, datasetVersion, mode, seed+int64(index), monteCarloRuns)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ComparisonEntry{
			Index:      index,
			ScenarioID: build.ScenarioID,
			Totals:     result.Totals(),
			Mode:       result.Mode,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return combatDamageOf(entries[i].Totals) > combatDamageOf(entries[j].Totals)
	})
	return entries, nil
}

func combatDamageOf(totals map[string]any) float64 {
	v, ok := totals["combat_damage"].(float64)
	if !ok {
		return 0.0
	}
	return v
}
