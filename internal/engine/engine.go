package engine

import (
	"github.com/apollion69/nordhold-calculator/internal/model"
)

const (
	ModeExpected    = "expected"
	ModeCombat      = "combat"
	ModeMonteCarlo  = "monte_carlo"
	combatSeedPrime = 997
	waveSeedPrime   = 1009
	runSeedPrime    = 37
)

// EvaluateTimeline replays a BuildPlan's action script against a
// ScenarioDefinition wave by wave and returns the resulting per-wave damage,
// leak, and economy metrics. Mode selects the evaluation strategy:
//
//   - "expected" computes a closed-form DPS-weighted estimate per wave.
//   - "combat" runs one seeded discrete-event simulation per wave.
//   - "monte_carlo" runs monteCarloRuns independent combat passes per wave
//     (each with its own derived seed) and averages the results.
//
// The returned EvaluationResult is deterministic for identical inputs: combat
// and monte_carlo modes seed their random generators from seed plus
// wave/run-derived offsets, never from the global math/rand source.
func EvaluateTimeline(scenario model.ScenarioDefinition, build model.BuildPlan, datasetVersion, mode string, seed int64, monteCarloRuns int) (model.EvaluationResult, error) {
	switch mode {
	case ModeExpected, ModeCombat, ModeMonteCarlo:
	default:
		return model.EvaluationResult{}, errorf("unsupported mode: %s", mode)
	}

	waveResults := make([]model.WaveResult, 0, len(scenario.Waves))
	for _, wave := range scenario.Waves {
		state := runtimeForWave(build, wave.Index)

		var result model.WaveResult
		switch mode {
		case ModeExpected:
			result = expectedWave(scenario, wave, state)

		case ModeCombat:
			waveSeed := seed + int64(wave.Index)*combatSeedPrime
			result = simulateWaveCombat(scenario, wave, state, waveSeed, true)

		case ModeMonteCarlo:
			runs := monteCarloRuns
			if runs < 1 {
				runs = 1
			}
			result = averageMonteCarloWave(scenario, wave, state, seed, runs)
		}

		waveResults = append(waveResults, result)
	}

	economyTotals := evaluateEconomyTotals(scenario, build)

	return model.EvaluationResult{
		Mode:           mode,
		ScenarioID:     scenario.ID,
		DatasetVersion: datasetVersion,
		Seed:           seed,
		MonteCarloRuns: monteCarloRuns,
		WaveResults:    waveResults,
		EconomyTotals:  economyTotals,
	}, nil
}

// averageMonteCarloWave runs monte_carlo mode's per-wave combat sampling and
// averages the scalar fields across runs; breakdown keys are averaged per
// tower name, matching whichever runs contributed damage for that tower.
func averageMonteCarloWave(scenario model.ScenarioDefinition, wave model.WaveDefinition, state *runtimeState, seed int64, runs int) model.WaveResult {
	var combatDamageSum, effectiveDPSSum, clearTimeSum, leaksSum, potentialSum, hpPoolSum float64
	breakdownSum := map[string]float64{}

	for runIndex := 0; runIndex < runs; runIndex++ {
		runSeed := seed + int64(wave.Index)*waveSeedPrime + int64(runIndex)*runSeedPrime
		result := simulateWaveCombat(scenario, wave, state, runSeed, true)

		potentialSum += result.PotentialDamage
		combatDamageSum += result.CombatDamage
		effectiveDPSSum += result.EffectiveDPS
		clearTimeSum += result.ClearTimeS
		leaksSum += result.Leaks
		hpPoolSum += result.EnemyHPPool
		for k, v := range result.Breakdown {
			breakdownSum[k] += v
		}
	}

	divisor := float64(runs)
	for k := range breakdownSum {
		breakdownSum[k] /= divisor
	}

	return model.WaveResult{
		Wave:            wave.Index,
		PotentialDamage: potentialSum / divisor,
		CombatDamage:    combatDamageSum / divisor,
		EffectiveDPS:    effectiveDPSSum / divisor,
		ClearTimeS:      clearTimeSum / divisor,
		Leaks:           leaksSum / divisor,
		EnemyHPPool:     hpPoolSum / divisor,
		Breakdown:       breakdownSum,
	}
}
