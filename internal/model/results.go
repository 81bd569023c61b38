package model

// WaveResult captures one wave's evaluation outcome: the damage dealt,
// effective throughput, clear time, and leaked enemies.
type WaveResult struct {
	Wave            int
	PotentialDamage float64
	CombatDamage    float64
	EffectiveDPS    float64
	ClearTimeS      float64
	Leaks           float64
	EnemyHPPool     float64
	Breakdown       map[string]float64
}

// EvaluationResult is the complete output of evaluating a BuildPlan against
// a ScenarioDefinition: one WaveResult per wave plus the accumulated economy
// totals.
type EvaluationResult struct {
	Mode           string
	ScenarioID     string
	DatasetVersion string
	Seed           int64
	MonteCarloRuns int
	WaveResults    []WaveResult
	EconomyTotals  map[string]any
}

// Totals aggregates potential/combat damage and leaks across all waves, and
// normalizes the economy totals map.
func (r EvaluationResult) Totals() map[string]any {
	var potential, combat, leaks float64
	for _, w := range r.WaveResults {
		potential += w.PotentialDamage
		combat += w.CombatDamage
		leaks += w.Leaks
	}
	return map[string]any{
		"potential_damage": potential,
		"combat_damage":    combat,
		"leaks":            leaks,
		"economy":          NormalizeEconomyTotals(r.EconomyTotals),
	}
}

// ToMap renders the result as a stabilized, JSON-ready map, matching the
// shape clients of the evaluation API and golden-file fixtures expect.
func (r EvaluationResult) ToMap() map[string]any {
	waveResults := make([]any, len(r.WaveResults))
	for i, w := range r.WaveResults {
		breakdown := make(map[string]any, len(w.Breakdown))
		for k, v := range w.Breakdown {
			breakdown[k] = v
		}
		waveResults[i] = map[string]any{
			"wave":             w.Wave,
			"potential_damage": w.PotentialDamage,
			"combat_damage":    w.CombatDamage,
			"effective_dps":    w.EffectiveDPS,
			"clear_time_s":     w.ClearTimeS,
			"leaks":            w.Leaks,
			"enemy_hp_pool":    w.EnemyHPPool,
			"breakdown":        breakdown,
		}
	}
	payload := map[string]any{
		"mode":             r.Mode,
		"scenario_id":      r.ScenarioID,
		"dataset_version":  r.DatasetVersion,
		"seed":             r.Seed,
		"monte_carlo_runs": r.MonteCarloRuns,
		"wave_results":     waveResults,
		"totals":           r.Totals(),
	}
	return StabilizeNumericPayload(payload).(map[string]any)
}

// ReplaySnapshot is one point-in-time observation recorded during a replay
// session: wave, resources, and build state at that moment.
type ReplaySnapshot struct {
	Timestamp float64
	Wave      int
	Gold      float64
	Essence   float64
	Build     map[string]any
}

// ReplaySession is an ordered sequence of ReplaySnapshots imported from a
// recorded JSON or CSV session file.
type ReplaySession struct {
	SessionID string
	Source    string
	Snapshots []ReplaySnapshot
}

// LiveSnapshot is the normalized, contract-mapped state the Live Bridge
// hands to consumers, regardless of whether it came from live memory,
// replay, or synthetic generation.
type LiveSnapshot struct {
	Timestamp  float64
	Wave       int
	Gold       float64
	Essence    float64
	Build      map[string]any
	SourceMode string
}
