package model

import "sort"

// EconomyPolicy scales worker income and build costs. Scenarios can define
// several (e.g. "balanced", "rush", "turtle") and a build plan action can
// switch between them mid-run.
type EconomyPolicy struct {
	ID                      string
	WorkerGoldMultiplier    float64
	WorkerEssenceMultiplier float64
	BuildCostMultiplier     float64
}

// EconomyPolicyFromPayload validates and constructs an EconomyPolicy.
func EconomyPolicyFromPayload(payload Payload) (EconomyPolicy, error) {
	id, err := requireString(payload, "id")
	if err != nil {
		return EconomyPolicy{}, err
	}
	return EconomyPolicy{
		ID:                      id,
		WorkerGoldMultiplier:    asFloat(payload["worker_gold_multiplier"], 1.0),
		WorkerEssenceMultiplier: asFloat(payload["worker_essence_multiplier"], 1.0),
		BuildCostMultiplier:     asFloat(payload["build_cost_multiplier"], 1.0),
	}, nil
}

// WaveResourceBaseline overrides the default per-wave gold/essence grant for
// a specific wave index.
type WaveResourceBaseline struct {
	Wave    int
	Gold    float64
	Essence float64
}

// WaveResourceBaselineFromPayload validates and constructs a
// WaveResourceBaseline.
func WaveResourceBaselineFromPayload(payload Payload) (WaveResourceBaseline, error) {
	wave, err := requireInt(payload, "wave")
	if err != nil {
		return WaveResourceBaseline{}, err
	}
	return WaveResourceBaseline{
		Wave:    wave,
		Gold:    asFloat(payload["gold"], 0.0),
		Essence: asFloat(payload["essence"], 0.0),
	}, nil
}

// EconomyDefinition is the resource-accumulation ruleset for a scenario:
// baseline wave income, worker assignment, and build-cost inflation.
type EconomyDefinition struct {
	DefaultWaveGold                float64
	DefaultWaveEssence             float64
	WaveResourceBaseline           []WaveResourceBaseline
	InitialWorkers                 int
	InitialWorkersGold             int
	InitialWorkersEssence          int
	WorkerGoldIncomePerWave        float64
	WorkerEssenceIncomePerWave     float64
	BuildCostInflationRate         float64
	BuildCostInflationMaxMultiplier float64
	DefaultPolicyID                string
	Policies                       map[string]EconomyPolicy
}

// EconomyDefinitionFromPayload validates and constructs an
// EconomyDefinition. A "balanced" policy is synthesized when absent, and an
// unknown default_policy_id falls back to "balanced" rather than failing —
// scenario authoring tools are expected to catch that class of mistake, not
// the evaluation path.
func EconomyDefinitionFromPayload(payload Payload) (EconomyDefinition, error) {
	baselineItems := asPayloadSlice(payload["wave_resource_baseline"])
	baselines := make([]WaveResourceBaseline, 0, len(baselineItems))
	for _, item := range baselineItems {
		b, err := WaveResourceBaselineFromPayload(item)
		if err != nil {
			return EconomyDefinition{}, err
		}
		baselines = append(baselines, b)
	}
	sort.Slice(baselines, func(i, j int) bool { return baselines[i].Wave < baselines[j].Wave })

	policyItems := asPayloadSlice(payload["policies"])
	policies := make(map[string]EconomyPolicy, len(policyItems)+1)
	for _, item := range policyItems {
		p, err := EconomyPolicyFromPayload(item)
		if err != nil {
			return EconomyDefinition{}, err
		}
		policies[p.ID] = p
	}
	if _, ok := policies["balanced"]; !ok {
		policies["balanced"] = EconomyPolicy{ID: "balanced", WorkerGoldMultiplier: 1.0, WorkerEssenceMultiplier: 1.0, BuildCostMultiplier: 1.0}
	}

	defaultPolicyID := asString(payload["default_policy_id"], "")
	if defaultPolicyID == "" {
		defaultPolicyID = asString(payload["default_policy"], "balanced")
	}
	if _, ok := policies[defaultPolicyID]; !ok {
		defaultPolicyID = "balanced"
	}

	return EconomyDefinition{
		DefaultWaveGold:                 asFloat(payload["default_wave_gold"], 0.0),
		DefaultWaveEssence:              asFloat(payload["default_wave_essence"], 0.0),
		WaveResourceBaseline:            baselines,
		InitialWorkers:                  asInt(payload["initial_workers"], 0),
		InitialWorkersGold:              asInt(payload["initial_workers_gold"], 0),
		InitialWorkersEssence:           asInt(payload["initial_workers_essence"], 0),
		WorkerGoldIncomePerWave:         asFloat(payload["worker_gold_income_per_wave"], 0.0),
		WorkerEssenceIncomePerWave:      asFloat(payload["worker_essence_income_per_wave"], 0.0),
		BuildCostInflationRate:          asFloat(payload["build_cost_inflation_rate"], 0.0),
		BuildCostInflationMaxMultiplier: asFloat(payload["build_cost_inflation_max_multiplier"], 2.0),
		DefaultPolicyID:                 defaultPolicyID,
		Policies:                        policies,
	}, nil
}

func defaultEconomyDefinition() EconomyDefinition {
	def, _ := EconomyDefinitionFromPayload(Payload{})
	return def
}
