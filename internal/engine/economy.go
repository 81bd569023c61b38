package engine

import (
	"sort"
	"strings"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

type economyState struct {
	totalWorkers      int
	workersGold       int
	workersEssence    int
	workersUnassigned int
	policyID          string
	buildCount        int
}

func initialEconomyState(scenario model.ScenarioDefinition) *economyState {
	economy := scenario.Economy
	totalWorkers := maxInt(0, economy.InitialWorkers)
	workersGold := maxInt(0, minInt(totalWorkers, economy.InitialWorkersGold))
	workersEssence := maxInt(0, minInt(totalWorkers-workersGold, economy.InitialWorkersEssence))
	workersUnassigned := maxInt(0, totalWorkers-workersGold-workersEssence)
	policyID := economy.DefaultPolicyID
	if _, ok := economy.Policies[policyID]; !ok {
		policyID = "balanced"
	}
	return &economyState{
		totalWorkers:      totalWorkers,
		workersGold:       workersGold,
		workersEssence:    workersEssence,
		workersUnassigned: workersUnassigned,
		policyID:          policyID,
	}
}

func resolveEconomyPolicy(economy model.EconomyDefinition, policyID string) model.EconomyPolicy {
	if p, ok := economy.Policies[policyID]; ok {
		return p
	}
	if p, ok := economy.Policies[economy.DefaultPolicyID]; ok {
		return p
	}
	return model.EconomyPolicy{ID: "balanced", WorkerGoldMultiplier: 1.0, WorkerEssenceMultiplier: 1.0, BuildCostMultiplier: 1.0}
}

func baselineResourcesForWave(economy model.EconomyDefinition, waveIndex int) (float64, float64) {
	for _, item := range economy.WaveResourceBaseline {
		if item.Wave == waveIndex {
			return item.Gold, item.Essence
		}
	}
	return economy.DefaultWaveGold, economy.DefaultWaveEssence
}

func applyWorkerDistribution(state *economyState, workersGold, workersEssence int) {
	workersGold = maxInt(0, workersGold)
	workersEssence = maxInt(0, workersEssence)
	if workersGold+workersEssence > state.totalWorkers {
		overflow := workersGold + workersEssence - state.totalWorkers
		if workersEssence >= overflow {
			workersEssence -= overflow
		} else {
			overflow -= workersEssence
			workersEssence = 0
			workersGold = maxInt(0, workersGold-overflow)
		}
	}
	state.workersGold = workersGold
	state.workersEssence = workersEssence
	state.workersUnassigned = maxInt(0, state.totalWorkers-workersGold-workersEssence)
}

func applyAssignWorkersAction(state *economyState, action model.BuildAction) {
	payload := action.Payload
	explicitGold, hasGold := firstNonNil(payload, "gold_workers", "gold")
	explicitEssence, hasEssence := firstNonNil(payload, "essence_workers", "essence")
	if hasGold || hasEssence {
		targetGold := state.workersGold
		if hasGold {
			targetGold = asIntDefault(explicitGold, state.workersGold)
		}
		targetEssence := state.workersEssence
		if hasEssence {
			targetEssence = asIntDefault(explicitEssence, state.workersEssence)
		}
		applyWorkerDistribution(state, targetGold, targetEssence)
		return
	}

	resource := asString(payload["resource"], action.TargetID)
	delta := asIntDefault(payload["count"], int(action.Value))
	if (resource != "gold" && resource != "essence") || delta == 0 {
		return
	}

	if delta > 0 {
		moved := minInt(state.workersUnassigned, delta)
		if resource == "gold" {
			state.workersGold += moved
		} else {
			state.workersEssence += moved
		}
		state.workersUnassigned -= moved
		return
	}

	available := state.workersEssence
	if resource == "gold" {
		available = state.workersGold
	}
	amount := minInt(available, -delta)
	if resource == "gold" {
		state.workersGold -= amount
	} else {
		state.workersEssence -= amount
	}
	state.workersUnassigned += amount
}

func firstNonNil(payload map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func applyEconomyPolicyAction(state *economyState, action model.BuildAction, economy model.EconomyDefinition) {
	payload := action.Payload
	requested := asString(payload["policy_id"], asString(payload["policy"], action.TargetID))
	if requested == "" {
		return
	}
	if _, ok := economy.Policies[requested]; ok {
		state.policyID = requested
	}
}

func buildActionCount(action model.BuildAction) int {
	return maxInt(0, asIntDefault(action.Payload["count"], maxInt(1, int(action.Value))))
}

func buildActionLevel(action model.BuildAction) int {
	return maxInt(0, asIntDefault(action.Payload["level"], 0))
}

func buildActionTowerID(action model.BuildAction) string {
	return asString(action.Payload["tower_id"], action.TargetID)
}

func approxBuildCost(scenario model.ScenarioDefinition, towerID string, level int) float64 {
	tower, ok := scenario.Towers[towerID]
	if !ok {
		return 75.0 + (25.0 * float64(maxInt(0, level)))
	}

	upgrades := append([]model.UpgradeLevel(nil), tower.UpgradeLevels...)
	sort.Slice(upgrades, func(i, j int) bool { return upgrades[i].Level < upgrades[j].Level })
	if len(upgrades) == 0 {
		return 75.0 + (25.0 * float64(maxInt(0, level)))
	}

	base := maxF(1.0, upgrades[0].Cost)
	if level <= 1 {
		return base
	}

	extra := 0.0
	for _, upgrade := range upgrades {
		if upgrade.Level > 1 && upgrade.Level <= level {
			extra += maxF(0.0, upgrade.Cost)
		}
	}
	return maxF(1.0, base+extra)
}

// evaluateEconomyTotals replays the action script against each wave and
// returns the normalized economy totals map.
func evaluateEconomyTotals(scenario model.ScenarioDefinition, build model.BuildPlan) map[string]any {
	economy := scenario.Economy
	state := initialEconomyState(scenario)
	actionsByWave := make(map[int][]model.BuildAction)
	for _, action := range build.Actions {
		actionsByWave[action.Wave] = append(actionsByWave[action.Wave], action)
	}

	var baselineGoldTotal, baselineEssenceTotal float64
	var workerGoldIncomeTotal, workerEssenceIncomeTotal float64
	var buildSpendGoldTotal, buildInflationGoldTotal float64
	var buildActionsTotal int

	for _, wave := range scenario.Waves {
		baselineGold, baselineEssence := baselineResourcesForWave(economy, wave.Index)
		baselineGoldTotal += baselineGold
		baselineEssenceTotal += baselineEssence

		policy := resolveEconomyPolicy(economy, state.policyID)
		workerGoldIncomeTotal += float64(state.workersGold) * economy.WorkerGoldIncomePerWave * policy.WorkerGoldMultiplier
		workerEssenceIncomeTotal += float64(state.workersEssence) * economy.WorkerEssenceIncomePerWave * policy.WorkerEssenceMultiplier

		for _, action := range actionsByWave[wave.Index] {
			switch strings.ToLower(strings.TrimSpace(action.Type)) {
			case "assign_workers":
				applyAssignWorkersAction(state, action)
			case "economy_policy":
				applyEconomyPolicyAction(state, action, economy)
			case "build":
				count := buildActionCount(action)
				if count <= 0 {
					continue
				}
				towerID := buildActionTowerID(action)
				level := buildActionLevel(action)
				unitCost := approxBuildCost(scenario, towerID, level)
				baseCost := unitCost * float64(count)

				inflationMultiplier := 1.0 + (maxF(0.0, economy.BuildCostInflationRate) * float64(state.buildCount))
				inflationMultiplier = minF(maxF(1.0, economy.BuildCostInflationMaxMultiplier), inflationMultiplier)
				currentPolicy := resolveEconomyPolicy(economy, state.policyID)
				policyMultiplier := maxF(0.1, currentPolicy.BuildCostMultiplier)
				totalCost := baseCost * inflationMultiplier * policyMultiplier

				buildSpendGoldTotal += totalCost
				buildInflationGoldTotal += maxF(0.0, totalCost-baseCost)
				buildActionsTotal += count
				state.buildCount += count
			}
		}
	}

	grossGoldIncome := baselineGoldTotal + workerGoldIncomeTotal
	grossEssenceIncome := baselineEssenceTotal + workerEssenceIncomeTotal

	return model.NormalizeEconomyTotals(map[string]any{
		"baseline_gold":         baselineGoldTotal,
		"baseline_essence":      baselineEssenceTotal,
		"worker_gold_income":    workerGoldIncomeTotal,
		"worker_essence_income": workerEssenceIncomeTotal,
		"gross_gold_income":     grossGoldIncome,
		"gross_essence_income":  grossEssenceIncome,
		"build_spend_gold":      buildSpendGoldTotal,
		"build_inflation_gold":  buildInflationGoldTotal,
		"build_actions":         buildActionsTotal,
		"net_gold":              grossGoldIncome - buildSpendGoldTotal,
		"net_essence":           grossEssenceIncome,
		"policy_id":             state.policyID,
		"workers": map[string]any{
			"total":      state.totalWorkers,
			"gold":       state.workersGold,
			"essence":    state.workersEssence,
			"unassigned": state.workersUnassigned,
		},
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
