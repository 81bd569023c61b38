package model

// NormalizeEconomyTotals fills in derived economy fields (gross income,
// net income, worker bucket reconciliation) from a loosely-typed totals map,
// the way EvaluationResult.totals reports them regardless of which fields
// the engine happened to populate explicitly.
func NormalizeEconomyTotals(payload map[string]any) map[string]any {
	if payload == nil {
		payload = map[string]any{}
	}
	workers := asPayloadMap(payload["workers"])

	baselineGold := asFloat(payload["baseline_gold"], 0.0)
	baselineEssence := asFloat(payload["baseline_essence"], 0.0)
	workerGoldIncome := asFloat(payload["worker_gold_income"], 0.0)
	workerEssenceIncome := asFloat(payload["worker_essence_income"], 0.0)
	grossGoldIncome := asFloat(payload["gross_gold_income"], baselineGold+workerGoldIncome)
	grossEssenceIncome := asFloat(payload["gross_essence_income"], baselineEssence+workerEssenceIncome)
	buildSpendGold := asFloat(payload["build_spend_gold"], 0.0)
	buildInflationGold := asFloat(payload["build_inflation_gold"], 0.0)
	buildActions := asInt(payload["build_actions"], 0)
	if buildActions < 0 {
		buildActions = 0
	}

	totalWorkers := asInt(workers["total"], 0)
	if totalWorkers < 0 {
		totalWorkers = 0
	}
	workersGold := asInt(workers["gold"], 0)
	if workersGold < 0 {
		workersGold = 0
	}
	workersEssence := asInt(workers["essence"], 0)
	if workersEssence < 0 {
		workersEssence = 0
	}
	workersUnassigned := asInt(workers["unassigned"], totalWorkers-workersGold-workersEssence)
	if workersUnassigned < 0 {
		workersUnassigned = 0
	}

	if totalWorkers <= 0 {
		totalWorkers = workersGold + workersEssence + workersUnassigned
	}
	if workersGold+workersEssence+workersUnassigned > totalWorkers {
		workersUnassigned = totalWorkers - workersGold - workersEssence
		if workersUnassigned < 0 {
			workersUnassigned = 0
		}
	}

	policyID := asString(payload["policy_id"], "balanced")

	return map[string]any{
		"baseline_gold":        baselineGold,
		"baseline_essence":     baselineEssence,
		"worker_gold_income":   workerGoldIncome,
		"worker_essence_income": workerEssenceIncome,
		"gross_gold_income":    grossGoldIncome,
		"gross_essence_income": grossEssenceIncome,
		"build_spend_gold":     buildSpendGold,
		"build_inflation_gold": buildInflationGold,
		"build_actions":        buildActions,
		"net_gold":             asFloat(payload["net_gold"], grossGoldIncome-buildSpendGold),
		"net_essence":          asFloat(payload["net_essence"], grossEssenceIncome),
		"policy_id":            policyID,
		"workers": map[string]any{
			"total":      totalWorkers,
			"gold":       workersGold,
			"essence":    workersEssence,
			"unassigned": workersUnassigned,
		},
	}
}
