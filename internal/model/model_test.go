package model

import "testing"

func validTowerPayload() Payload {
	return Payload{
		"id":   "arrow",
		"name": "Arrow Tower",
		"base_stats": Payload{
			"damage":    10.0,
			"fire_rate": 1.5,
		},
	}
}

func TestScenarioDefinitionFromPayload_Minimal(t *testing.T) {
	payload := Payload{
		"id":   "scenario-1",
		"name": "Opening Gambit",
		"towers": []any{
			validTowerPayload(),
		},
		"enemies": []any{
			Payload{"id": "grunt", "name": "Grunt", "hp": 100.0},
		},
		"waves": []any{
			Payload{"index": 2.0, "duration_s": 30.0},
			Payload{"index": 1.0, "duration_s": 20.0},
		},
	}

	scenario, err := ScenarioDefinitionFromPayload(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scenario.ID != "scenario-1" {
		t.Errorf("expected id scenario-1, got %s", scenario.ID)
	}
	if len(scenario.Waves) != 2 || scenario.Waves[0].Index != 1 {
		t.Fatalf("expected waves sorted by index, got %+v", scenario.Waves)
	}
	if _, ok := scenario.Economy.Policies["balanced"]; !ok {
		t.Error("expected default balanced policy to be synthesized")
	}
}

func TestScenarioDefinitionFromPayload_DuplicateTowerIDRejected(t *testing.T) {
	payload := Payload{
		"id":   "scenario-1",
		"name": "Dup",
		"towers": []any{
			validTowerPayload(),
			validTowerPayload(),
		},
	}
	if _, err := ScenarioDefinitionFromPayload(payload); err == nil {
		t.Fatal("expected duplicate tower id to be rejected")
	}
}

func TestScenarioDefinitionFromPayload_MissingRequiredField(t *testing.T) {
	if _, err := ScenarioDefinitionFromPayload(Payload{"name": "No ID"}); err == nil {
		t.Fatal("expected missing id to fail validation")
	}
}

func TestModifierFromPayload_RejectsUnknownOp(t *testing.T) {
	_, err := ModifierFromPayload(Payload{"target": "damage", "op": "frobnicate", "value": 1.0})
	if err == nil {
		t.Fatal("expected unsupported op to be rejected")
	}
}

func TestBuildPlanFromPayload_SortsActions(t *testing.T) {
	payload := Payload{
		"scenario_id": "scenario-1",
		"actions": []any{
			Payload{"wave": 2.0, "at_s": 1.0, "type": "upgrade"},
			Payload{"wave": 1.0, "at_s": 5.0, "type": "place"},
			Payload{"wave": 1.0, "at_s": 2.0, "type": "place"},
		},
	}
	plan, err := BuildPlanFromPayload(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(plan.Actions))
	}
	if plan.Actions[0].Wave != 1 || plan.Actions[0].AtS != 2.0 {
		t.Errorf("expected first action at wave 1/2.0s, got %+v", plan.Actions[0])
	}
	if plan.Actions[2].Wave != 2 {
		t.Errorf("expected last action in wave 2, got %+v", plan.Actions[2])
	}
}

func TestNormalizeEconomyTotals_DerivesGrossAndNet(t *testing.T) {
	totals := NormalizeEconomyTotals(map[string]any{
		"baseline_gold":      100.0,
		"worker_gold_income": 50.0,
		"build_spend_gold":   30.0,
	})
	if totals["gross_gold_income"] != 150.0 {
		t.Errorf("expected gross_gold_income 150.0, got %v", totals["gross_gold_income"])
	}
	if totals["net_gold"] != 120.0 {
		t.Errorf("expected net_gold 120.0, got %v", totals["net_gold"])
	}
}

func TestNormalizeEconomyTotals_ReconcilesWorkerBuckets(t *testing.T) {
	totals := NormalizeEconomyTotals(map[string]any{
		"workers": map[string]any{
			"total":   5,
			"gold":    3,
			"essence": 3,
		},
	})
	workers := totals["workers"].(map[string]any)
	if workers["unassigned"] != 0 {
		t.Errorf("expected unassigned to clamp to 0 when gold+essence exceed total, got %v", workers["unassigned"])
	}
}

func TestStableFloat_NormalizesSignedZero(t *testing.T) {
	if StableFloat(-0.0000000000001) != 0.0 {
		t.Error("expected near-zero value to normalize to 0.0")
	}
}

func TestEvaluationResult_Totals(t *testing.T) {
	result := EvaluationResult{
		WaveResults: []WaveResult{
			{Wave: 1, PotentialDamage: 100, CombatDamage: 90, Leaks: 1},
			{Wave: 2, PotentialDamage: 200, CombatDamage: 180, Leaks: 0},
		},
	}
	totals := result.Totals()
	if totals["potential_damage"] != 300.0 {
		t.Errorf("expected potential_damage 300.0, got %v", totals["potential_damage"])
	}
	if totals["combat_damage"] != 270.0 {
		t.Errorf("expected combat_damage 270.0, got %v", totals["combat_damage"])
	}
}

func TestEnsureUniqueIDs(t *testing.T) {
	if err := EnsureUniqueIDs([]string{"a", "b", "c"}, "tower"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnsureUniqueIDs([]string{"a", "b", "a"}, "tower"); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}
