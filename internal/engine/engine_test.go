package engine

import (
	"testing"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

func testScenario() model.ScenarioDefinition {
	return model.ScenarioDefinition{
		ID:   "scn-proving-grounds",
		Name: "Proving Grounds",
		Rules: model.Ruleset{
			AccuracyBlockModel:    "linear_subtract",
			ArmorPenetrationModel: "linear_subtract",
			BarrierInheritsArmor:  false,
			DotScalingPolicy:      "source_only",
			CriticalModel:         "expected",
		},
		Towers: map[string]model.TowerDefinition{
			"arrow_tower": {
				ID:   "arrow_tower",
				Name: "Arrow Tower",
				BaseStats: model.TowerStats{
					Damage:                  10.0,
					FireRate:                2.0,
					CritChance:              0.2,
					CritMultiplier:          1.5,
					Accuracy:                0.9,
					Penetration:             0.1,
					BarrierDamageMultiplier: 1.0,
				},
				UpgradeLevels: []model.UpgradeLevel{
					{Level: 1, Cost: 50, Modifiers: []model.Modifier{{Target: "damage", Op: "add", Value: 5.0}}},
				},
			},
		},
		Enemies: map[string]model.EnemyDefinition{
			"grunt": {
				ID: "grunt", Name: "Grunt", HP: 100, Armor: 0.05, Block: 0.0, Barrier: 0,
				RegenPerS: 0.0, Speed: 1.0, Tags: []string{},
			},
		},
		Waves: []model.WaveDefinition{
			{
				Index:     1,
				DurationS: 10.0,
				Spawns:    []model.SpawnDefinition{{AtS: 0, EnemyID: "grunt", Count: 3, IntervalS: 0.5}},
			},
		},
		GlobalModifiers: map[string]model.GlobalModifier{},
		Economy: model.EconomyDefinition{
			DefaultWaveGold:    100,
			DefaultWaveEssence: 10,
			InitialWorkers:     3,
			DefaultPolicyID:    "balanced",
			Policies: map[string]model.EconomyPolicy{
				"balanced": {ID: "balanced", WorkerGoldMultiplier: 1.0, WorkerEssenceMultiplier: 1.0, BuildCostMultiplier: 1.0},
			},
		},
	}
}

func testBuild() model.BuildPlan {
	return model.BuildPlan{
		ScenarioID: "scn-proving-grounds",
		Towers: []model.TowerPlan{
			{TowerID: "arrow_tower", Count: 2, Level: 1, FocusPriorities: []string{"progress", "lowest_hp"}},
		},
	}
}

func TestEvaluateTimeline_UnsupportedMode(t *testing.T) {
	_, err := EvaluateTimeline(testScenario(), testBuild(), "v1", "bogus", 1, 1)
	if err == nil {
		t.Fatal("expected an error for an unsupported mode")
	}
}

func TestEvaluateTimeline_ExpectedMode(t *testing.T) {
	result, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeExpected, 42, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.WaveResults) != 1 {
		t.Fatalf("expected 1 wave result, got %d", len(result.WaveResults))
	}
	wr := result.WaveResults[0]
	if wr.PotentialDamage <= 0 {
		t.Errorf("expected positive potential damage, got %v", wr.PotentialDamage)
	}
	if wr.CombatDamage > wr.EnemyHPPool+1e-6 {
		t.Errorf("combat damage %v exceeds enemy hp pool %v", wr.CombatDamage, wr.EnemyHPPool)
	}
}

func TestEvaluateTimeline_ExpectedModeDeterministic(t *testing.T) {
	a, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeExpected, 7, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeExpected, 7, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ToMap()["wave_results"] == nil || b.ToMap()["wave_results"] == nil {
		t.Fatal("expected non-nil wave results in stabilized output")
	}
	if a.WaveResults[0].PotentialDamage != b.WaveResults[0].PotentialDamage {
		t.Errorf("expected byte-identical potential damage across runs, got %v vs %v",
			a.WaveResults[0].PotentialDamage, b.WaveResults[0].PotentialDamage)
	}
}

func TestEvaluateTimeline_CombatModeLeaksAreWholeEnemies(t *testing.T) {
	result, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeCombat, 11, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wr := result.WaveResults[0]
	if wr.Leaks != float64(int(wr.Leaks)) {
		t.Errorf("expected whole-number leaks in combat mode, got %v", wr.Leaks)
	}
}

func TestEvaluateTimeline_CombatModeDeterministicForSameSeed(t *testing.T) {
	a, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeCombat, 99, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeCombat, 99, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.WaveResults[0].CombatDamage != b.WaveResults[0].CombatDamage {
		t.Errorf("same seed must reproduce identical combat damage, got %v vs %v",
			a.WaveResults[0].CombatDamage, b.WaveResults[0].CombatDamage)
	}
	if a.WaveResults[0].Leaks != b.WaveResults[0].Leaks {
		t.Errorf("same seed must reproduce identical leaks, got %v vs %v",
			a.WaveResults[0].Leaks, b.WaveResults[0].Leaks)
	}
}

func TestEvaluateTimeline_MonteCarloAveragesAcrossRuns(t *testing.T) {
	result, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeMonteCarlo, 5, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MonteCarloRuns != 8 {
		t.Errorf("expected MonteCarloRuns to be recorded as 8, got %d", result.MonteCarloRuns)
	}
	wr := result.WaveResults[0]
	if wr.CombatDamage < 0 {
		t.Errorf("expected non-negative averaged combat damage, got %v", wr.CombatDamage)
	}
}

func TestEvaluateTimeline_EconomyBookkeeping(t *testing.T) {
	result, err := EvaluateTimeline(testScenario(), testBuild(), "v1", ModeExpected, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	economy := result.EconomyTotals
	gross, _ := economy["gross_gold_income"].(float64)
	spend, _ := economy["build_spend_gold"].(float64)
	net, _ := economy["net_gold"].(float64)
	if net != gross-spend {
		t.Errorf("expected net_gold == gross_gold_income - build_spend_gold, got %v != %v - %v", net, gross, spend)
	}

	workers, ok := economy["workers"].(map[string]any)
	if !ok {
		t.Fatal("expected workers breakdown in economy totals")
	}
	total, _ := workers["total"].(int)
	gold, _ := workers["gold"].(int)
	essence, _ := workers["essence"].(int)
	unassigned, _ := workers["unassigned"].(int)
	if gold+essence+unassigned != total {
		t.Errorf("worker buckets must conserve total: %d+%d+%d != %d", gold, essence, unassigned, total)
	}
}
