package analytics

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
			DotScalingPolicy:      "source_only",
			CriticalModel:         "expected",
		},
		Towers: map[string]model.TowerDefinition{
			"arrow_tower": {
				ID:   "arrow_tower",
				Name: "Arrow Tower",
				BaseStats: model.TowerStats{
					Damage: 10.0, FireRate: 2.0, CritChance: 0.2, CritMultiplier: 1.5,
					Accuracy: 0.9, Penetration: 0.1, BarrierDamageMultiplier: 1.0,
				},
			},
		},
		Enemies: map[string]model.EnemyDefinition{
			"grunt": {ID: "grunt", Name: "Grunt", HP: 100, Armor: 0.05, Speed: 1.0, Tags: []string{}},
		},
		Waves: []model.WaveDefinition{
			{Index: 1, DurationS: 10.0, Spawns: []model.SpawnDefinition{{AtS: 0, EnemyID: "grunt", Count: 3, IntervalS: 0.5}}},
		},
		GlobalModifiers: map[string]model.GlobalModifier{},
		Economy: model.EconomyDefinition{
			DefaultWaveGold: 100, DefaultWaveEssence: 10, InitialWorkers: 3, DefaultPolicyID: "balanced",
			Policies: map[string]model.EconomyPolicy{
				"balanced": {ID: "balanced", WorkerGoldMultiplier: 1.0, WorkerEssenceMultiplier: 1.0, BuildCostMultiplier: 1.0},
			},
		},
	}
}

func testBuild(count int) model.BuildPlan {
	return model.BuildPlan{
		ScenarioID: "scn-proving-grounds",
		Towers:     []model.TowerPlan{{TowerID: "arrow_tower", Count: count, Level: 0, FocusPriorities: []string{"progress"}}},
	}
}

func TestCompareBuilds_RanksDescendingByCombatDamage(t *testing.T) {
	builds := []model.BuildPlan{testBuild(1), testBuild(3), testBuild(2)}
	entries, err := CompareBuilds(testScenario(), "v1", builds, "expected", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if combatDamageOf(entries[i-1].Totals) < combatDamageOf(entries[i].Totals) {
			t.Errorf("entries not sorted descending at index %d", i)
		}
	}
}

func TestCompareBuilds_RejectsEmptySet(t *testing.T) {
	if _, err := CompareBuilds(testScenario(), "v1", nil, "expected", 1, 0); err == nil {
		t.Fatal("expected an error for an empty build set")
	}
}

func TestSensitivityAnalysis_DamageScalingIncreasesCombatDamage(t *testing.T) {
	result, err := SensitivityAnalysis(testScenario(), "v1", testBuild(2), "damage", []float64{0.5, 1.0, 2.0}, "expected", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(result.Points))
	}
	if result.Points[2].CombatDamage < result.Points[0].CombatDamage {
		t.Errorf("expected higher damage scale to not reduce combat damage: %v vs %v",
			result.Points[2].CombatDamage, result.Points[0].CombatDamage)
	}
}

func TestSensitivityAnalysis_RejectsUnknownParameter(t *testing.T) {
	_, err := SensitivityAnalysis(testScenario(), "v1", testBuild(1), "bogus", []float64{1.0}, "expected", 1, 0)
	if err == nil {
		t.Fatal("expected an error for an unsupported parameter")
	}
}

func TestForecastFromHistory_EmptyReturnsZeroed(t *testing.T) {
	forecast := ForecastFromHistory(nil, nil)
	if forecast.Samples != 0 || forecast.SuccessProbability != 0 {
		t.Errorf("expected zeroed forecast for empty history, got %+v", forecast)
	}
}

func TestForecastFromHistory_AveragesAndClampsProbability(t *testing.T) {
	history := []map[string]any{
		{"combat_damage": 100.0, "potential_damage": 120.0, "leaks": 1.0},
		{"combat_damage": 80.0, "potential_damage": 100.0, "leaks": 0.0},
	}
	forecast := ForecastFromHistory(history, nil)
	if forecast.Samples != 2 {
		t.Fatalf("expected 2 samples, got %d", forecast.Samples)
	}
	if forecast.ExpectedCombatDamage != 90.0 {
		t.Errorf("expected mean combat damage 90.0, got %v", forecast.ExpectedCombatDamage)
	}
	if forecast.SuccessProbability < 0 || forecast.SuccessProbability > 1 {
		t.Errorf("success probability must stay within [0,1], got %v", forecast.SuccessProbability)
	}
}

func TestForecastFromHistory_ZeroPotentialYieldsZeroProbability(t *testing.T) {
	history := []map[string]any{{"combat_damage": 0.0, "potential_damage": 0.0, "leaks": 0.0}}
	forecast := ForecastFromHistory(history, nil)
	if forecast.SuccessProbability != 0.0 {
		t.Errorf("expected zero success probability when potential damage is ~0, got %v", forecast.SuccessProbability)
	}
}
