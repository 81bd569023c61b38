// Package engine evaluates a BuildPlan against a ScenarioDefinition in
// expected, combat, or monte_carlo mode, producing deterministic per-wave
// damage/leak metrics and economy totals.
package engine

import (
	"sort"

	"github.com/apollion69/nordhold-calculator/internal/model"
	"github.com/apollion69/nordhold-calculator/internal/statutil"
)

const eps = 1e-9

func applyModifier(value float64, m model.Modifier) float64 {
	switch m.Op {
	case "add":
		return value + m.Value
	case "mul":
		return value * m.Value
	case "set":
		return m.Value
	case "cap_max":
		if value < m.Value {
			return value
		}
		return m.Value
	case "cap_min":
		if value > m.Value {
			return value
		}
		return m.Value
	default:
		return value
	}
}

func applyStatModifiers(base model.TowerStats, modifiers []model.Modifier) model.TowerStats {
	values := map[string]float64{
		"damage":                    base.Damage,
		"fire_rate":                 base.FireRate,
		"crit_chance":               base.CritChance,
		"crit_multiplier":           base.CritMultiplier,
		"accuracy":                  base.Accuracy,
		"penetration":               base.Penetration,
		"barrier_damage_multiplier": base.BarrierDamageMultiplier,
	}
	for _, m := range modifiers {
		if _, ok := values[m.Target]; !ok {
			continue
		}
		values[m.Target] = applyModifier(values[m.Target], m)
	}

	return model.TowerStats{
		Damage:                  maxF(0.0, values["damage"]),
		FireRate:                maxF(eps, values["fire_rate"]),
		CritChance:              statutil.Clamp(values["crit_chance"], 0.0, 1.0),
		CritMultiplier:          maxF(1.0, values["crit_multiplier"]),
		Accuracy:                statutil.Clamp(values["accuracy"], 0.0, 1.0),
		Penetration:             statutil.Clamp(values["penetration"], 0.0, 1.0),
		BarrierDamageMultiplier: maxF(0.01, values["barrier_damage_multiplier"]),
	}
}

func resolveTowerStats(tower model.TowerDefinition, level int, globalModifiers []model.Modifier) model.TowerStats {
	upgrades := append([]model.UpgradeLevel(nil), tower.UpgradeLevels...)
	sort.Slice(upgrades, func(i, j int) bool { return upgrades[i].Level < upgrades[j].Level })

	var modifiers []model.Modifier
	for _, upgrade := range upgrades {
		if upgrade.Level > level {
			break
		}
		modifiers = append(modifiers, upgrade.Modifiers...)
	}
	modifiers = append(modifiers, globalModifiers...)
	return applyStatModifiers(tower.BaseStats, modifiers)
}

func hitChance(stats model.TowerStats, enemy model.EnemyDefinition, rules model.Ruleset) float64 {
	if rules.AccuracyBlockModel == "multiplicative" {
		return statutil.Clamp(stats.Accuracy*(1.0-enemy.Block), 0.0, 1.0)
	}
	return statutil.Clamp(1.0-maxF(0.0, enemy.Block-stats.Accuracy), 0.0, 1.0)
}

func effectiveArmor(enemy model.EnemyDefinition, stats model.TowerStats, rules model.Ruleset) float64 {
	if rules.ArmorPenetrationModel == "multiplicative" {
		return statutil.Clamp(enemy.Armor*(1.0-stats.Penetration), 0.0, 1.0)
	}
	return statutil.Clamp(maxF(0.0, enemy.Armor-stats.Penetration), 0.0, 1.0)
}

func armorDamageFactor(enemy model.EnemyDefinition, stats model.TowerStats, rules model.Ruleset) float64 {
	return maxF(0.0, 1.0-effectiveArmor(enemy, stats, rules))
}

func critFactorExpected(stats model.TowerStats) float64 {
	return (1.0 - stats.CritChance) + (stats.CritChance * stats.CritMultiplier)
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
