package engine

import "github.com/apollion69/nordhold-calculator/internal/model"

func dotExpectedDPS(dot model.DotEffect, rules model.Ruleset, globalDamageFactor float64) float64 {
	totalTicks := maxInt(1, int(dot.DurationS/maxF(eps, dot.TickIntervalS)))
	total := dot.DamagePerTick * float64(totalTicks)
	if rules.DotScalingPolicy == "global" {
		total *= globalDamageFactor
	}
	return total / maxF(eps, dot.DurationS)
}

func activeModifiers(scenario model.ScenarioDefinition, state *runtimeState) []model.Modifier {
	var modifiers []model.Modifier
	for _, id := range state.activeModifierIDs {
		if gm, ok := scenario.GlobalModifiers[id]; ok {
			modifiers = append(modifiers, gm.Modifiers...)
		}
	}
	return modifiers
}

// expectedWave computes the closed-form expected-mode result for one wave,
// grounded on the original engine's per-enemy-mix DPS weighting.
func expectedWave(scenario model.ScenarioDefinition, wave model.WaveDefinition, state *runtimeState) model.WaveResult {
	enemyCounts := map[string]int{}
	for _, spawn := range wave.Spawns {
		enemyCounts[spawn.EnemyID] += spawn.Count
	}

	totalEnemies := 0
	for _, c := range enemyCounts {
		totalEnemies += c
	}
	if totalEnemies <= 0 {
		return model.WaveResult{Wave: wave.Index, Breakdown: map[string]float64{}}
	}

	modifiers := activeModifiers(scenario, state)

	perTowerDPS := map[string]float64{}
	var effectiveDPS float64

	for _, rt := range state.towers {
		towerDef, ok := scenario.Towers[rt.towerID]
		if !ok {
			continue
		}
		stats := resolveTowerStats(towerDef, rt.level, modifiers)
		var towerMixDPS float64
		for enemyID, count := range enemyCounts {
			enemy, ok := scenario.Enemies[enemyID]
			if !ok {
				continue
			}
			weight := float64(count) / float64(totalEnemies)
			hit := hitChance(stats, enemy, scenario.Rules)
			armorFactor := armorDamageFactor(enemy, stats, scenario.Rules)
			directPerShot := stats.Damage * critFactorExpected(stats) * hit * armorFactor
			enemyDPS := directPerShot * stats.FireRate

			if enemy.Barrier > 0.0 {
				barrierScale := (enemy.HP + enemy.Barrier/maxF(eps, stats.BarrierDamageMultiplier)) / maxF(eps, enemy.HP+enemy.Barrier)
				enemyDPS *= barrierScale
			}

			var dotDPS float64
			for _, dot := range towerDef.DotEffects {
				dotDPS += dotExpectedDPS(dot, scenario.Rules, critFactorExpected(stats))
			}
			towerMixDPS += (enemyDPS + dotDPS) * weight
		}

		key := towerDef.Name
		perTowerDPS[key] += towerMixDPS
		effectiveDPS += towerMixDPS
	}

	var enemyHPPool, enemyUnitPool float64
	for enemyID, count := range enemyCounts {
		enemy, ok := scenario.Enemies[enemyID]
		if !ok {
			continue
		}
		enemyHPPool += (enemy.HP + enemy.Barrier) * float64(count)
		enemyUnitPool += enemy.HP * float64(count)
	}

	potentialDamage := effectiveDPS * wave.DurationS
	combatDamage := minF(enemyHPPool, potentialDamage)
	clearTimeS := enemyHPPool / maxF(eps, effectiveDPS)
	leaks := maxF(0.0, enemyHPPool-potentialDamage) / maxF(eps, enemyUnitPool)

	return model.WaveResult{
		Wave:            wave.Index,
		PotentialDamage: potentialDamage,
		CombatDamage:    combatDamage,
		EffectiveDPS:    effectiveDPS,
		ClearTimeS:      minF(wave.DurationS, clearTimeS),
		Leaks:           leaks,
		EnemyHPPool:     enemyHPPool,
		Breakdown:       perTowerDPS,
	}
}
