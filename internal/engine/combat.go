package engine

import (
	"container/heap"
	"hash/fnv"
	"math/rand"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

// combatEvent is one entry in the discrete-event queue: a (time, serial)
// pair breaks ties deterministically, with serials assigned in strictly
// increasing order as events are scheduled.
type combatEvent struct {
	at      float64
	serial  int
	kind    string
	towerID int
	enemyID int
	dotID   int
}

type eventHeap []combatEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].serial < h[j].serial
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(combatEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type dotState struct {
	effectHash uint64
	damage     float64
	tickInt    float64
	end        float64
}

type enemyInstance struct {
	uid       int
	def       model.EnemyDefinition
	spawnTime float64
	hp        float64
	barrier   float64
	dots      map[int]*dotState
	alive     bool
}

type towerInstance struct {
	uid             int
	def             model.TowerDefinition
	stats           model.TowerStats
	focusPriorities []string
	focusUntilDeath bool
	stickyTargetUID int
}

func effectHash(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func targetScore(enemy *enemyInstance, now float64, priority string) float64 {
	progress := maxF(0.0, now-enemy.spawnTime) * maxF(0.0, enemy.def.Speed)
	hpTotal := enemy.hp + enemy.barrier

	switch priority {
	case "progress", "closest_to_gate":
		return progress
	case "lowest_hp":
		return -hpTotal
	case "highest_hp":
		return hpTotal
	case "fastest":
		return enemy.def.Speed
	case "barrier":
		return enemy.barrier
	case "boss_elite":
		if hasTag(enemy.def.Tags, "boss") || hasTag(enemy.def.Tags, "elite") {
			return 1.0
		}
		return 0.0
	case "healer":
		if hasTag(enemy.def.Tags, "healer") {
			return 1.0
		}
		return 0.0
	case "summoner", "spawner":
		if hasTag(enemy.def.Tags, "summoner") || hasTag(enemy.def.Tags, "spawner") {
			return 1.0
		}
		return 0.0
	default:
		return progress
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func pickTarget(now float64, tower *towerInstance, enemies []*enemyInstance) *enemyInstance {
	var alive []*enemyInstance
	for _, e := range enemies {
		if e.alive && now >= e.spawnTime {
			alive = append(alive, e)
		}
	}
	if len(alive) == 0 {
		return nil
	}

	if tower.focusUntilDeath && tower.stickyTargetUID != 0 {
		for _, candidate := range alive {
			if candidate.uid == tower.stickyTargetUID {
				return candidate
			}
		}
	}

	priorities := tower.focusPriorities
	if len(priorities) == 0 {
		priorities = []string{"progress"}
	}
	sortByScores(alive, now, priorities)
	target := alive[0]
	if tower.focusUntilDeath {
		tower.stickyTargetUID = target.uid
	}
	return target
}

// sortByScores sorts alive (descending) by the lexicographic tuple of
// target scores over priorities, mirroring Python's tuple-key sort.
func sortByScores(alive []*enemyInstance, now float64, priorities []string) {
	scoreKey := func(e *enemyInstance) []float64 {
		out := make([]float64, len(priorities))
		for i, p := range priorities {
			out[i] = targetScore(e, now, p)
		}
		return out
	}
	scores := make(map[int][]float64, len(alive))
	for _, e := range alive {
		scores[e.uid] = scoreKey(e)
	}
	for i := 1; i < len(alive); i++ {
		for j := i; j > 0 && lessScore(scores[alive[j-1].uid], scores[alive[j].uid]); j-- {
			alive[j-1], alive[j] = alive[j], alive[j-1]
		}
	}
}

// lessScore reports whether a ranks below b (so sorting puts higher tuples
// first, descending, matching Python's reverse=True tuple comparison).
func lessScore(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func applyDirectDamage(enemy *enemyInstance, tower *towerInstance, rules model.Ruleset, rng *rand.Rand, sampled bool) float64 {
	if !enemy.alive {
		return 0.0
	}

	stats := tower.stats
	hit := hitChance(stats, enemy.def, rules)
	if sampled && rng.Float64() > hit {
		return 0.0
	}

	var critical float64
	if sampled {
		if rng.Float64() < stats.CritChance {
			critical = stats.CritMultiplier
		} else {
			critical = 1.0
		}
	} else {
		critical = critFactorExpected(stats)
	}

	direct := stats.Damage * critical
	armorFactor := armorDamageFactor(enemy.def, stats, rules)

	var totalDamage float64
	if enemy.barrier > eps {
		barrierFactor := 1.0
		if rules.BarrierInheritsArmor {
			barrierFactor = armorFactor
		}
		barrierDamage := direct * stats.BarrierDamageMultiplier * barrierFactor
		absorbed := minF(enemy.barrier, barrierDamage)
		enemy.barrier -= absorbed
		totalDamage += absorbed

		overflow := maxF(0.0, barrierDamage-absorbed)
		if overflow > eps {
			hpDamage := overflow * armorFactor
			dealt := minF(enemy.hp, hpDamage)
			enemy.hp -= dealt
			totalDamage += dealt
		}
	} else {
		hpDamage := direct * armorFactor
		dealt := minF(enemy.hp, hpDamage)
		enemy.hp -= dealt
		totalDamage += dealt
	}

	if enemy.hp <= eps && enemy.barrier <= eps {
		enemy.alive = false
	}
	return totalDamage
}

func applyRegen(enemies []*enemyInstance, deltaS float64) {
	if deltaS <= 0 {
		return
	}
	for _, e := range enemies {
		if !e.alive || e.def.RegenPerS <= eps {
			continue
		}
		e.hp += e.def.RegenPerS * deltaS
		e.hp = minF(e.hp, e.def.HP)
	}
}

// simulateWaveCombat runs one discrete-event pass over a wave, seeded
// deterministically, returning per-tower-name damage shared evenly (the
// contracted approximation preserved for golden compatibility).
func simulateWaveCombat(scenario model.ScenarioDefinition, wave model.WaveDefinition, state *runtimeState, seed int64, sampled bool) model.WaveResult {
	rng := rand.New(rand.NewSource(seed))
	modifiers := activeModifiers(scenario, state)

	var towers []*towerInstance
	uid := 1
	for _, rt := range state.towers {
		towerDef, ok := scenario.Towers[rt.towerID]
		if !ok {
			continue
		}
		stats := resolveTowerStats(towerDef, rt.level, modifiers)
		towers = append(towers, &towerInstance{
			uid:             uid,
			def:             towerDef,
			stats:           stats,
			focusPriorities: rt.focusPriorities,
			focusUntilDeath: rt.focusUntilDeath,
		})
		uid++
	}

	var enemies []*enemyInstance
	enemyUID := 1
	var enemyHPPool float64
	for _, spawn := range wave.Spawns {
		enemyDef, ok := scenario.Enemies[spawn.EnemyID]
		if !ok {
			continue
		}
		for index := 0; index < spawn.Count; index++ {
			atS := spawn.AtS + (spawn.IntervalS * float64(index))
			enemies = append(enemies, &enemyInstance{
				uid:       enemyUID,
				def:       enemyDef,
				spawnTime: atS,
				hp:        enemyDef.HP,
				barrier:   enemyDef.Barrier,
				dots:      map[int]*dotState{},
				alive:     true,
			})
			enemyUID++
			enemyHPPool += enemyDef.HP + enemyDef.Barrier
		}
	}

	towerByUID := make(map[int]*towerInstance, len(towers))
	for _, t := range towers {
		towerByUID[t.uid] = t
	}
	enemyByUID := make(map[int]*enemyInstance, len(enemies))
	for _, e := range enemies {
		enemyByUID[e.uid] = e
	}

	events := &eventHeap{}
	heap.Init(events)
	serial := 0
	for _, t := range towers {
		heap.Push(events, combatEvent{at: 0.0, serial: serial, kind: "tower_attack", towerID: t.uid})
		serial++
	}

	now := 0.0
	var totalDamage float64
	clearTime := wave.DurationS
	nextDotUID := 1

	for events.Len() > 0 {
		ev := heap.Pop(events).(combatEvent)
		if ev.at > wave.DurationS {
			break
		}

		applyRegen(enemies, ev.at-now)
		now = ev.at

		switch ev.kind {
		case "tower_attack":
			tower, ok := towerByUID[ev.towerID]
			if !ok {
				continue
			}
			target := pickTarget(now, tower, enemies)
			if target != nil {
				totalDamage += applyDirectDamage(target, tower, scenario.Rules, rng, sampled)

				for _, dot := range tower.def.DotEffects {
					hash := effectHash(dot.ID)
					activeCount := 0
					for _, d := range target.dots {
						if d.effectHash == hash {
							activeCount++
						}
					}
					if activeCount >= maxInt(1, dot.MaxStacks) {
						continue
					}

					durationEnd := now + dot.DurationS
					tickInterval := maxF(eps, dot.TickIntervalS)
					dotUID := nextDotUID
					nextDotUID++
					baseDotDamage := dot.DamagePerTick
					if scenario.Rules.DotScalingPolicy == "global" {
						baseDotDamage *= critFactorExpected(tower.stats)
					}
					target.dots[dotUID] = &dotState{
						effectHash: hash,
						damage:     baseDotDamage,
						tickInt:    tickInterval,
						end:        durationEnd,
					}
					heap.Push(events, combatEvent{at: now + tickInterval, serial: serial, kind: "dot_tick", enemyID: target.uid, dotID: dotUID})
					serial++
				}
			}

			nextAttack := now + (1.0 / maxF(eps, tower.stats.FireRate))
			heap.Push(events, combatEvent{at: nextAttack, serial: serial, kind: "tower_attack", towerID: tower.uid})
			serial++

		case "dot_tick":
			enemy, ok := enemyByUID[ev.enemyID]
			if !ok || !enemy.alive {
				continue
			}
			state, ok := enemy.dots[ev.dotID]
			if !ok {
				continue
			}
			if now > state.end+eps {
				delete(enemy.dots, ev.dotID)
				continue
			}

			dealt := minF(enemy.hp, state.damage)
			enemy.hp -= dealt
			totalDamage += dealt
			if enemy.hp <= eps && enemy.barrier <= eps {
				enemy.alive = false
				enemy.dots = map[int]*dotState{}
				continue
			}

			nextTick := now + state.tickInt
			if nextTick <= state.end+eps {
				heap.Push(events, combatEvent{at: nextTick, serial: serial, kind: "dot_tick", enemyID: enemy.uid, dotID: ev.dotID})
				serial++
			} else {
				delete(enemy.dots, ev.dotID)
			}
		}

		if allDoneOrFuture(enemies, now) {
			if !futureSpawnExists(enemies, now, wave.DurationS) {
				clearTime = now
				break
			}
		}
	}

	var aliveCount int
	for _, e := range enemies {
		if e.alive && e.spawnTime <= wave.DurationS {
			aliveCount++
		}
	}
	leaks := float64(aliveCount)
	effectiveDPS := totalDamage / maxF(eps, wave.DurationS)

	breakdown := map[string]float64{}
	if len(towers) > 0 {
		perTowerShare := totalDamage / float64(len(towers))
		for _, t := range towers {
			breakdown[t.def.Name] += perTowerShare
		}
	}

	return model.WaveResult{
		Wave:            wave.Index,
		PotentialDamage: totalDamage,
		CombatDamage:    minF(enemyHPPool, totalDamage),
		EffectiveDPS:    effectiveDPS,
		ClearTimeS:      minF(clearTime, wave.DurationS),
		Leaks:           leaks,
		EnemyHPPool:     enemyHPPool,
		Breakdown:       breakdown,
	}
}

func allDoneOrFuture(enemies []*enemyInstance, now float64) bool {
	for _, e := range enemies {
		if e.alive && now >= e.spawnTime {
			return false
		}
	}
	return true
}

func futureSpawnExists(enemies []*enemyInstance, now, durationS float64) bool {
	for _, e := range enemies {
		if now < e.spawnTime && e.spawnTime <= durationS {
			return true
		}
	}
	return false
}
