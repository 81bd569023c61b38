package model

// ScenarioDefinition is a complete tower-defense level: its rules, towers,
// enemies, wave schedule, global modifiers, and economy.
type ScenarioDefinition struct {
	ID              string
	Name            string
	Description     string
	Rules           Ruleset
	Towers          map[string]TowerDefinition
	Enemies         map[string]EnemyDefinition
	Waves           []WaveDefinition
	GlobalModifiers map[string]GlobalModifier
	Economy         EconomyDefinition
}

// ScenarioDefinitionFromPayload validates and constructs a
// ScenarioDefinition. Unlike the loosely-typed lookup tables it is built
// from, duplicate tower, enemy, or global-modifier ids are rejected rather
// than silently keeping the last one seen.
func ScenarioDefinitionFromPayload(payload Payload) (ScenarioDefinition, error) {
	id, err := requireString(payload, "id")
	if err != nil {
		return ScenarioDefinition{}, err
	}
	name, err := requireString(payload, "name")
	if err != nil {
		return ScenarioDefinition{}, err
	}

	towerItems := asPayloadSlice(payload["towers"])
	towerIDs := make([]string, 0, len(towerItems))
	towers := make(map[string]TowerDefinition, len(towerItems))
	for _, item := range towerItems {
		t, err := TowerDefinitionFromPayload(item)
		if err != nil {
			return ScenarioDefinition{}, err
		}
		towerIDs = append(towerIDs, t.ID)
		towers[t.ID] = t
	}
	if err := EnsureUniqueIDs(towerIDs, "tower"); err != nil {
		return ScenarioDefinition{}, err
	}

	enemyItems := asPayloadSlice(payload["enemies"])
	enemyIDs := make([]string, 0, len(enemyItems))
	enemies := make(map[string]EnemyDefinition, len(enemyItems))
	for _, item := range enemyItems {
		e, err := EnemyDefinitionFromPayload(item)
		if err != nil {
			return ScenarioDefinition{}, err
		}
		enemyIDs = append(enemyIDs, e.ID)
		enemies[e.ID] = e
	}
	if err := EnsureUniqueIDs(enemyIDs, "enemy"); err != nil {
		return ScenarioDefinition{}, err
	}

	globalModifierItems := asPayloadSlice(payload["global_modifiers"])
	globalModifierIDs := make([]string, 0, len(globalModifierItems))
	globalModifiers := make(map[string]GlobalModifier, len(globalModifierItems))
	for _, item := range globalModifierItems {
		g, err := GlobalModifierFromPayload(item)
		if err != nil {
			return ScenarioDefinition{}, err
		}
		globalModifierIDs = append(globalModifierIDs, g.ID)
		globalModifiers[g.ID] = g
	}
	if err := EnsureUniqueIDs(globalModifierIDs, "global modifier"); err != nil {
		return ScenarioDefinition{}, err
	}

	waves, err := wavesFromPayload(payload["waves"])
	if err != nil {
		return ScenarioDefinition{}, err
	}

	var economy EconomyDefinition
	if raw, ok := payload["economy"]; ok {
		economy, err = EconomyDefinitionFromPayload(asPayload(raw))
		if err != nil {
			return ScenarioDefinition{}, err
		}
	} else {
		economy = defaultEconomyDefinition()
	}

	return ScenarioDefinition{
		ID:              id,
		Name:            name,
		Description:     asString(payload["description"], ""),
		Rules:           RulesetFromPayload(asPayload(payload["rules"])),
		Towers:          towers,
		Enemies:         enemies,
		Waves:           waves,
		GlobalModifiers: globalModifiers,
		Economy:         economy,
	}, nil
}
