package model

// TowerStats holds a tower's base combat stats before upgrade modifiers are
// applied.
type TowerStats struct {
	Damage                  float64
	FireRate                float64
	CritChance              float64
	CritMultiplier          float64
	Accuracy                float64
	Penetration             float64
	BarrierDamageMultiplier float64
}

// TowerStatsFromPayload validates and constructs TowerStats.
func TowerStatsFromPayload(payload Payload) (TowerStats, error) {
	damage, err := requireFloat(payload, "damage")
	if err != nil {
		return TowerStats{}, err
	}
	fireRate, err := requireFloat(payload, "fire_rate")
	if err != nil {
		return TowerStats{}, err
	}
	return TowerStats{
		Damage:                  damage,
		FireRate:                fireRate,
		CritChance:              asFloat(payload["crit_chance"], 0.0),
		CritMultiplier:          asFloat(payload["crit_multiplier"], 1.5),
		Accuracy:                asFloat(payload["accuracy"], 1.0),
		Penetration:             asFloat(payload["penetration"], 0.0),
		BarrierDamageMultiplier: asFloat(payload["barrier_damage_multiplier"], 1.0),
	}, nil
}

// UpgradeLevel describes one purchasable upgrade tier for a tower.
type UpgradeLevel struct {
	Level      int
	Cost       float64
	Modifiers  []Modifier
	Provenance string
}

// UpgradeLevelFromPayload validates and constructs an UpgradeLevel.
func UpgradeLevelFromPayload(payload Payload) (UpgradeLevel, error) {
	level, err := requireInt(payload, "level")
	if err != nil {
		return UpgradeLevel{}, err
	}
	modifiers, err := modifiersFromPayload(payload["modifiers"])
	if err != nil {
		return UpgradeLevel{}, err
	}
	return UpgradeLevel{
		Level:      level,
		Cost:       asFloat(payload["cost"], 0.0),
		Modifiers:  modifiers,
		Provenance: asString(payload["provenance"], "manual"),
	}, nil
}

func upgradeLevelsFromPayload(v any) ([]UpgradeLevel, error) {
	items := asPayloadSlice(v)
	out := make([]UpgradeLevel, 0, len(items))
	for _, item := range items {
		u, err := UpgradeLevelFromPayload(item)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// TowerDefinition is a complete tower archetype: its base stats, upgrade
// path, and any DoT effects it can apply.
type TowerDefinition struct {
	ID            string
	Name          string
	BaseStats     TowerStats
	Tags          []string
	UpgradeLevels []UpgradeLevel
	DotEffects    []DotEffect
	Provenance    string
}

// TowerDefinitionFromPayload validates and constructs a TowerDefinition.
func TowerDefinitionFromPayload(payload Payload) (TowerDefinition, error) {
	id, err := requireString(payload, "id")
	if err != nil {
		return TowerDefinition{}, err
	}
	name, err := requireString(payload, "name")
	if err != nil {
		return TowerDefinition{}, err
	}
	baseStatsRaw, err := require(payload, "base_stats")
	if err != nil {
		return TowerDefinition{}, err
	}
	baseStats, err := TowerStatsFromPayload(asPayload(baseStatsRaw))
	if err != nil {
		return TowerDefinition{}, err
	}
	upgradeLevels, err := upgradeLevelsFromPayload(payload["upgrade_levels"])
	if err != nil {
		return TowerDefinition{}, err
	}
	dotEffects, err := dotEffectsFromPayload(payload["dot_effects"])
	if err != nil {
		return TowerDefinition{}, err
	}
	return TowerDefinition{
		ID:            id,
		Name:          name,
		BaseStats:     baseStats,
		Tags:          asStringSlice(payload["tags"]),
		UpgradeLevels: upgradeLevels,
		DotEffects:    dotEffects,
		Provenance:    asString(payload["provenance"], "manual"),
	}, nil
}

// GlobalModifier is a scenario-wide modifier set, toggled on in a BuildPlan
// via its ID (e.g. a difficulty mutator or seasonal event buff).
type GlobalModifier struct {
	ID         string
	Name       string
	Modifiers  []Modifier
	Provenance string
}

// GlobalModifierFromPayload validates and constructs a GlobalModifier.
func GlobalModifierFromPayload(payload Payload) (GlobalModifier, error) {
	id, err := requireString(payload, "id")
	if err != nil {
		return GlobalModifier{}, err
	}
	name, err := requireString(payload, "name")
	if err != nil {
		return GlobalModifier{}, err
	}
	modifiers, err := modifiersFromPayload(payload["modifiers"])
	if err != nil {
		return GlobalModifier{}, err
	}
	return GlobalModifier{
		ID:         id,
		Name:       name,
		Modifiers:  modifiers,
		Provenance: asString(payload["provenance"], "manual"),
	}, nil
}
