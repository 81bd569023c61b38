package model

import "sort"

// SpawnDefinition is one spawn group within a wave: a repeated enemy spawn
// starting at at_s and repeating every interval_s.
type SpawnDefinition struct {
	AtS       float64
	EnemyID   string
	Count     int
	IntervalS float64
}

// SpawnDefinitionFromPayload validates and constructs a SpawnDefinition.
func SpawnDefinitionFromPayload(payload Payload) (SpawnDefinition, error) {
	atS, err := requireFloat(payload, "at_s")
	if err != nil {
		return SpawnDefinition{}, err
	}
	enemyID, err := requireString(payload, "enemy_id")
	if err != nil {
		return SpawnDefinition{}, err
	}
	count, err := requireInt(payload, "count")
	if err != nil {
		return SpawnDefinition{}, err
	}
	return SpawnDefinition{
		AtS:       atS,
		EnemyID:   enemyID,
		Count:     count,
		IntervalS: asFloat(payload["interval_s"], 0.0),
	}, nil
}

func spawnsFromPayload(v any) ([]SpawnDefinition, error) {
	items := asPayloadSlice(v)
	out := make([]SpawnDefinition, 0, len(items))
	for _, item := range items {
		s, err := SpawnDefinitionFromPayload(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WaveDefinition is one enemy wave within a scenario.
type WaveDefinition struct {
	Index      int
	DurationS  float64
	Spawns     []SpawnDefinition
	Provenance string
}

// WaveDefinitionFromPayload validates and constructs a WaveDefinition.
func WaveDefinitionFromPayload(payload Payload) (WaveDefinition, error) {
	index, err := requireInt(payload, "index")
	if err != nil {
		return WaveDefinition{}, err
	}
	durationS, err := requireFloat(payload, "duration_s")
	if err != nil {
		return WaveDefinition{}, err
	}
	spawns, err := spawnsFromPayload(payload["spawns"])
	if err != nil {
		return WaveDefinition{}, err
	}
	return WaveDefinition{
		Index:      index,
		DurationS:  durationS,
		Spawns:     spawns,
		Provenance: asString(payload["provenance"], "manual"),
	}, nil
}

func wavesFromPayload(v any) ([]WaveDefinition, error) {
	items := asPayloadSlice(v)
	out := make([]WaveDefinition, 0, len(items))
	for _, item := range items {
		w, err := WaveDefinitionFromPayload(item)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Ruleset selects which combat formulas a scenario uses.
type Ruleset struct {
	AccuracyBlockModel    string
	ArmorPenetrationModel string
	BarrierInheritsArmor  bool
	DotScalingPolicy      string
	CriticalModel         string
}

// RulesetFromPayload constructs a Ruleset, defaulting every field when the
// payload is empty or partial.
func RulesetFromPayload(payload Payload) Ruleset {
	return Ruleset{
		AccuracyBlockModel:    asString(payload["accuracy_block_model"], "linear_subtract"),
		ArmorPenetrationModel: asString(payload["armor_penetration_model"], "linear_subtract"),
		BarrierInheritsArmor:  asBool(payload["barrier_inherits_armor"], false),
		DotScalingPolicy:      asString(payload["dot_scaling_policy"], "source_only"),
		CriticalModel:         asString(payload["critical_model"], "expected"),
	}
}
