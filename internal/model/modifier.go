package model

// Modifier is a single stat adjustment applied by an upgrade level or a
// global modifier.
type Modifier struct {
	Target string
	Op     string
	Value  float64
}

var validModifierOps = map[string]bool{
	"add": true, "mul": true, "set": true, "cap_max": true, "cap_min": true,
}

// ModifierFromPayload validates and constructs a Modifier from a decoded
// JSON object.
func ModifierFromPayload(payload Payload) (Modifier, error) {
	target, err := requireString(payload, "target")
	if err != nil {
		return Modifier{}, err
	}
	opRaw, err := requireString(payload, "op")
	if err != nil {
		return Modifier{}, err
	}
	if !validModifierOps[opRaw] {
		return Modifier{}, errorf("unsupported modifier op: %s", opRaw)
	}
	value, err := requireFloat(payload, "value")
	if err != nil {
		return Modifier{}, err
	}
	return Modifier{Target: target, Op: opRaw, Value: value}, nil
}

func modifiersFromPayload(v any) ([]Modifier, error) {
	items := asPayloadSlice(v)
	out := make([]Modifier, 0, len(items))
	for _, item := range items {
		m, err := ModifierFromPayload(item)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DotEffect describes a damage-over-time effect a tower can apply.
type DotEffect struct {
	ID            string
	DamagePerTick float64
	TickIntervalS float64
	DurationS     float64
	MaxStacks     int
	Stacking      string
	Provenance    string
}

// DotEffectFromPayload validates and constructs a DotEffect.
func DotEffectFromPayload(payload Payload) (DotEffect, error) {
	id, err := requireString(payload, "id")
	if err != nil {
		return DotEffect{}, err
	}
	dmg, err := requireFloat(payload, "damage_per_tick")
	if err != nil {
		return DotEffect{}, err
	}
	tick, err := requireFloat(payload, "tick_interval_s")
	if err != nil {
		return DotEffect{}, err
	}
	dur, err := requireFloat(payload, "duration_s")
	if err != nil {
		return DotEffect{}, err
	}
	return DotEffect{
		ID:            id,
		DamagePerTick: dmg,
		TickIntervalS: tick,
		DurationS:     dur,
		MaxStacks:     asInt(payload["max_stacks"], 1),
		Stacking:      asString(payload["stacking"], "refresh_duration"),
		Provenance:    asString(payload["provenance"], "manual"),
	}, nil
}

func dotEffectsFromPayload(v any) ([]DotEffect, error) {
	items := asPayloadSlice(v)
	out := make([]DotEffect, 0, len(items))
	for _, item := range items {
		d, err := DotEffectFromPayload(item)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
