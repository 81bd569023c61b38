package bridge

import (
	"strconv"
	"strings"
)

// optionalMemoryFieldAliases names the combat-block fields a raw-memory
// reading may carry under several historical names, resolved before the
// required contract fields so combat block values participate in the same
// alias-then-default lookup as everything else.
var optionalMemoryFieldAliases = map[string][]string{
	"combat_block_value":   {"combat_block_value", "combat_block", "block_value", "block"},
	"combat_block_percent": {"combat_block_percent", "combat_block_pct", "block_percent", "block_pct"},
	"combat_block_flat":    {"combat_block_flat", "combat_block_amount", "block_flat", "block_amount"},
}

// liveRawMemoryNumericFields are the numeric fields every normalized
// snapshot guarantees, regardless of which aliases the signature profile
// actually resolved.
var liveRawMemoryNumericFields = []string{
	"current_wave", "gold", "essence", "wood", "stone", "wheat",
	"workers_total", "workers_free", "tower_inflation_index",
	"base_hp_current", "base_hp_max", "leaks_total", "enemies_alive",
	"boss_hp_current", "boss_hp_max", "wave_elapsed_s", "wave_remaining_s",
	"barrier_hp_total", "enemy_regen_total_per_s",
}

// liveRawMemoryBoolFields are the boolean fields every normalized snapshot
// guarantees.
var liveRawMemoryBoolFields = []string{"boss_alive", "is_combat_phase"}

var liveRawMemoryFieldAliases = map[string][]string{
	"current_wave":            {"current_wave", "wave"},
	"gold":                    {"gold"},
	"essence":                 {"essence"},
	"wood":                    {"wood"},
	"stone":                   {"stone"},
	"wheat":                   {"wheat"},
	"workers_total":           {"workers_total", "workers", "population_total"},
	"workers_free":            {"workers_free", "free_workers", "idle_workers", "population_free"},
	"tower_inflation_index":   {"tower_inflation_index", "inflation_index", "build_cost_index"},
	"base_hp_current":         {"base_hp_current", "base_hp", "player_hp", "current_hp", "base_health"},
	"base_hp_max":             {"base_hp_max", "max_player_hp", "max_hp", "player_hp_max", "base_health_max"},
	"leaks_total":             {"leaks_total", "leaks", "wave_leaks", "leak_count"},
	"enemies_alive":           {"enemies_alive", "alive_enemies", "enemy_alive"},
	"boss_alive":              {"boss_alive", "is_boss_alive", "boss_present"},
	"boss_hp_current":         {"boss_hp_current", "boss_hp", "boss_health"},
	"boss_hp_max":             {"boss_hp_max", "max_boss_hp", "boss_health_max", "boss_max_hp"},
	"wave_elapsed_s":          {"wave_elapsed_s", "combat_time_s", "wave_time_s"},
	"wave_remaining_s":        {"wave_remaining_s", "wave_time_left_s", "combat_time_remaining_s"},
	"barrier_hp_total":        {"barrier_hp_total", "barrier_hp", "barrier_health", "shield_hp"},
	"enemy_regen_total_per_s": {"enemy_regen_total_per_s", "regen_per_s", "regen_ps", "hp_regen_per_s"},
	"is_combat_phase":         {"is_combat_phase", "combat_phase", "in_combat"},
}

var liveRawMemoryNumericDefaults = map[string]float64{
	"current_wave":            0.0,
	"gold":                    0.0,
	"essence":                 0.0,
	"wood":                    0.0,
	"stone":                   0.0,
	"wheat":                   0.0,
	"workers_total":           0.0,
	"workers_free":            0.0,
	"tower_inflation_index":   1.0,
	"base_hp_current":         0.0,
	"base_hp_max":             0.0,
	"leaks_total":             0.0,
	"enemies_alive":           0.0,
	"boss_hp_current":         0.0,
	"boss_hp_max":             0.0,
	"wave_elapsed_s":          0.0,
	"wave_remaining_s":        0.0,
	"barrier_hp_total":        0.0,
	"enemy_regen_total_per_s": 0.0,
}

var truthyText = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "on": true, "t": true}
var falsyText = map[string]bool{"0": true, "false": true, "no": true, "n": true, "off": true, "f": true, "": true}

func resolveNumericField(source map[string]any, aliases []string, def float64) float64 {
	for _, name := range aliases {
		raw, ok := source[name]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return def
}

func resolveBoolField(source map[string]any, aliases []string, def bool) bool {
	for _, name := range aliases {
		raw, ok := source[name]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case bool:
			return v
		case float64:
			return v != 0.0
		case float32:
			return v != 0.0
		case int:
			return v != 0
		case int64:
			return v != 0
		case string:
			text := strings.ToLower(strings.TrimSpace(v))
			if truthyText[text] {
				return true
			}
			if falsyText[text] {
				return false
			}
		}
	}
	return def
}

// normalizeRawMemoryValues resolves the optional combat-block aliases (when
// not already present under their canonical name) before applying the full
// contract normalization.
func normalizeRawMemoryValues(values map[string]any) map[string]any {
	normalized := make(map[string]any, len(values)+4)
	for k, v := range values {
		normalized[k] = v
	}
	for canonical, aliases := range optionalMemoryFieldAliases {
		if _, ok := normalized[canonical]; ok {
			continue
		}
		normalized[canonical] = resolveNumericField(normalized, aliases, 0.0)
	}
	ensureLiveRawMemoryContractFields(normalized)
	return normalized
}

// ensureLiveRawMemoryContractFields guarantees every contract numeric and
// boolean field is present in values, resolved via its alias list or a
// default, and fills in the two inferred fields (leaks_total,
// is_combat_phase) when no direct alias supplied them.
func ensureLiveRawMemoryContractFields(values map[string]any) {
	source := make(map[string]any, len(values))
	for k, v := range values {
		source[k] = v
	}

	for _, field := range liveRawMemoryNumericFields {
		aliases := liveRawMemoryFieldAliases[field]
		if aliases == nil {
			aliases = []string{field}
		}
		def := liveRawMemoryNumericDefaults[field]
		values[field] = resolveNumericField(source, aliases, def)
	}

	leaksAliases := liveRawMemoryFieldAliases["leaks_total"]
	if !anyAliasPresent(source, leaksAliases) {
		baseHPCurrent := asInt(values["base_hp_current"])
		baseHPMax := asInt(values["base_hp_max"])
		if baseHPMax > 0 {
			remaining := baseHPCurrent
			if remaining < 0 {
				remaining = 0
			}
			leaks := baseHPMax - remaining
			if leaks < 0 {
				leaks = 0
			}
			values["leaks_total"] = float64(leaks)
		}
	}

	for _, field := range liveRawMemoryBoolFields {
		aliases := liveRawMemoryFieldAliases[field]
		if aliases == nil {
			aliases = []string{field}
		}
		values[field] = resolveBoolField(source, aliases, false)
	}

	combatPhaseAliases := liveRawMemoryFieldAliases["is_combat_phase"]
	if !anyAliasPresent(source, combatPhaseAliases) {
		values["is_combat_phase"] = asInt(values["enemies_alive"]) > 0
	}
}

func anyAliasPresent(source map[string]any, aliases []string) bool {
	for _, a := range aliases {
		if _, ok := source[a]; ok {
			return true
		}
	}
	return false
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return 0
	}
}

// combatBlock is the resolved {value, percent, flat} triple a raw-memory
// snapshot carries for its combat-block display.
type combatBlock struct {
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Flat    float64 `json:"flat"`
}

func combatBlockPayload(values map[string]any) combatBlock {
	return combatBlock{
		Value:   resolveNumericField(values, []string{"combat_block_value"}, 0.0),
		Percent: resolveNumericField(values, []string{"combat_block_percent"}, 0.0),
		Flat:    resolveNumericField(values, []string{"combat_block_flat"}, 0.0),
	}
}
