package calibration

// RequiredCombatFields and OptionalCombatFields mirror internal/profile's
// default combat field sets, duplicated here (rather than imported) because
// calibration payloads are scored before a Profile has necessarily been
// loaded.
var RequiredCombatFields = []string{"current_wave", "gold", "essence"}

// OptionalCombatFields enrich the recommendation signal but never block
// candidate validity.
var OptionalCombatFields = []string{"lives", "player_hp", "max_player_hp", "enemies_alive", "combat_time_s"}

func normalizeFieldNames(fields []string, fallback []string, allowEmpty bool) ([]string, error) {
	source := fields
	if source == nil {
		source = fallback
	}
	out := make([]string, 0, len(source))
	seen := make(map[string]bool, len(source))
	for _, item := range source {
		if item == "" {
			return nil, errorf("field name must be non-empty")
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) > 0 {
		return out, nil
	}
	if allowEmpty {
		return []string{}, nil
	}
	return nil, errorf("field set must include at least one field")
}

// ResolveCombatFieldSets reads required/optional combat field overrides out
// of a calibration payload, falling back to requiredFields/optionalFields.
func ResolveCombatFieldSets(payload map[string]any, requiredFields, optionalFields []string) ([]string, []string, error) {
	rawRequired, _ := payload["required_combat_fields"].([]any)
	if rawRequired == nil {
		rawRequired, _ = payload["required_fields"].([]any)
	}
	required, err := normalizeFieldNames(toStringSlice(rawRequired), requiredFields, false)
	if err != nil {
		return nil, nil, err
	}

	rawOptional, _ := payload["optional_combat_fields"].([]any)
	if rawOptional == nil {
		rawOptional, _ = payload["optional_fields"].([]any)
	}
	optional, err := normalizeFieldNames(toStringSlice(rawOptional), optionalFields, true)
	if err != nil {
		return nil, nil, err
	}

	requiredSet := make(map[string]bool, len(required))
	for _, r := range required {
		requiredSet[r] = true
	}
	filtered := make([]string, 0, len(optional))
	for _, o := range optional {
		if !requiredSet[o] {
			filtered = append(filtered, o)
		}
	}
	return required, filtered, nil
}

func toStringSlice(items []any) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
