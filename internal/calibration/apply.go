package calibration

import (
	"strings"

	"github.com/apollion69/nordhold-calculator/internal/profile"
)

func candidateTargetProfile(candidatePayload map[string]any) string {
	raw := candidatePayload["profile_id"]
	if raw == nil {
		raw = candidatePayload["base_profile_id"]
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// ApplyCalibrationCandidate merges a chosen calibration candidate's field
// overrides onto baseProfile, returning the calibrated profile and the id of
// the candidate actually selected (which may differ from candidateID if the
// caller left it blank and the recommendation chose on its behalf).
//
// Only candidates whose profile_id/base_profile_id is empty or matches
// baseProfile.ID are eligible. Field overrides are merged field-by-field: a
// candidate may override a subset of base fields, or introduce fields the
// base profile never declared.
func ApplyCalibrationCandidate(baseProfile profile.Profile, calibrationPayload map[string]any, candidateID string) (profile.Profile, string, error) {
	if calibrationPayload == nil {
		return profile.Profile{}, "", errorf("calibration payload must be an object")
	}

	entries, err := IterCandidateEntries(calibrationPayload)
	if err != nil {
		return profile.Profile{}, "", err
	}

	compatibleByID := make(map[string]map[string]any, len(entries))
	compatiblePayload := make(map[string]any, len(entries))
	compatibleList := make([]any, 0, len(entries))
	for _, entry := range entries {
		target := candidateTargetProfile(entry.Payload)
		if target != "" && target != baseProfile.ID {
			continue
		}
		withID := make(map[string]any, len(entry.Payload)+1)
		for k, v := range entry.Payload {
			withID[k] = v
		}
		withID["id"] = entry.ID
		compatibleByID[entry.ID] = entry.Payload
		compatiblePayload[entry.ID] = withID
		compatibleList = append(compatibleList, withID)
	}

	if len(compatibleList) == 0 {
		return profile.Profile{}, "", errorf("calibration payload has no candidates compatible with active profile '%s'", baseProfile.ID)
	}

	activeCandidateID := ""
	if s, ok := calibrationPayload["active_candidate_id"].(string); ok {
		activeCandidateID = s
	} else if s, ok := calibrationPayload["active_candidate"].(string); ok {
		activeCandidateID = s
	}
	activeCandidateID = strings.TrimSpace(activeCandidateID)
	requestedID := strings.TrimSpace(candidateID)

	narrowedPayload := map[string]any{
		"active_candidate_id": activeCandidateID,
		"candidates":          compatibleList,
	}
	selectedID, err := ChooseCalibrationCandidateID(narrowedPayload, requestedID, baseProfile.RequiredCombatFields, baseProfile.OptionalCombatFields)
	if err != nil {
		return profile.Profile{}, "", err
	}

	selectedPayload := compatibleByID[selectedID]
	rawFields, ok := selectedPayload["fields"].(map[string]any)
	if !ok || len(rawFields) == 0 {
		return profile.Profile{}, "", errorf("calibration candidate '%s' has empty or invalid 'fields'", selectedID)
	}

	mergedFields := make(map[string]profile.FieldSpec, len(baseProfile.Fields)+len(rawFields))
	for name, baseSpec := range baseProfile.Fields {
		overrideRaw, present := rawFields[name]
		if !present || overrideRaw == nil {
			mergedFields[name] = baseSpec
			continue
		}
		override, ok := overrideRaw.(map[string]any)
		if !ok {
			return profile.Profile{}, "", errorf("calibration candidate '%s' field override '%s' must be an object", selectedID, name)
		}
		merged := baseSpec.ToPayload()
		for k, v := range override {
			merged[k] = v
		}
		spec, err := profile.FieldSpecFromPayload(name, merged)
		if err != nil {
			return profile.Profile{}, "", err
		}
		mergedFields[name] = spec
	}
	for name, overrideRaw := range rawFields {
		if _, exists := mergedFields[name]; exists {
			continue
		}
		override, ok := overrideRaw.(map[string]any)
		if !ok {
			return profile.Profile{}, "", errorf("calibration candidate '%s' field override '%s' must be an object", selectedID, name)
		}
		spec, err := profile.FieldSpecFromPayload(name, override)
		if err != nil {
			return profile.Profile{}, "", err
		}
		mergedFields[name] = spec
	}

	pointerSize := baseProfile.PointerSize
	rawPointerSize := selectedPayload["pointer_size"]
	if rawPointerSize == nil {
		rawPointerSize = selectedPayload["pointer_size_bytes"]
	}
	if rawPointerSize != nil {
		pointerSize = asPointerSize(rawPointerSize)
		if pointerSize != 0 && pointerSize != 4 && pointerSize != 8 {
			return profile.Profile{}, "", errorf("invalid pointer_size for candidate '%s': %d; expected 4 or 8", selectedID, pointerSize)
		}
	}

	pollMS := baseProfile.PollMS
	if rawPollMS, ok := selectedPayload["poll_ms"]; ok {
		pollMS = asPointerSize(rawPollMS)
	}
	if pollMS < 200 {
		pollMS = 200
	}

	processName := strings.TrimSpace(stringOr(selectedPayload["process_name"], baseProfile.ProcessName))
	if processName == "" {
		processName = baseProfile.ProcessName
	}
	moduleName := strings.TrimSpace(stringOr(selectedPayload["module_name"], baseProfile.ModuleName))
	if moduleName == "" {
		moduleName = baseProfile.ModuleName
	}
	requiredAdmin := boolOr(selectedPayload["required_admin"], baseProfile.RequiredAdmin)

	resultProfileID := strings.TrimSpace(stringOr(selectedPayload["result_profile_id"], ""))
	if resultProfileID == "" {
		resultProfileID = baseProfile.ID + "@" + selectedID
	}

	requiredFields, optionalFields, err := ResolveCombatFieldSets(selectedPayload, baseProfile.RequiredCombatFields, baseProfile.OptionalCombatFields)
	if err != nil {
		return profile.Profile{}, "", err
	}

	calibrated := profile.Profile{
		ID:                   resultProfileID,
		ProcessName:          processName,
		ModuleName:           moduleName,
		PollMS:               pollMS,
		RequiredAdmin:        requiredAdmin,
		PointerSize:          pointerSize,
		RequiredCombatFields: requiredFields,
		OptionalCombatFields: optionalFields,
		Fields:               mergedFields,
	}
	return calibrated, selectedID, nil
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func asPointerSize(v any) int {
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
