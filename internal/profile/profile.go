package profile

import "strings"

// SupportedSignatureSchemas lists the memory_signatures schema_version
// values this build understands.
var SupportedSignatureSchemas = []string{"live_memory_v1", "live_memory_v2"}

// DefaultRequiredCombatFields are the fields every profile must resolve
// before the Live Bridge will treat memory mode as usable.
var DefaultRequiredCombatFields = []string{"current_wave", "gold", "essence"}

// DefaultOptionalCombatFields enrich the live snapshot when present but do
// not block connecting if unresolved.
var DefaultOptionalCombatFields = []string{"lives", "player_hp", "max_player_hp", "enemies_alive", "combat_time_s"}

func schemaSupported(version string) bool {
	for _, s := range SupportedSignatureSchemas {
		if s == version {
			return true
		}
	}
	return false
}

func resolveCombatFieldSets(payload map[string]any, defaultRequired, defaultOptional []string, labelPrefix string) ([]string, []string, error) {
	requiredRaw := payload["required_combat_fields"]
	if requiredRaw == nil {
		requiredRaw = payload["required_fields"]
	}
	required, err := parseFieldNames(requiredRaw, labelPrefix+".required_combat_fields", defaultRequired, false)
	if err != nil {
		return nil, nil, err
	}

	optionalRaw := payload["optional_combat_fields"]
	if optionalRaw == nil {
		optionalRaw = payload["optional_fields"]
	}
	optional, err := parseFieldNames(optionalRaw, labelPrefix+".optional_combat_fields", defaultOptional, true)
	if err != nil {
		return nil, nil, err
	}

	requiredSet := make(map[string]bool, len(required))
	for _, r := range required {
		requiredSet[r] = true
	}
	filteredOptional := make([]string, 0, len(optional))
	for _, o := range optional {
		if !requiredSet[o] {
			filteredOptional = append(filteredOptional, o)
		}
	}
	return required, filteredOptional, nil
}

// Profile is a fully parsed memory signature profile: which process and
// module to attach to, and where every combat field lives within it.
type Profile struct {
	ID                    string
	ProcessName           string
	ModuleName            string
	PollMS                int
	RequiredAdmin         bool
	PointerSize           int
	RequiredCombatFields  []string
	OptionalCombatFields  []string
	Fields                map[string]FieldSpec
}

// FromPayload validates and constructs a Profile from a decoded JSON
// object, defaulting missing fields against defaultProcessName and the
// supplied combat field defaults.
func FromPayload(payload map[string]any, defaultProcessName string, defaultRequired, defaultOptional []string) (Profile, error) {
	id := strings.TrimSpace(stringOr(payload["id"], ""))
	if id == "" {
		return Profile{}, errorf("signature profile missing non-empty 'id'")
	}

	processName := strings.TrimSpace(stringOr(payload["process_name"], defaultProcessName))
	if processName == "" {
		processName = defaultProcessName
	}
	moduleName := strings.TrimSpace(stringOr(payload["module_name"], processName))
	if moduleName == "" {
		moduleName = processName
	}

	pollMS := 1000
	if v, ok := payload["poll_ms"]; ok {
		pollMS = int(asFloatOrInt(v, 1000))
	}
	if pollMS < 200 {
		pollMS = 200
	}

	requiredAdmin := boolOr(payload["required_admin"], true)

	pointerSizeRaw := payload["pointer_size"]
	if pointerSizeRaw == nil {
		pointerSizeRaw = payload["pointer_size_bytes"]
	}
	pointerSize := int(asFloatOrInt(pointerSizeRaw, 0))
	if pointerSize != 0 && pointerSize != 4 && pointerSize != 8 {
		return Profile{}, errorf("signature profile %q has invalid pointer_size=%d; expected 4 or 8", id, pointerSize)
	}

	rawFields, ok := payload["fields"].(map[string]any)
	if !ok || len(rawFields) == 0 {
		return Profile{}, errorf("signature profile %q has empty or invalid 'fields'", id)
	}
	fields := make(map[string]FieldSpec, len(rawFields))
	for name, raw := range rawFields {
		fieldPayload, ok := raw.(map[string]any)
		if !ok {
			return Profile{}, errorf("field %q in profile %q must be an object", name, id)
		}
		spec, err := FieldSpecFromPayload(name, fieldPayload)
		if err != nil {
			return Profile{}, err
		}
		fields[name] = spec
	}

	required, optional, err := resolveCombatFieldSets(payload, defaultRequired, defaultOptional, "profile '"+id+"'")
	if err != nil {
		return Profile{}, err
	}

	return Profile{
		ID:                   id,
		ProcessName:          processName,
		ModuleName:           moduleName,
		PollMS:               pollMS,
		RequiredAdmin:        requiredAdmin,
		PointerSize:          pointerSize,
		RequiredCombatFields: required,
		OptionalCombatFields: optional,
		Fields:               fields,
	}, nil
}

func asFloatOrInt(v any, def int) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return def
	}
}

// EnsureRequiredFields returns an error naming every field in required (or
// the profile's own RequiredCombatFields if nil) missing from Fields.
func (p Profile) EnsureRequiredFields(required []string) error {
	if required == nil {
		required = p.RequiredCombatFields
	}
	var missing []string
	for _, name := range required {
		if _, ok := p.Fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errorf("signature profile %q missing required fields: %s", p.ID, strings.Join(missing, ", "))
	}
	return nil
}

// EnsureResolved returns an error if any of the given fields (or the
// profile's RequiredCombatFields) are missing or still carry a placeholder
// address.
func (p Profile) EnsureResolved(required []string) error {
	if required == nil {
		required = p.RequiredCombatFields
	}
	if err := p.EnsureRequiredFields(required); err != nil {
		return err
	}
	var unresolved []string
	for _, name := range required {
		if !p.Fields[name].Resolved() {
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 {
		return errorf("signature profile %q unresolved fields: %s", p.ID, strings.Join(unresolved, ", "))
	}
	return nil
}

// LoadMemoryProfile selects and parses one Profile out of a
// memory_signatures document: by explicit profileID if given, else by
// matching processName, else the first profile in the document.
func LoadMemoryProfile(signaturesPayload map[string]any, processName, profileID string) (Profile, error) {
	if signaturesPayload == nil {
		return Profile{}, errorf("memory_signatures payload must be a JSON object")
	}

	schemaVersion := strings.TrimSpace(stringOr(signaturesPayload["schema_version"], "live_memory_v1"))
	if schemaVersion == "" {
		schemaVersion = "live_memory_v1"
	}
	if !schemaSupported(schemaVersion) {
		return Profile{}, errorf("unsupported memory_signatures schema_version %q", schemaVersion)
	}

	defaultRequired, defaultOptional, err := resolveCombatFieldSets(signaturesPayload, DefaultRequiredCombatFields, DefaultOptionalCombatFields, "memory_signatures["+schemaVersion+"]")
	if err != nil {
		return Profile{}, err
	}

	rawProfiles, ok := signaturesPayload["profiles"].([]any)
	if !ok || len(rawProfiles) == 0 {
		return Profile{}, errorf("memory_signatures payload has no profiles")
	}

	var parsed []Profile
	for _, item := range rawProfiles {
		itemPayload, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p, err := FromPayload(itemPayload, processName, defaultRequired, defaultOptional)
		if err != nil {
			return Profile{}, err
		}
		parsed = append(parsed, p)
	}
	if len(parsed) == 0 {
		return Profile{}, errorf("memory_signatures payload contains no valid profiles")
	}

	if profileID != "" {
		for _, p := range parsed {
			if p.ID == profileID {
				return p, nil
			}
		}
		return Profile{}, errorf("requested signature profile not found: %s", profileID)
	}

	requested := strings.ToLower(strings.TrimSpace(processName))
	if requested != "" {
		for _, p := range parsed {
			if strings.ToLower(strings.TrimSpace(p.ProcessName)) == requested {
				return p, nil
			}
		}
	}

	return parsed[0], nil
}
