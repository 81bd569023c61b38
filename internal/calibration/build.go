package calibration

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultCalibrationCandidatesGlob matches the scanner's emitted candidate files under worklogs/.
	DefaultCalibrationCandidatesGlob = "memory_calibration_candidates*.json"
	// CandidatesSchemaV1 is the legacy calibration candidates schema, kept for compatibility reads.
	CandidatesSchemaV1 = "nordhold_memory_calibration_candidates_v1"
	// CandidatesSchemaV2 is the current calibration candidates schema this package writes.
	CandidatesSchemaV2 = "nordhold_memory_calibration_candidates_v2"
)

// BuildCandidatesOptions configures BuildCalibrationCandidatesFromSnapshots.
type BuildCandidatesOptions struct {
	ProjectRoot              string
	RequiredFieldMetaPaths   map[string]string
	OptionalFieldMetaPaths   map[string]string
	ProfileID                string
	CandidatePrefix          string
	MaxRecordsPerField       int
	MaxCandidates            int
	ActiveCandidateID        string
	RequiredAdmin            bool
	RequiredFields           []string
	OptionalFields           []string
}

func resolveMetaPath(projectRoot, raw string) string {
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(projectRoot, raw))
}

func resolveRecordsPath(projectRoot, metaPath string, metaPayload map[string]any) (string, error) {
	var candidates []string

	rawRecords := ""
	if s, ok := metaPayload["records_path"].(string); ok {
		rawRecords = strings.TrimSpace(s)
	}
	if rawRecords != "" {
		normalized := strings.ReplaceAll(rawRecords, "\\", "/")
		if filepath.IsAbs(normalized) {
			candidates = append(candidates, filepath.Clean(normalized))
		} else {
			candidates = append(candidates, filepath.Clean(filepath.Join(projectRoot, normalized)))
			candidates = append(candidates, filepath.Clean(filepath.Join(filepath.Dir(metaPath), normalized)))
		}
	}

	base := filepath.Base(metaPath)
	if strings.HasSuffix(base, ".meta.json") {
		stem := strings.TrimSuffix(base, ".meta.json")
		candidates = append(candidates, filepath.Join(filepath.Dir(metaPath), stem+".records.tsv"))
	} else {
		ext := filepath.Ext(metaPath)
		candidates = append(candidates, strings.TrimSuffix(metaPath, ext)+".records.tsv")
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errorf("snapshot records file was not found for meta '%s'. Tried: %s", metaPath, strings.Join(candidates, ", "))
}

// ReadSnapshotAddresses loads a scanner snapshot meta+records pair and
// returns the distinct candidate addresses it narrowed down to, in file
// order, capped at maxRecordsPerField.
func ReadSnapshotAddresses(projectRoot, metaPath string, maxRecordsPerField int, readJSONFile func(string) (map[string]any, error)) ([]int64, string, string, error) {
	metaPayload, err := readJSONFile(metaPath)
	if err != nil {
		return nil, "", "", errorf("snapshot meta file not found or invalid: %s: %v", metaPath, err)
	}

	valueType := "int32"
	if s, ok := metaPayload["value_type"].(string); ok && strings.TrimSpace(s) != "" {
		valueType = strings.ToLower(strings.TrimSpace(s))
	}
	if valueType != "int32" && valueType != "float32" {
		return nil, "", "", errorf("snapshot '%s' has unsupported value_type '%s'. Supported scanner value types: int32|float32.", metaPath, valueType)
	}

	recordsPath, err := resolveRecordsPath(projectRoot, metaPath, metaPayload)
	if err != nil {
		return nil, "", "", err
	}

	file, err := os.Open(recordsPath)
	if err != nil {
		return nil, "", "", errorf("cannot open snapshot records: %s: %v", recordsPath, err)
	}
	defer file.Close()

	var addresses []int64
	seen := make(map[int64]bool)
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		row := strings.TrimSpace(scanner.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		parts := strings.Split(row, "\t")
		if len(parts) < 1 {
			continue
		}
		address, err := ParseAddressInt(parts[0], fmt.Sprintf("%s:%d:address", recordsPath, lineNumber))
		if err != nil {
			return nil, "", "", err
		}
		if seen[address] {
			continue
		}
		seen[address] = true
		addresses = append(addresses, address)
		if maxRecordsPerField > 0 && len(addresses) >= maxRecordsPerField {
			break
		}
	}

	if len(addresses) == 0 {
		return nil, "", "", errorf("snapshot records have no candidate addresses: %s", recordsPath)
	}
	return addresses, valueType, recordsPath, nil
}

// cartesianProduct enumerates the product of each field's address list in
// the same nested order as itertools.product. max_records_per_field bounds
// each field's address list, so this stays small in practice even though
// it is built eagerly rather than lazily.
func cartesianProduct(fields []string, addressesByField map[string][]int64) [][]int64 {
	if len(fields) == 0 {
		return nil
	}
	combos := [][]int64{{}}
	for _, field := range fields {
		values := addressesByField[field]
		next := make([][]int64, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				extended := append(append([]int64{}, combo...), v)
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

// BuildCalibrationCandidatesFromSnapshots generates a calibration candidates
// payload by taking the Cartesian product of every combat field's narrowed
// scanner addresses, capped at MaxCandidates, and attaches a deterministic
// recommendation over the result.
func BuildCalibrationCandidatesFromSnapshots(opts BuildCandidatesOptions, readJSONFile func(string) (map[string]any, error)) (map[string]any, error) {
	if opts.MaxRecordsPerField <= 0 {
		return nil, errorf("max_records_per_field must be > 0")
	}
	if opts.MaxCandidates <= 0 {
		return nil, errorf("max_candidates must be > 0")
	}

	required, err := normalizeFieldNames(opts.RequiredFields, nil, false)
	if err != nil {
		return nil, err
	}
	declaredOptional, err := normalizeFieldNames(opts.OptionalFields, nil, true)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range required {
		if _, ok := opts.RequiredFieldMetaPaths[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errorf("missing snapshot meta path(s) for required field(s): %s", strings.Join(missing, ", "))
	}

	requiredSet := make(map[string]bool, len(required))
	for _, r := range required {
		requiredSet[r] = true
	}

	var selectedOptional []string
	normalizedOptionalMeta := make(map[string]string)
	for name, path := range opts.OptionalFieldMetaPaths {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errorf("optional_field_snapshot_meta_paths contains an empty field name")
		}
		if requiredSet[name] {
			return nil, errorf("optional field '%s' conflicts with required field set", name)
		}
		normalizedOptionalMeta[name] = path
		selectedOptional = append(selectedOptional, name)
	}

	seenOptional := make(map[string]bool)
	var effectiveOptional []string
	for _, name := range append(append([]string{}, declaredOptional...), selectedOptional...) {
		if requiredSet[name] || seenOptional[name] {
			continue
		}
		seenOptional[name] = true
		effectiveOptional = append(effectiveOptional, name)
	}

	selectedFields := append(append([]string{}, required...), selectedOptional...)

	addressesByField := make(map[string][]int64)
	valueTypeByField := make(map[string]string)
	recordsByField := make(map[string]string)
	metaByField := make(map[string]string)

	for _, name := range required {
		metaPath := resolveMetaPath(opts.ProjectRoot, opts.RequiredFieldMetaPaths[name])
		addresses, valueType, recordsPath, err := ReadSnapshotAddresses(opts.ProjectRoot, metaPath, opts.MaxRecordsPerField, readJSONFile)
		if err != nil {
			return nil, err
		}
		addressesByField[name] = addresses
		valueTypeByField[name] = valueType
		recordsByField[name] = recordsPath
		metaByField[name] = metaPath
	}
	for _, name := range selectedOptional {
		metaPath := resolveMetaPath(opts.ProjectRoot, normalizedOptionalMeta[name])
		addresses, valueType, recordsPath, err := ReadSnapshotAddresses(opts.ProjectRoot, metaPath, opts.MaxRecordsPerField, readJSONFile)
		if err != nil {
			return nil, err
		}
		addressesByField[name] = addresses
		valueTypeByField[name] = valueType
		recordsByField[name] = recordsPath
		metaByField[name] = metaPath
	}

	combinationSpace := 1
	for _, name := range selectedFields {
		combinationSpace *= len(addressesByField[name])
	}

	combos := cartesianProduct(selectedFields, addressesByField)
	combinationTruncated := len(combos) > opts.MaxCandidates
	if combinationTruncated {
		combos = combos[:opts.MaxCandidates]
	}

	prefix := opts.CandidatePrefix
	if prefix == "" {
		prefix = "artifact_combo"
	}

	candidates := make([]any, 0, len(combos))
	selectedAddressesPerField := make(map[string]any, len(selectedFields))
	for _, name := range selectedFields {
		selectedAddressesPerField[name] = len(addressesByField[name])
	}

	for index, combo := range combos {
		fieldsPayload := make(map[string]any, len(selectedFields))
		for i, name := range selectedFields {
			fieldsPayload[name] = map[string]any{
				"source":             "address",
				"type":               valueTypeByField[name],
				"address":            fmt.Sprintf("0x%x", combo[i]),
				"relative_to_module": false,
			}
		}
		candidate := map[string]any{
			"id":             fmt.Sprintf("%s_%d", prefix, index+1),
			"required_admin": opts.RequiredAdmin,
			"fields":         fieldsPayload,
		}
		if strings.TrimSpace(opts.ProfileID) != "" {
			candidate["profile_id"] = strings.TrimSpace(opts.ProfileID)
		}
		candidates = append(candidates, candidate)
	}

	if len(candidates) == 0 {
		return nil, errorf("no calibration candidates were generated from provided snapshots")
	}

	firstID, _ := candidates[0].(map[string]any)["id"].(string)
	activeID := strings.TrimSpace(opts.ActiveCandidateID)
	if activeID == "" {
		activeID = firstID
	}

	recordsPathStrings := make(map[string]any, len(recordsByField))
	for name, path := range recordsByField {
		recordsPathStrings[name] = path
	}
	metaPathStrings := make(map[string]any, len(metaByField))
	for name, path := range metaByField {
		metaPathStrings[name] = path
	}

	payload := map[string]any{
		"schema":                         CandidatesSchemaV2,
		"schema_compatibility":           []any{CandidatesSchemaV1, CandidatesSchemaV2},
		"memory_schema_compatibility":    []any{"live_memory_v1", "live_memory_v2"},
		"generated_at_utc":               time.Now().UTC().Format(time.RFC3339),
		"required_fields":                stringsToAny(required),
		"optional_fields":                stringsToAny(effectiveOptional),
		"required_combat_fields":         stringsToAny(required),
		"optional_combat_fields":         stringsToAny(effectiveOptional),
		"combat_field_sets": map[string]any{
			"required":                      stringsToAny(required),
			"optional":                      stringsToAny(effectiveOptional),
			"optional_with_snapshot_meta":   stringsToAny(selectedOptional),
		},
		"source_snapshot_meta_paths":    metaPathStrings,
		"source_snapshot_records_paths": recordsPathStrings,
		"selected_addresses_per_field":  selectedAddressesPerField,
		"combination_space":             combinationSpace,
		"combination_truncated":         combinationTruncated,
		"active_candidate_id":           activeID,
		"candidates":                    candidates,
	}

	recommendation, err := CalibrationCandidateRecommendation(payload, activeID, required, effectiveOptional)
	if err != nil {
		return nil, err
	}
	payload["recommended_candidate_id"] = recommendation.RecommendedCandidate
	payload["recommended_candidate_support"] = recommendationToPayload(recommendation)

	return payload, nil
}

func stringsToAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func recommendationToPayload(r Recommendation) map[string]any {
	scores := make([]any, 0, len(r.CandidateScores))
	for _, s := range r.CandidateScores {
		scores = append(scores, map[string]any{
			"id":                                s.ID,
			"valid":                             s.Valid,
			"resolved_required_fields":          s.ResolvedRequiredFields,
			"is_active_candidate":              s.IsActiveCandidate,
			"original_order":                    s.OriginalOrder,
			"has_stability_metrics":            s.HasStabilityMetrics,
			"candidate_stable_probe":           s.CandidateStableProbe,
			"candidate_stability_score":        s.CandidateStabilityScore,
			"snapshot_ok_ratio":                 s.SnapshotOKRatio,
			"transient_299_ratio":               s.Transient299Ratio,
			"transient_299_excessive":           s.Transient299Excessive,
			"candidate_stable_probe_cycles":     s.CandidateStableProbeCycles,
			"connect_failures_total_last":       s.ConnectFailuresTotalLast,
			"snapshot_failure_streak_max":       s.SnapshotFailureStreakMax,
			"snapshot_failures_total_last":      s.SnapshotFailuresTotalLast,
			"connect_transient_failure_count":   s.ConnectTransientFailureCount,
			"stability_penalty":                 s.StabilityPenalty,
		})
	}
	return map[string]any{
		"algorithm":              r.Algorithm,
		"preferred_candidate_id": r.PreferredCandidateID,
		"active_candidate_id":    r.ActiveCandidateID,
		"required_combat_fields": stringsToAny(r.RequiredCombatFields),
		"optional_combat_fields": stringsToAny(r.OptionalCombatFields),
		"recommended_candidate_id": r.RecommendedCandidate,
		"reason":                   r.Reason,
		"no_stable_candidate":      r.NoStableCandidate,
		"candidate_scores":         scores,
	}
}
