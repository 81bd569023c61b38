package calibration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleCandidate(id string, goldAddr, waveAddr string, stability map[string]any) map[string]any {
	fields := map[string]any{
		"gold":         map[string]any{"source": "address", "type": "int32", "address": goldAddr},
		"current_wave": map[string]any{"source": "address", "type": "int32", "address": waveAddr},
		"essence":      map[string]any{"source": "address", "type": "int32", "address": "0x3000"},
	}
	candidate := map[string]any{"id": id, "fields": fields}
	if stability != nil {
		candidate["stability"] = stability
	}
	return candidate
}

func samplePayload() map[string]any {
	return map[string]any{
		"active_candidate_id": "candidate_1",
		"candidates": []any{
			sampleCandidate("candidate_1", "0x1000", "0x2000", map[string]any{
				"snapshot_probe_count": 10,
				"snapshot_ok_count":    10,
				"snapshot_total_count": 10,
			}),
			sampleCandidate("candidate_2", "0xDEADBEEF", "0x2000", nil),
		},
	}
}

func TestResolveCombatFieldSets_Defaults(t *testing.T) {
	required, optional, err := ResolveCombatFieldSets(map[string]any{}, RequiredCombatFields, OptionalCombatFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(required) != len(RequiredCombatFields) {
		t.Fatalf("expected default required fields, got %v", required)
	}
	if len(optional) != len(OptionalCombatFields) {
		t.Fatalf("expected default optional fields, got %v", optional)
	}
}

func TestIsPlaceholderAddress(t *testing.T) {
	if !IsPlaceholderAddress(0xDEADBEEF) {
		t.Fatal("expected 0xDEADBEEF to be a placeholder")
	}
	if !IsPlaceholderAddress(0) {
		t.Fatal("expected 0 to be a placeholder")
	}
	if IsPlaceholderAddress(0x1000) {
		t.Fatal("expected 0x1000 to be a real address")
	}
}

func TestCandidateQuality_ValidWhenAllRequiredResolved(t *testing.T) {
	fields := map[string]any{
		"gold":         map[string]any{"address": "0x1000"},
		"current_wave": map[string]any{"address": "0x2000"},
		"essence":      map[string]any{"address": "0x3000"},
	}
	q := CandidateQuality(fields, RequiredCombatFields, nil, nil)
	if !q.Valid {
		t.Fatalf("expected candidate to be valid, got %+v", q)
	}
	if q.ResolvedRequiredCount != len(RequiredCombatFields) {
		t.Fatalf("expected all required fields resolved, got %d", q.ResolvedRequiredCount)
	}
}

func TestCandidateQuality_InvalidOnPlaceholderAddress(t *testing.T) {
	fields := map[string]any{
		"gold":         map[string]any{"address": "0xDEADBEEF"},
		"current_wave": map[string]any{"address": "0x2000"},
		"essence":      map[string]any{"address": "0x3000"},
	}
	q := CandidateQuality(fields, RequiredCombatFields, nil, nil)
	if q.Valid {
		t.Fatal("expected candidate to be invalid due to placeholder address")
	}
	if len(q.UnresolvedRequiredFieldNames) != 1 || q.UnresolvedRequiredFieldNames[0] != "gold" {
		t.Fatalf("expected gold unresolved, got %v", q.UnresolvedRequiredFieldNames)
	}
}

func TestCandidateStabilityStats_NoMetricsIsMaximallyUnstable(t *testing.T) {
	s := CandidateStabilityStats(map[string]any{})
	if s.HasStabilityMetrics {
		t.Fatal("expected no stability metrics")
	}
	if s.StabilityScore != 0.0 {
		t.Fatalf("expected zero stability score, got %f", s.StabilityScore)
	}
}

func TestCandidateStabilityStats_StableProbe(t *testing.T) {
	s := CandidateStabilityStats(map[string]any{
		"stability": map[string]any{
			"snapshot_probe_count": 5,
			"snapshot_ok_count":    5,
			"snapshot_total_count": 5,
		},
	})
	if !s.HasStabilityMetrics {
		t.Fatal("expected stability metrics present")
	}
	if !s.CandidateStableProbe {
		t.Fatalf("expected a stable probe, got %+v", s)
	}
	if s.StabilityScore <= 0 {
		t.Fatalf("expected a positive stability score, got %f", s.StabilityScore)
	}
}

func TestListCalibrationCandidateSummaries(t *testing.T) {
	summaries, err := ListCalibrationCandidateSummaries(samplePayload(), RequiredCombatFields, OptionalCombatFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if !summaries[0].CandidateQuality.Valid {
		t.Fatalf("expected candidate_1 to be valid: %+v", summaries[0].CandidateQuality)
	}
	if summaries[1].CandidateQuality.Valid {
		t.Fatalf("expected candidate_2 to be invalid due to placeholder gold address")
	}
}

func TestCalibrationCandidateRecommendation_PrefersValidOverInvalid(t *testing.T) {
	rec, err := CalibrationCandidateRecommendation(samplePayload(), "", RequiredCombatFields, OptionalCombatFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.RecommendedCandidate != "candidate_1" {
		t.Fatalf("expected candidate_1 to be recommended, got %q (reason=%s)", rec.RecommendedCandidate, rec.Reason)
	}
}

func TestCalibrationCandidateRecommendation_PreferredCandidateWinsWhenValid(t *testing.T) {
	payload := samplePayload()
	rec, err := CalibrationCandidateRecommendation(payload, "candidate_1", RequiredCombatFields, OptionalCombatFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Reason != "preferred_candidate_valid" {
		t.Fatalf("expected preferred_candidate_valid reason, got %s", rec.Reason)
	}
}

func TestChooseCalibrationCandidateID(t *testing.T) {
	id, err := ChooseCalibrationCandidateID(samplePayload(), "", RequiredCombatFields, OptionalCombatFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "candidate_1" {
		t.Fatalf("expected candidate_1, got %s", id)
	}
}

func TestCalibrationCandidateIDs(t *testing.T) {
	ids, err := CalibrationCandidateIDs(samplePayload(), RequiredCombatFields, OptionalCombatFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "candidate_1" || ids[1] != "candidate_2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestIterCandidateEntries_RejectsDuplicateIDs(t *testing.T) {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{"id": "dup"},
			map[string]any{"id": "dup"},
		},
	}
	if _, err := IterCandidateEntries(payload); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func writeSnapshotFixture(t *testing.T, dir, name string, addresses []string) string {
	t.Helper()
	metaPath := filepath.Join(dir, name+".meta.json")
	recordsPath := filepath.Join(dir, name+".records.tsv")
	if err := os.WriteFile(metaPath, []byte(`{"value_type":"int32"}`), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	var body strings.Builder
	for _, addr := range addresses {
		body.WriteString(addr)
		body.WriteString("\n")
	}
	if err := os.WriteFile(recordsPath, []byte(body.String()), 0o644); err != nil {
		t.Fatalf("write records: %v", err)
	}
	return metaPath
}

func TestBuildCalibrationCandidatesFromSnapshots(t *testing.T) {
	dir := t.TempDir()
	goldMeta := writeSnapshotFixture(t, dir, "gold", []string{"4096", "8192"})
	waveMeta := writeSnapshotFixture(t, dir, "current_wave", []string{"16384"})
	essenceMeta := writeSnapshotFixture(t, dir, "essence", []string{"20480"})

	readJSON := func(path string) (map[string]any, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	opts := BuildCandidatesOptions{
		ProjectRoot: dir,
		RequiredFieldMetaPaths: map[string]string{
			"gold":         goldMeta,
			"current_wave": waveMeta,
			"essence":      essenceMeta,
		},
		RequiredFields:     RequiredCombatFields,
		OptionalFields:     []string{},
		MaxRecordsPerField: 5,
		MaxCandidates:      256,
	}

	payload, err := BuildCalibrationCandidatesFromSnapshots(opts, readJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	candidates, _ := payload["candidates"].([]any)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates (2 gold addresses x 1 wave x 1 essence), got %d", len(candidates))
	}
	if payload["recommended_candidate_id"] == "" {
		t.Fatal("expected a non-empty recommended candidate id")
	}
}
