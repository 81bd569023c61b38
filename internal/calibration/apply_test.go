package calibration

import (
	"testing"

	"github.com/apollion69/nordhold-calculator/internal/profile"
)

func sampleBaseProfile() profile.Profile {
	fields := map[string]profile.FieldSpec{
		"current_wave": {Name: "current_wave", Source: "address", ValueType: "int32", Address: profile.SentinelDeadbeef},
		"gold":         {Name: "gold", Source: "address", ValueType: "int32", Address: profile.SentinelDeadbeef},
		"essence":      {Name: "essence", Source: "address", ValueType: "int32", Address: 0x3000},
	}
	return profile.Profile{
		ID:                   "base",
		ProcessName:          "NordHold.exe",
		ModuleName:           "NordHold.exe",
		PollMS:               1000,
		RequiredAdmin:        true,
		PointerSize:          8,
		RequiredCombatFields: []string{"current_wave", "gold", "essence"},
		OptionalCombatFields: []string{},
		Fields:               fields,
	}
}

func TestApplyCalibrationCandidate_MergesResolvedAddresses(t *testing.T) {
	base := sampleBaseProfile()
	payload := samplePayload()

	calibrated, selectedID, err := ApplyCalibrationCandidate(base, payload, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if selectedID != "candidate_1" {
		t.Fatalf("expected candidate_1 selected (only fully resolved candidate), got %q", selectedID)
	}
	if calibrated.ID != "base@candidate_1" {
		t.Fatalf("unexpected calibrated profile id: %s", calibrated.ID)
	}
	if calibrated.Fields["gold"].Address != 0x1000 {
		t.Fatalf("expected gold address overridden to 0x1000, got %#x", calibrated.Fields["gold"].Address)
	}
	if calibrated.Fields["current_wave"].Address != 0x2000 {
		t.Fatalf("expected current_wave address overridden to 0x2000, got %#x", calibrated.Fields["current_wave"].Address)
	}
	if !calibrated.Fields["gold"].Resolved() {
		t.Fatal("expected gold field to be resolved after calibration merge")
	}
}

func TestApplyCalibrationCandidate_ExplicitValidRequestHonored(t *testing.T) {
	base := sampleBaseProfile()
	payload := map[string]any{
		"active_candidate_id": "candidate_1",
		"candidates": []any{
			sampleCandidate("candidate_1", "0x1000", "0x2000", nil),
			sampleCandidate("candidate_2", "0x1111", "0x2222", nil),
		},
	}

	_, selectedID, err := ApplyCalibrationCandidate(base, payload, "candidate_2")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if selectedID != "candidate_2" {
		t.Fatalf("expected explicit, fully-resolved candidate_2 honored, got %q", selectedID)
	}
}

func TestApplyCalibrationCandidate_IncompatibleProfileRejected(t *testing.T) {
	base := sampleBaseProfile()
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"id":         "candidate_x",
				"profile_id": "some-other-profile",
				"fields":     map[string]any{"gold": map[string]any{"source": "address", "type": "int32", "address": "0x9000"}},
			},
		},
	}
	if _, _, err := ApplyCalibrationCandidate(base, payload, ""); err == nil {
		t.Fatal("expected error for no compatible candidates")
	}
}

func TestApplyCalibrationCandidate_EmptyFieldsRejected(t *testing.T) {
	base := sampleBaseProfile()
	payload := map[string]any{
		"candidates": []any{
			map[string]any{"id": "candidate_empty", "fields": map[string]any{}},
		},
	}
	if _, _, err := ApplyCalibrationCandidate(base, payload, "candidate_empty"); err == nil {
		t.Fatal("expected error for candidate with empty fields")
	}
}
