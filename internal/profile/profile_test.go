package profile

import "testing"

func sampleSignatures() map[string]any {
	return map[string]any{
		"schema_version": "live_memory_v1",
		"profiles": []any{
			map[string]any{
				"id":           "nordhold-v1",
				"process_name": "nordhold",
				"fields": map[string]any{
					"current_wave": map[string]any{"source": "address", "type": "int32", "address": "0x1000"},
					"gold":         map[string]any{"source": "address", "type": "float32", "address": "0x1004"},
					"essence":      map[string]any{"source": "address", "type": "float32", "address": "0x1008"},
				},
			},
		},
	}
}

func TestLoadMemoryProfile_SelectsByProcessName(t *testing.T) {
	p, err := LoadMemoryProfile(sampleSignatures(), "nordhold", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "nordhold-v1" {
		t.Errorf("expected nordhold-v1, got %s", p.ID)
	}
	if len(p.Fields) != 3 {
		t.Errorf("expected 3 fields, got %d", len(p.Fields))
	}
}

func TestLoadMemoryProfile_RejectsUnsupportedSchema(t *testing.T) {
	sig := sampleSignatures()
	sig["schema_version"] = "live_memory_v99"
	if _, err := LoadMemoryProfile(sig, "nordhold", ""); err == nil {
		t.Fatal("expected unsupported schema version to be rejected")
	}
}

func TestProfile_EnsureResolved(t *testing.T) {
	p, err := LoadMemoryProfile(sampleSignatures(), "nordhold", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.EnsureResolved(nil); err != nil {
		t.Fatalf("expected fields to be resolved: %v", err)
	}
}

func TestFieldSpec_ResolvedRejectsSentinels(t *testing.T) {
	f := FieldSpec{Name: "x", Address: SentinelDeadbeef}
	if f.Resolved() {
		t.Error("expected deadbeef sentinel address to be unresolved")
	}
	f.Address = 0x1234
	if !f.Resolved() {
		t.Error("expected concrete address to be resolved")
	}
}

func TestFieldSpecFromPayload_RejectsUnknownSource(t *testing.T) {
	_, err := FieldSpecFromPayload("x", map[string]any{"source": "telepathy", "type": "int32"})
	if err == nil {
		t.Fatal("expected unsupported source to be rejected")
	}
}
