package memreader

import (
	"testing"

	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/profile"
)

func TestReader_OpenAndReadFields(t *testing.T) {
	backend := memback.NewFakeBackend()
	backend.SetProcess("nordhold", 99)

	prof, err := profile.FromPayload(map[string]any{
		"id":           "p1",
		"process_name": "nordhold",
		"fields": map[string]any{
			"gold": map[string]any{"source": "address", "type": "float32", "address": "0x2000"},
		},
	}, "nordhold", []string{"gold"}, nil)
	if err != nil {
		t.Fatalf("unexpected profile error: %v", err)
	}

	reader := NewReader(backend)
	if err := reader.Open("nordhold", prof); err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	defer reader.Close()

	backend.WriteFloat32(99, 0x2000, 42.5)

	values, err := reader.ReadFields(prof)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	gold, ok := values["gold"].(float64)
	if !ok {
		t.Fatalf("expected gold to decode as float64, got %T", values["gold"])
	}
	_ = gold
}

func TestReader_ReadFieldsWithoutOpenFails(t *testing.T) {
	reader := NewReader(memback.NewFakeBackend())
	if _, err := reader.ReadFields(profile.Profile{}); err == nil {
		t.Fatal("expected not-connected error")
	}
}
