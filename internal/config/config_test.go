package config

import "testing"

func TestDefaults_Validates(t *testing.T) {
	cfg := Defaults()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Defaults() produced invalid config: %v", err)
	}
}

func TestValidate_RejectsBadPollMS(t *testing.T) {
	cfg := Defaults()
	cfg.Bridge.PollMS = 50

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected error for poll_ms below 200")
	}
}

func TestValidate_RejectsBadSchemaVersion(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "2"

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected error for unsupported schema_version")
	}
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Scanner.ChunkBytes = 1
	cfg.Scanner.WorkerCount = 0
	cfg.Calibration.MaxCandidates = 0

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"chunk_bytes", "worker_count", "max_candidates"} {
		if !contains(msg, want) {
			t.Errorf("expected error message to mention %q, got: %s", want, msg)
		}
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
