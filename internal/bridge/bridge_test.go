package bridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apollion69/nordhold-calculator/internal/catalog"
	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/replay"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestBridge(t *testing.T) (*Bridge, *memback.FakeBackend, string) {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "data", "versions", "index.json"), `{
		"active_version": "v1",
		"versions": [
			{"id": "v1", "game_version": "1.0.0", "build_id": "b1",
			 "catalog_path": "data/v1/catalog.json",
			 "memory_signatures_path": "data/v1/signatures.json"}
		]
	}`)
	writeTestFile(t, filepath.Join(root, "data", "v1", "catalog.json"), `{"scenarios": []}`)
	writeTestFile(t, filepath.Join(root, "data", "v1", "signatures.json"), `{
		"profiles": [
			{"id": "default", "process_name": "NordHold.exe",
			 "fields": {
				"current_wave": {"source": "address", "type": "int32", "address": "0x1000"},
				"gold":         {"source": "address", "type": "int32", "address": "0x1004"},
				"essence":      {"source": "address", "type": "int32", "address": "0x1008"}
			 }}
		]
	}`)

	cat := catalog.New(root)
	store, err := replay.New(root)
	if err != nil {
		t.Fatalf("replay store: %v", err)
	}
	backend := memback.NewFakeBackend()
	return New(root, cat, store, backend), backend, root
}

func TestConnect_MemoryModeOnResolvedFields(t *testing.T) {
	b, backend, _ := newTestBridge(t)
	backend.SetProcess("NordHold.exe", 42)
	backend.WriteInt32(42, 0x1000, 7)
	backend.WriteInt32(42, 0x1004, 500)
	backend.WriteInt32(42, 0x1008, 12)

	status, err := b.Connect(ConnectOptions{ProcessName: "NordHold.exe", RequireAdmin: false})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if status.Mode != "memory" {
		t.Fatalf("expected memory mode, got %s (reason=%s)", status.Mode, status.Reason)
	}
	if !status.MemoryConnected {
		t.Fatal("expected memory_connected=true")
	}
	if status.FieldCoverage.RequiredResolved != status.FieldCoverage.RequiredTotal {
		t.Fatalf("expected all required fields resolved, got %+v", status.FieldCoverage)
	}
	if status.CalibrationQuality != "full" {
		t.Fatalf("expected full calibration quality, got %s", status.CalibrationQuality)
	}

	snap, err := b.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Wave != 7 || snap.Gold != 500 || snap.Essence != 12 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.SourceMode != "memory" {
		t.Fatalf("expected memory source mode, got %s", snap.SourceMode)
	}
	rawFields, ok := snap.Build["raw_memory_fields"].(map[string]any)
	if !ok {
		t.Fatal("expected raw_memory_fields present in build payload")
	}
	if rawFields["tower_inflation_index"] != 1.0 {
		t.Fatalf("expected contract default for tower_inflation_index, got %v", rawFields["tower_inflation_index"])
	}
}

func TestConnect_ProcessAbsentFallsBackToReplay(t *testing.T) {
	b, _, _ := newTestBridge(t)

	session, err := b.replayStore.ImportPayload("json", `[{"timestamp": 1, "wave": 3, "gold": 40, "essence": 2, "build": {}}]`)
	if err != nil {
		t.Fatalf("import replay: %v", err)
	}

	status, err := b.Connect(ConnectOptions{ProcessName: "NordHold.exe", RequireAdmin: false, ReplaySessionID: session.SessionID})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if status.Mode != "replay" {
		t.Fatalf("expected replay mode, got %s (reason=%s)", status.Mode, status.Reason)
	}

	snap, err := b.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Wave != 3 || snap.SourceMode != "replay" {
		t.Fatalf("unexpected replay snapshot: %+v", snap)
	}
}

func TestConnect_ProcessAbsentNoReplayDegrades(t *testing.T) {
	b, _, _ := newTestBridge(t)

	status, err := b.Connect(ConnectOptions{ProcessName: "NordHold.exe", RequireAdmin: false})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if status.Mode != "degraded" || status.Reason != "memory_unavailable_no_replay" {
		t.Fatalf("expected degraded/memory_unavailable_no_replay, got %s/%s", status.Mode, status.Reason)
	}

	snap, err := b.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SourceMode != "synthetic" {
		t.Fatalf("expected synthetic fallback snapshot, got %s", snap.SourceMode)
	}
}

func TestSnapshot_PersistentTransientFailureDegrades(t *testing.T) {
	b, backend, _ := newTestBridge(t)
	backend.SetProcess("NordHold.exe", 7)
	backend.WriteInt32(7, 0x1000, 1)
	backend.WriteInt32(7, 0x1004, 10)
	backend.WriteInt32(7, 0x1008, 1)

	status, err := b.Connect(ConnectOptions{ProcessName: "NordHold.exe", RequireAdmin: false})
	if err != nil || status.Mode != "memory" {
		t.Fatalf("expected connected in memory mode, got %+v err=%v", status, err)
	}

	backend.ForceTransientReadFailure(true)

	snap, err := b.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SourceMode != "synthetic" {
		t.Fatalf("expected synthetic fallback after persistent transient failure, got %s", snap.SourceMode)
	}

	finalStatus := b.Status()
	if finalStatus.Mode != "degraded" {
		t.Fatalf("expected degraded mode after retry also fails, got %s", finalStatus.Mode)
	}
	if finalStatus.SnapshotTransientFailureCount == 0 {
		t.Fatal("expected snapshot_transient_failure_count to increment")
	}
}

func TestInspectCalibrationCandidates(t *testing.T) {
	b, _, root := newTestBridge(t)
	writeTestFile(t, filepath.Join(root, "worklogs", "memory_calibration_candidates.json"), `{
		"active_candidate_id": "candidate_1",
		"candidates": [
			{"id": "candidate_1", "profile_id": "default", "fields": {
				"current_wave": {"source": "address", "type": "int32", "address": "0x1000"},
				"gold": {"source": "address", "type": "int32", "address": "0x1004"},
				"essence": {"source": "address", "type": "int32", "address": "0x1008"}
			}}
		]
	}`)

	inspection, err := b.InspectCalibrationCandidates("")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if len(inspection.CandidateIDs) != 1 || inspection.CandidateIDs[0] != "candidate_1" {
		t.Fatalf("unexpected candidate ids: %+v", inspection.CandidateIDs)
	}
	if inspection.RecommendedCandidateID != "candidate_1" {
		t.Fatalf("expected candidate_1 recommended, got %s", inspection.RecommendedCandidateID)
	}
}
