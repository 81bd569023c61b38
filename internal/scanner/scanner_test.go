package scanner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/apollion69/nordhold-calculator/internal/memback"
)

func seededBackend(t *testing.T) (*memback.FakeBackend, memback.Handle) {
	t.Helper()
	backend := memback.NewFakeBackend()
	backend.SetProcess("NordHold.exe", 4242)
	backend.WriteInt32(4242, 0x1000, 77)
	backend.WriteInt32(4242, 0x2000, 77)
	backend.WriteInt32(4242, 0x3000, 99)
	pid, err := backend.FindProcessID("NordHold.exe")
	if err != nil {
		t.Fatalf("find process: %v", err)
	}
	handle, err := backend.OpenProcess(pid)
	if err != nil {
		t.Fatalf("open process: %v", err)
	}
	return backend, handle
}

func TestScanForValue_FindsAlignedMatches(t *testing.T) {
	backend, handle := seededBackend(t)
	s := New(backend, handle)

	candidates, stats, err := s.ScanForValue(context.Background(), ScanOptions{
		ValueType:  ValueInt32,
		Target:     77,
		Step:       4,
		ChunkBytes: 64,
		MinAddress: 0,
		MaxAddress: 0x10000,
		Workers:    2,
	}, NoopReporter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 matches, got %d (%+v)", len(candidates), candidates)
	}
	if stats.RegionsScanned == 0 {
		t.Fatal("expected at least one region scanned")
	}
}

func TestScanForValue_MaxResultsStopsEarly(t *testing.T) {
	backend, handle := seededBackend(t)
	s := New(backend, handle)

	candidates, stats, err := s.ScanForValue(context.Background(), ScanOptions{
		ValueType:  ValueInt32,
		Target:     77,
		Step:       4,
		ChunkBytes: 64,
		MinAddress: 0,
		MaxAddress: 0x10000,
		MaxResults: 1,
		Workers:    1,
	}, NoopReporter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected exactly 1 match under max_results, got %d", len(candidates))
	}
	if !stats.MaxResultsHit {
		t.Fatal("expected max_results_hit")
	}
}

func TestNarrow_UnchangedKeepsOnlyStableAddresses(t *testing.T) {
	backend, handle := seededBackend(t)
	source := []Candidate{
		{Address: 0x1000, Value: 77},
		{Address: 0x3000, Value: 77}, // stale previous value; live value is 99
	}
	kept, stats := Narrow(backend, handle, source, NarrowOptions{
		ValueType: ValueInt32,
		Mode:      NarrowUnchanged,
		Epsilon:   0.001,
	})
	if len(kept) != 1 || kept[0].Address != 0x1000 {
		t.Fatalf("expected only 0x1000 to remain unchanged, got %+v", kept)
	}
	if stats.SourceCandidates != 2 {
		t.Fatalf("expected source count 2, got %d", stats.SourceCandidates)
	}
}

func TestNarrow_IsSubsetOfSource(t *testing.T) {
	backend, handle := seededBackend(t)
	source := []Candidate{{Address: 0x1000, Value: 0}, {Address: 0x2000, Value: 0}, {Address: 0x3000, Value: 0}}
	kept, _ := Narrow(backend, handle, source, NarrowOptions{
		ValueType: ValueInt32,
		Mode:      NarrowChanged,
		Epsilon:   0.001,
	})
	if len(kept) > len(source) {
		t.Fatalf("narrow output must never exceed input size: got %d > %d", len(kept), len(source))
	}
}

func TestWriteSnapshotAndReadBack(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gold_scan")
	candidates := []Candidate{{Address: 0x1000, Value: 77}, {Address: 0x2000, Value: 77}}

	metaPath, recordsPath, count, err := WriteSnapshot(base, "NordHold.exe", 4242, ValueInt32, "scan",
		map[string]any{"target_value": float64(77)},
		map[string]any{"regions_scanned": 1},
		candidates, "", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records written, got %d", count)
	}

	meta, err := ReadSnapshotMeta(metaPath)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if meta.RecordsCount != 2 || meta.Schema != SnapshotSchema {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	readBack, err := ReadCandidates(recordsPath, ValueInt32)
	if err != nil {
		t.Fatalf("read candidates: %v", err)
	}
	if len(readBack) != 2 || readBack[0].Address != 0x1000 {
		t.Fatalf("unexpected candidates read back: %+v", readBack)
	}
}

func TestParseValue_HexAndDecimal(t *testing.T) {
	v, err := ParseValue("0x64", ValueInt32)
	if err != nil || v != 100 {
		t.Fatalf("expected 100 from hex, got %v err=%v", v, err)
	}
	v, err = ParseValue("100", ValueInt32)
	if err != nil || v != 100 {
		t.Fatalf("expected 100 from decimal, got %v err=%v", v, err)
	}
}
