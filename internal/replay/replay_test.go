package replay

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	store.sessionSeq = func() string { return "deadbeef" }
	return store
}

func TestImportPayload_JSONRoundTrip(t *testing.T) {
	store := newTestStore(t)
	content := `[{"timestamp": 2, "wave": 2, "gold": 50, "essence": 5, "build": {"archer": 1}},
	             {"timestamp": 1, "wave": 1, "gold": 10, "essence": 1, "build": {}}]`

	session, err := store.ImportPayload("json", content)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(session.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(session.Snapshots))
	}
	if session.Snapshots[0].Timestamp != 1 || session.Snapshots[1].Timestamp != 2 {
		t.Fatalf("expected snapshots sorted by timestamp, got %+v", session.Snapshots)
	}

	loaded, err := store.LoadSession(session.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(loaded.Snapshots) != 2 || loaded.Snapshots[1].Gold != 50 {
		t.Fatalf("unexpected round-tripped session: %+v", loaded)
	}

	latest, err := store.LatestSnapshot(session.SessionID)
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if latest.Wave != 2 || latest.SourceMode != "replay" {
		t.Fatalf("unexpected latest snapshot: %+v", latest)
	}
}

func TestImportPayload_CSVRoundTrip(t *testing.T) {
	store := newTestStore(t)
	content := "timestamp,wave,gold,essence,build\n1,1,10,1,\n2,2,50,5,\"{\"\"archer\"\": 1}\"\n"

	session, err := store.ImportPayload("csv", content)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(session.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(session.Snapshots))
	}
	if session.Snapshots[1].Build["archer"] != float64(1) {
		t.Fatalf("expected parsed build map, got %+v", session.Snapshots[1].Build)
	}
}

func TestImportPayload_EmptyRejected(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.ImportPayload("json", `[]`); err == nil {
		t.Fatal("expected error for empty snapshot payload")
	}
	if _, err := store.ImportPayload("xml", `<a/>`); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestIndex_RebuildRecoversFromSessionFiles(t *testing.T) {
	store := newTestStore(t)
	session, err := store.ImportPayload("json", `[{"timestamp": 1, "wave": 1, "gold": 10, "essence": 1, "build": {}}]`)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	idx, err := OpenIndex(store)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	if err := idx.Rebuild(store, []string{session.SessionID}); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	entries, err := idx.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].SessionID != session.SessionID || entries[0].SnapshotCount != 1 {
		t.Fatalf("unexpected index entries after rebuild: %+v", entries)
	}
}
