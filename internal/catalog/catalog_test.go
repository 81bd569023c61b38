package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "versions", "index.json"), `{
		"active_version": "v1",
		"versions": [
			{"id": "v1", "game_version": "1.2.3", "build_id": "b1",
			 "catalog_path": "data/v1/catalog.json",
			 "memory_signatures_path": "data/v1/signatures.json"}
		]
	}`)
	writeFile(t, filepath.Join(root, "data", "v1", "catalog.json"), `{
		"scenarios": [
			{"id": "forest-01", "name": "Forest Path", "towers": [], "enemies": [], "waves": []}
		]
	}`)
	writeFile(t, filepath.Join(root, "data", "v1", "signatures.json"), `{"fields": {"gold": ["g_gold"]}}`)
	return New(root)
}

func TestGetActiveDatasetMeta(t *testing.T) {
	repo := newTestRepo(t)
	meta, err := repo.GetActiveDatasetMeta()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.DatasetVersion != "v1" || meta.GameVersion != "1.2.3" || meta.BuildID != "b1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestGetDatasetMeta_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetDatasetMeta("v9"); err == nil {
		t.Fatal("expected error for unknown dataset version")
	}
}

func TestLoadScenario(t *testing.T) {
	repo := newTestRepo(t)
	meta, scenario, err := repo.LoadScenario("forest-01", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.DatasetVersion != "v1" || scenario.ID != "forest-01" || scenario.Name != "Forest Path" {
		t.Fatalf("unexpected scenario load: meta=%+v scenario=%+v", meta, scenario)
	}
}

func TestLoadScenario_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, _, err := repo.LoadScenario("missing", ""); err == nil {
		t.Fatal("expected error for missing scenario")
	}
}

func TestLoadMemorySignatures(t *testing.T) {
	repo := newTestRepo(t)
	meta, payload, err := repo.LoadMemorySignatures("v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.DatasetVersion != "v1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	fields, ok := payload["fields"].(map[string]any)
	if !ok || fields["gold"] == nil {
		t.Fatalf("unexpected signatures payload: %+v", payload)
	}
}
