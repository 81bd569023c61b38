// Package catalog loads versioned Nordhold datasets (scenario catalogs and
// memory signature tables) from a local project tree, indexed by a
// data/versions/index.json manifest.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

// Error is returned when a versioned dataset cannot be located or loaded.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// DatasetMeta identifies one versioned dataset and the files that carry it.
type DatasetMeta struct {
	DatasetVersion        string
	GameVersion           string
	BuildID               string
	CatalogPath           string
	MemorySignaturesPath  string
}

// Repository loads versioned datasets from project-relative paths recorded
// in data/versions/index.json.
type Repository struct {
	ProjectRoot      string
	VersionsIndexPath string
}

// New constructs a Repository rooted at projectRoot.
func New(projectRoot string) *Repository {
	return &Repository{
		ProjectRoot:       projectRoot,
		VersionsIndexPath: filepath.Join(projectRoot, "data", "versions", "index.json"),
	}
}

func (r *Repository) readJSON(path string) (model.Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errorf("required file not found: %s", path)
		}
		return nil, err
	}
	var payload model.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errorf("invalid JSON in %s: %v", path, err)
	}
	return payload, nil
}

// GetActiveDatasetMeta resolves the manifest's declared active_version.
func (r *Repository) GetActiveDatasetMeta() (DatasetMeta, error) {
	payload, err := r.readJSON(r.VersionsIndexPath)
	if err != nil {
		return DatasetMeta{}, err
	}
	active, _ := payload["active_version"].(string)
	if active == "" {
		return DatasetMeta{}, errorf("versions/index.json does not define 'active_version'")
	}
	return r.GetDatasetMeta(active)
}

// GetDatasetMeta resolves one named version from the manifest.
func (r *Repository) GetDatasetMeta(datasetVersion string) (DatasetMeta, error) {
	payload, err := r.readJSON(r.VersionsIndexPath)
	if err != nil {
		return DatasetMeta{}, err
	}
	versions, _ := payload["versions"].([]any)
	for _, raw := range versions {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", item["id"]) != datasetVersion {
			continue
		}
		catalogRel, _ := item["catalog_path"].(string)
		signaturesRel, _ := item["memory_signatures_path"].(string)
		if catalogRel == "" || signaturesRel == "" {
			return DatasetMeta{}, errorf("version %s is missing catalog/signatures paths", datasetVersion)
		}
		gameVersion, _ := item["game_version"].(string)
		if gameVersion == "" {
			gameVersion = datasetVersion
		}
		buildID, _ := item["build_id"].(string)
		if buildID == "" {
			buildID = "unknown"
		}
		return DatasetMeta{
			DatasetVersion:       datasetVersion,
			GameVersion:          gameVersion,
			BuildID:              buildID,
			CatalogPath:          filepath.Join(r.ProjectRoot, catalogRel),
			MemorySignaturesPath: filepath.Join(r.ProjectRoot, signaturesRel),
		}, nil
	}
	return DatasetMeta{}, errorf("dataset version not found: %s", datasetVersion)
}

// LoadScenario loads one scenario definition from the named (or active)
// dataset version's catalog file.
func (r *Repository) LoadScenario(scenarioID string, datasetVersion string) (DatasetMeta, model.ScenarioDefinition, error) {
	meta, err := r.resolveMeta(datasetVersion)
	if err != nil {
		return DatasetMeta{}, model.ScenarioDefinition{}, err
	}
	payload, err := r.readJSON(meta.CatalogPath)
	if err != nil {
		return DatasetMeta{}, model.ScenarioDefinition{}, err
	}
	scenarios, _ := payload["scenarios"].([]any)
	for _, raw := range scenarios {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", item["id"]) != scenarioID {
			continue
		}
		scenario, err := model.ScenarioDefinitionFromPayload(item)
		if err != nil {
			return DatasetMeta{}, model.ScenarioDefinition{}, errorf("scenario %q is invalid: %v", scenarioID, err)
		}
		return meta, scenario, nil
	}
	return DatasetMeta{}, model.ScenarioDefinition{}, errorf("scenario not found: %s", scenarioID)
}

// LoadMemorySignatures loads the raw memory-signature table for the named
// (or active) dataset version, used by the Signature Profile builder.
func (r *Repository) LoadMemorySignatures(datasetVersion string) (DatasetMeta, model.Payload, error) {
	meta, err := r.resolveMeta(datasetVersion)
	if err != nil {
		return DatasetMeta{}, nil, err
	}
	payload, err := r.readJSON(meta.MemorySignaturesPath)
	if err != nil {
		return DatasetMeta{}, nil, err
	}
	return meta, payload, nil
}

func (r *Repository) resolveMeta(datasetVersion string) (DatasetMeta, error) {
	if datasetVersion == "" {
		return r.GetActiveDatasetMeta()
	}
	return r.GetDatasetMeta(datasetVersion)
}
