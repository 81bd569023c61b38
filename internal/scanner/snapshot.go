package scanner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SnapshotMeta is the JSON sidecar persisted alongside a snapshot's TSV
// records, describing the scan or narrow pass that produced them.
type SnapshotMeta struct {
	Schema             string         `json:"schema"`
	CreatedAtUTC       string         `json:"created_at_utc"`
	ProcessName        string         `json:"process_name"`
	PID                int            `json:"pid"`
	ValueType          ValueType      `json:"value_type"`
	Mode               string         `json:"mode"`
	Criteria           map[string]any `json:"criteria"`
	SourceSnapshotMeta string         `json:"source_snapshot_meta,omitempty"`
	RecordsPath        string         `json:"records_path"`
	RecordsCount       int            `json:"records_count"`
	Stats              map[string]any `json:"stats"`
}

// SnapshotSchema is the schema tag every snapshot meta file carries.
const SnapshotSchema = "nordhold_memory_scan_snapshot_v1"

// ResolveSnapshotPaths derives the (meta, records) path pair a base path
// resolves to: "<base>" with no further suffix becomes
// "<base>.meta.json"/"<base>.records.tsv"; a base already ending in
// ".meta.json" resolves its records sibling directly.
func ResolveSnapshotPaths(base string) (metaPath, recordsPath string) {
	name := filepath.Base(base)
	dir := filepath.Dir(base)
	if strings.HasSuffix(name, ".meta.json") {
		stem := strings.TrimSuffix(name, ".meta.json")
		return base, filepath.Join(dir, stem+".records.tsv")
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		return base, filepath.Join(dir, stem+".records.tsv")
	}
	return filepath.Join(dir, name+".meta.json"), filepath.Join(dir, name+".records.tsv")
}

// WriteSnapshot persists candidates as a TSV records file (in discovery
// order) plus a JSON metadata sidecar, returning the resolved paths and
// record count.
func WriteSnapshot(outBase string, processName string, pid int, valueType ValueType, mode string, criteria, stats map[string]any, candidates []Candidate, sourceSnapshotMeta string, now time.Time) (metaPath, recordsPath string, count int, err error) {
	metaPath, recordsPath = ResolveSnapshotPaths(outBase)
	if err = os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		return "", "", 0, err
	}

	file, err := os.Create(recordsPath)
	if err != nil {
		return "", "", 0, err
	}
	w := bufio.NewWriter(file)
	for _, c := range candidates {
		if _, werr := fmt.Fprintf(w, "0x%x\t%s\n", c.Address, ValueToText(c.Value, valueType)); werr != nil {
			file.Close()
			return "", "", 0, werr
		}
		count++
	}
	if err = w.Flush(); err != nil {
		file.Close()
		return "", "", 0, err
	}
	if err = file.Close(); err != nil {
		return "", "", 0, err
	}

	meta := SnapshotMeta{
		Schema:             SnapshotSchema,
		CreatedAtUTC:       now.UTC().Format(time.RFC3339Nano),
		ProcessName:        processName,
		PID:                pid,
		ValueType:          valueType,
		Mode:                mode,
		Criteria:           criteria,
		SourceSnapshotMeta: sourceSnapshotMeta,
		RecordsPath:        recordsPath,
		RecordsCount:       count,
		Stats:              stats,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", "", 0, err
	}
	if err = os.WriteFile(metaPath, raw, 0o644); err != nil {
		return "", "", 0, err
	}
	return metaPath, recordsPath, count, nil
}

// ReadSnapshotMeta loads and parses a snapshot's JSON sidecar.
func ReadSnapshotMeta(metaPath string) (SnapshotMeta, error) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return SnapshotMeta{}, err
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return SnapshotMeta{}, err
	}
	return meta, nil
}

// ReadCandidates parses a snapshot's TSV records file: "#"-prefixed lines
// and blank lines are skipped, and rows are returned in file order.
func ReadCandidates(recordsPath string, valueType ValueType) ([]Candidate, error) {
	file, err := os.Open(recordsPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []Candidate
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		row := strings.TrimSpace(scanner.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		parts := strings.SplitN(row, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		addr, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 0, 64)
		if err != nil {
			continue
		}
		value, err := ParseValue(strings.TrimSpace(parts[1]), valueType)
		if err != nil {
			continue
		}
		out = append(out, Candidate{Address: addr, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SortByAddress orders candidates by ascending address, used only for
// deterministic test fixtures — persisted snapshots otherwise keep
// discovery order.
func SortByAddress(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Address < candidates[j].Address })
}
