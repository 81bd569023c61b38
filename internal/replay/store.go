// Package replay imports recorded Nordhold sessions (JSON or CSV) into
// timestamped snapshot sequences, persists them as the contractual JSON
// session files, and maintains a rebuildable bbolt-backed lookup cache over
// them (see index.go).
package replay

import (
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

// randomSuffix mirrors uuid4().hex[:8]: eight hex characters of randomness,
// enough to disambiguate two imports landing in the same second.
func randomSuffix() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf[:])
}

// Error is returned when a replay payload or session file is malformed.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// sessionFile is the on-disk JSON shape a session is persisted as.
type sessionFile struct {
	SessionID string           `json:"session_id"`
	Source    string           `json:"source"`
	Snapshots []snapshotRecord `json:"snapshots"`
}

type snapshotRecord struct {
	Timestamp float64        `json:"timestamp"`
	Wave      int            `json:"wave"`
	Gold      float64        `json:"gold"`
	Essence   float64        `json:"essence"`
	Build     map[string]any `json:"build"`
}

// Store imports and loads replay sessions from a project-relative
// runtime/replays directory. The JSON session files it writes remain the
// source of truth; Index (index.go) is a rebuildable cache over them.
type Store struct {
	ReplaysDir string

	// now is overridden in tests to keep session ids deterministic.
	now func() time.Time
	// sessionSeq disambiguates two imports landing in the same second.
	sessionSeq func() string
}

// New constructs a Store rooted at projectRoot's runtime/replays directory,
// creating it if necessary.
func New(projectRoot string) (*Store, error) {
	dir := filepath.Join(projectRoot, "runtime", "replays")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{ReplaysDir: dir, now: time.Now, sessionSeq: randomSuffix}, nil
}

func (s *Store) sessionPath(sessionID string) string {
	return filepath.Join(s.ReplaysDir, sessionID+".json")
}

// ImportPayload parses content (format "json" or "csv") into a ReplaySession,
// assigns it a fresh session id, and persists it as the canonical JSON file.
func (s *Store) ImportPayload(payloadFormat, content string) (model.ReplaySession, error) {
	normalized := strings.ToLower(strings.TrimSpace(payloadFormat))
	var snapshots []model.ReplaySnapshot
	var err error
	switch normalized {
	case "json":
		snapshots, err = s.parseJSON(content)
	case "csv":
		snapshots, err = s.parseCSV(content)
	default:
		return model.ReplaySession{}, errorf("unsupported replay format %q: use json or csv", payloadFormat)
	}
	if err != nil {
		return model.ReplaySession{}, err
	}

	sessionID := fmt.Sprintf("replay-%d-%s", s.now().Unix(), s.sessionSeq())
	session := model.ReplaySession{SessionID: sessionID, Source: normalized, Snapshots: snapshots}
	if err := s.writeSession(session); err != nil {
		return model.ReplaySession{}, err
	}
	return session, nil
}

func (s *Store) writeSession(session model.ReplaySession) error {
	records := make([]snapshotRecord, len(session.Snapshots))
	for i, snap := range session.Snapshots {
		records[i] = snapshotRecord{Timestamp: snap.Timestamp, Wave: snap.Wave, Gold: snap.Gold, Essence: snap.Essence, Build: snap.Build}
	}
	raw, err := json.MarshalIndent(sessionFile{SessionID: session.SessionID, Source: session.Source, Snapshots: records}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.sessionPath(session.SessionID), raw, 0o644)
}

// LoadSession reads a previously imported session back from disk.
func (s *Store) LoadSession(sessionID string) (model.ReplaySession, error) {
	raw, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return model.ReplaySession{}, errorf("replay session not found: %s", sessionID)
		}
		return model.ReplaySession{}, err
	}
	var file sessionFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return model.ReplaySession{}, errorf("replay session %s is corrupt: %v", sessionID, err)
	}
	snapshots := make([]model.ReplaySnapshot, len(file.Snapshots))
	for i, rec := range file.Snapshots {
		snapshots[i] = model.ReplaySnapshot{Timestamp: rec.Timestamp, Wave: rec.Wave, Gold: rec.Gold, Essence: rec.Essence, Build: rec.Build}
	}
	source := file.Source
	if source == "" {
		source = "json"
	}
	return model.ReplaySession{SessionID: sessionID, Source: source, Snapshots: snapshots}, nil
}

// LatestSnapshot returns the final (chronologically last) snapshot of a
// session, contract-normalized as a LiveSnapshot with SourceMode "replay".
func (s *Store) LatestSnapshot(sessionID string) (model.LiveSnapshot, error) {
	session, err := s.LoadSession(sessionID)
	if err != nil {
		return model.LiveSnapshot{}, err
	}
	if len(session.Snapshots) == 0 {
		return model.LiveSnapshot{}, errorf("replay session has no snapshots: %s", sessionID)
	}
	snap := session.Snapshots[len(session.Snapshots)-1]
	return model.LiveSnapshot{
		Timestamp:  snap.Timestamp,
		Wave:       snap.Wave,
		Gold:       snap.Gold,
		Essence:    snap.Essence,
		Build:      snap.Build,
		SourceMode: "replay",
	}, nil
}

func (s *Store) parseJSON(content string) ([]model.ReplaySnapshot, error) {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errorf("invalid JSON replay payload: %v", err)
	}

	var raw []any
	switch v := parsed.(type) {
	case []any:
		raw = v
	case map[string]any:
		if items, ok := v["snapshots"].([]any); ok {
			raw = items
		}
	default:
		return nil, errorf("JSON replay payload must be a list or an object with a snapshots field")
	}

	now := float64(s.now().Unix())
	var snapshots []model.ReplaySnapshot
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		snapshots = append(snapshots, model.ReplaySnapshot{
			Timestamp: numberOr(obj["timestamp"], now),
			Wave:      int(numberOr(obj["wave"], 0)),
			Gold:      numberOr(obj["gold"], 0),
			Essence:   numberOr(obj["essence"], 0),
			Build:     buildMapOr(obj["build"]),
		})
	}
	if len(snapshots) == 0 {
		return nil, errorf("replay payload contains no snapshots")
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Timestamp < snapshots[j].Timestamp })
	return snapshots, nil
}

func (s *Store) parseCSV(content string) ([]model.ReplaySnapshot, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errorf("invalid CSV replay payload: %v", err)
	}
	if len(rows) == 0 {
		return nil, errorf("CSV replay payload contains no rows")
	}
	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	now := float64(s.now().Unix())
	var snapshots []model.ReplaySnapshot
	for _, row := range rows[1:] {
		get := func(col string) string {
			if idx, ok := colIndex[col]; ok && idx < len(row) {
				return row[idx]
			}
			return ""
		}
		var build map[string]any
		if raw := strings.TrimSpace(get("build")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &build); err != nil {
				build = map[string]any{"raw": raw}
			}
		} else {
			build = map[string]any{}
		}
		snapshots = append(snapshots, model.ReplaySnapshot{
			Timestamp: parseFloatOr(get("timestamp"), now),
			Wave:      int(parseFloatOr(get("wave"), 0)),
			Gold:      parseFloatOr(get("gold"), 0),
			Essence:   parseFloatOr(get("essence"), 0),
			Build:     build,
		})
	}
	if len(snapshots) == 0 {
		return nil, errorf("CSV replay payload contains no rows")
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Timestamp < snapshots[j].Timestamp })
	return snapshots, nil
}

func numberOr(v any, def float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return def
	}
}

func buildMapOr(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func parseFloatOr(text string, def float64) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return def
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return def
	}
	return v
}
