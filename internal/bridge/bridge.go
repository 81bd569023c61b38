package bridge

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apollion69/nordhold-calculator/internal/calibration"
	"github.com/apollion69/nordhold-calculator/internal/catalog"
	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/memreader"
	"github.com/apollion69/nordhold-calculator/internal/model"
	"github.com/apollion69/nordhold-calculator/internal/profile"
	"github.com/apollion69/nordhold-calculator/internal/replay"
)

// ConnectOptions configures a Connect (or the per-attempt settings inside an
// Autoconnect loop).
type ConnectOptions struct {
	ProcessName                string
	PollMS                     int
	RequireAdmin               bool
	DatasetVersion             string
	ReplaySessionID            string
	SignatureProfileID         string
	CalibrationCandidatesPath  string
	CalibrationCandidateID     string
	AutoconnectEnabled         *bool
	DatasetAutorefresh         *bool
}

// AutoconnectOptions configures Autoconnect.
type AutoconnectOptions struct {
	ProcessName               string
	PollMS                    int
	RequireAdmin              bool
	DatasetVersion            string
	DatasetAutorefresh        bool
	ReplaySessionID           string
	SignatureProfileID        string
	CalibrationCandidatesPath string
	CalibrationCandidateID    string
}

// Status is the Live Bridge's full observable state, as surfaced to
// bridgectl clients.
type Status struct {
	Status                    string
	Mode                      string
	ProcessName               string
	PollMS                    int
	RequireAdmin              bool
	DatasetVersion            string
	GameBuild                 string
	SignatureProfile          string
	CalibrationCandidatesPath string
	CalibrationCandidate      string
	Reason                    string
	ReplaySessionID           string
	MemoryConnected           bool
	FieldCoverage             FieldCoverage
	CalibrationQuality        string
	ActiveRequiredFields      []string
	CalibrationCandidateIDs   []string
	LastMemoryValues          map[string]any
	LastError                 map[string]any

	SnapshotFailureStreak        int
	SnapshotFailuresTotal        int
	SnapshotTransientFailureCount int
	ConnectFailuresTotal          int
	ConnectTransientFailureCount  int
	ConnectRetrySuccessTotal      int

	AutoconnectEnabled       bool
	AutoconnectLastAttemptAt string
	AutoconnectLastResult    map[string]any
	DatasetAutorefresh       bool
}

// FieldCoverage reports how many of a profile's required/optional combat
// fields actually resolved to real addresses.
type FieldCoverage struct {
	RequiredTotal    int
	RequiredResolved int
	OptionalTotal    int
	OptionalResolved int
}

// AutoconnectAttempt records the outcome of one candidate tried during
// Autoconnect.
type AutoconnectAttempt struct {
	Index              int
	CandidateID        string
	SelectedCandidateID string
	Mode               string
	Reason             string
	MemoryConnected    bool
}

// Bridge owns whichever data source is currently feeding combat-loop
// snapshots: a live memory-reader connection, an imported replay session, or
// a synthetic generator.
type Bridge struct {
	catalog     *catalog.Repository
	replayStore *replay.Store
	projectRoot string
	backend     memback.Backend
	reader      *memreader.Reader
	readJSON    func(string) (map[string]any, error)
	state       *stateHolder

	processName               string
	pollMS                    int
	requireAdmin              bool
	datasetVersion            string
	gameBuild                 string
	signatureProfile          string
	calibrationCandidatesPath string
	calibrationCandidate      string
	replaySessionID           string

	synthenticWave int

	memoryProfile                    *profile.Profile
	requiredFields                   []string
	availableCalibrationCandidateIDs []string
	lastMemoryValues                 map[string]any
	lastError                        map[string]any

	snapshotFailureStreak         int
	snapshotFailuresTotal         int
	snapshotTransientFailureCount int
	connectFailuresTotal          int
	connectTransientFailureCount  int
	connectRetrySuccessTotal      int

	autoconnectEnabled       bool
	autoconnectLastAttemptAt string
	autoconnectLastResult    map[string]any
	datasetAutorefresh       bool
}

// New constructs a Bridge rooted at projectRoot, reading datasets through
// cat and replay sessions through store, and reading/writing process memory
// through backend.
func New(projectRoot string, cat *catalog.Repository, store *replay.Store, backend memback.Backend) *Bridge {
	state := newStateHolder()
	state.Set(ModeDisconnected, "not_connected")
	return &Bridge{
		catalog:            cat,
		replayStore:        store,
		projectRoot:        projectRoot,
		backend:            backend,
		reader:             memreader.NewReader(backend),
		readJSON:           readJSONFile,
		state:              state,
		processName:        "NordHold.exe",
		pollMS:             1000,
		requireAdmin:       true,
		synthenticWave:     1,
		lastMemoryValues:   map[string]any{},
		lastError:          map[string]any{},
		datasetAutorefresh: true,
	}
}

func readJSONFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func processExists(backend memback.Backend, processName string) bool {
	_, err := backend.FindProcessID(processName)
	return err == nil
}

// Connect attempts to bring the bridge into memory mode against
// opts.ProcessName, falling back to opts.ReplaySessionID (if given) or
// degraded mode on failure. It always returns a Status and a nil error;
// connect failures are reported through the Status mode and reason.
func (b *Bridge) Connect(opts ConnectOptions) (Status, error) {
	b.reader.Close()
	b.snapshotFailureStreak = 0
	b.snapshotFailuresTotal = 0
	b.snapshotTransientFailureCount = 0
	b.connectFailuresTotal = 0
	b.connectTransientFailureCount = 0
	b.connectRetrySuccessTotal = 0
	b.memoryProfile = nil
	b.requiredFields = nil
	b.lastError = map[string]any{}

	processName := opts.ProcessName
	if processName == "" {
		processName = "NordHold.exe"
	}
	b.processName = processName
	pollMS := opts.PollMS
	if pollMS <= 0 {
		pollMS = 1000
	}
	b.pollMS = pollMS
	b.requireAdmin = opts.RequireAdmin
	b.replaySessionID = ""
	if opts.AutoconnectEnabled != nil {
		b.autoconnectEnabled = *opts.AutoconnectEnabled
	}
	if opts.DatasetAutorefresh != nil {
		b.datasetAutorefresh = *opts.DatasetAutorefresh
	}

	meta, signaturesPayload, err := b.catalog.LoadMemorySignatures(opts.DatasetVersion)
	if err != nil {
		return b.degrade("dataset_unavailable:" + err.Error()), nil
	}
	b.datasetVersion = meta.DatasetVersion
	b.gameBuild = meta.BuildID

	prof, err := b.loadProfileWithFallback(signaturesPayload, processName, opts.SignatureProfileID)
	if err != nil {
		return b.degrade("memory_profile_invalid:" + err.Error()), nil
	}

	b.requiredFields = coalesceFields(prof.RequiredCombatFields, profile.DefaultRequiredCombatFields)

	explicitCalibrationRequest := strings.TrimSpace(opts.CalibrationCandidatesPath) != "" || strings.TrimSpace(opts.CalibrationCandidateID) != ""
	implicitCalibrationNeeded := b.hasUnresolvedRequiredFields(prof)

	if explicitCalibrationRequest || implicitCalibrationNeeded {
		calibrationPayload, resolvedPath, loadErr := calibration.LoadCalibrationPayload(opts.CalibrationCandidatesPath, b.projectRoot, b.readJSON)
		if loadErr == nil {
			ids, idsErr := calibration.CalibrationCandidateIDs(calibrationPayload, prof.RequiredCombatFields, prof.OptionalCombatFields)
			if idsErr == nil {
				b.availableCalibrationCandidateIDs = ids
			}
			chosen, chooseErr := calibration.ChooseCalibrationCandidateID(calibrationPayload, opts.CalibrationCandidateID, prof.RequiredCombatFields, prof.OptionalCombatFields)
			if chooseErr == nil {
				calibrated, selectedID, applyErr := calibration.ApplyCalibrationCandidate(prof, calibrationPayload, chosen)
				if applyErr == nil {
					prof = calibrated
					b.calibrationCandidate = selectedID
					b.calibrationCandidatesPath = resolvedPath
				} else if explicitCalibrationRequest {
					return b.degrade("memory_profile_invalid:" + applyErr.Error()), nil
				}
			} else if explicitCalibrationRequest {
				return b.degrade("memory_profile_invalid:" + chooseErr.Error()), nil
			}
		} else if explicitCalibrationRequest {
			return b.degrade("memory_profile_invalid:" + loadErr.Error()), nil
		}
	}

	b.requiredFields = coalesceFields(prof.RequiredCombatFields, profile.DefaultRequiredCombatFields)
	b.signatureProfile = prof.ID
	b.memoryProfile = &prof
	if prof.PollMS > 0 {
		if pollMS < prof.PollMS {
			pollMS = prof.PollMS
		}
	}
	if pollMS < 200 {
		pollMS = 200
	}
	b.pollMS = pollMS
	if prof.RequiredAdmin {
		b.requireAdmin = true
	}

	hasProcess := processExists(b.backend, processName)
	if hasProcess {
		if b.requireAdmin && !isAdminContext() {
			return b.degrade("process_found_but_admin_required"), nil
		}
		values, connErr := b.connectOpenAndReadWithSingleRetry(prof)
		if connErr != nil {
			b.reader.Close()
			reason := classifyConnectFailure(connErr)
			b.setLastError("connect", connErr)
			return b.degrade(reason), nil
		}
		b.state.Set(ModeMemory, "ok")
		b.replaySessionID = ""
		b.lastError = map[string]any{}
		b.lastMemoryValues = normalizeRawMemoryValues(values)
		return b.Status(), nil
	}

	if strings.TrimSpace(opts.ReplaySessionID) != "" {
		if _, loadErr := b.replayStore.LoadSession(opts.ReplaySessionID); loadErr != nil {
			return b.degrade("memory_unavailable_replay_session_not_found"), nil
		}
		b.replaySessionID = opts.ReplaySessionID
		b.state.Set(ModeReplay, "using_replay_fallback")
		b.lastError = map[string]any{}
		return b.Status(), nil
	}

	return b.degrade("memory_unavailable_no_replay"), nil
}

func coalesceFields(preferred, fallback []string) []string {
	if len(preferred) > 0 {
		return preferred
	}
	return fallback
}

func classifyConnectFailure(err error) string {
	if _, ok := err.(*profile.Error); ok {
		return "memory_profile_invalid:" + err.Error()
	}
	return "memory_connect_failed:" + err.Error()
}

func (b *Bridge) hasUnresolvedRequiredFields(prof profile.Profile) bool {
	for _, name := range prof.RequiredCombatFields {
		spec, ok := prof.Fields[name]
		if !ok || !spec.Resolved() {
			return true
		}
	}
	return false
}

// loadProfileWithFallback tries LoadMemoryProfile under a small list of
// candidate profile ids: the requested one, its base id if it carries a
// "@candidate" calibration suffix, then the empty (auto-select) id.
func (b *Bridge) loadProfileWithFallback(signaturesPayload model.Payload, processName, requestedID string) (profile.Profile, error) {
	var attemptIDs []string
	requested := strings.TrimSpace(requestedID)
	if requested != "" {
		attemptIDs = append(attemptIDs, requested)
		if idx := strings.Index(requested, "@"); idx > 0 {
			attemptIDs = append(attemptIDs, requested[:idx])
		}
		attemptIDs = append(attemptIDs, "")
	} else {
		attemptIDs = append(attemptIDs, "")
	}

	var lastErr error
	for _, id := range attemptIDs {
		prof, err := profile.LoadMemoryProfile(signaturesPayload, processName, id)
		if err == nil {
			return prof, nil
		}
		lastErr = err
	}
	return profile.Profile{}, lastErr
}

func (b *Bridge) connectOpenAndReadWithSingleRetry(prof profile.Profile) (map[string]any, error) {
	if err := prof.EnsureResolved(nil); err != nil {
		return nil, err
	}
	values, err := b.openAndRead(prof)
	if err == nil {
		return values, nil
	}
	b.connectFailuresTotal++
	if !isTransientMemoryError(err) {
		return nil, err
	}
	b.connectTransientFailureCount++
	values, retryErr := b.reopenAndReadMemoryFields(prof)
	if retryErr != nil {
		b.connectFailuresTotal++
		return nil, retryErr
	}
	b.connectRetrySuccessTotal++
	return values, nil
}

func (b *Bridge) openAndRead(prof profile.Profile) (map[string]any, error) {
	if err := b.reader.Open(b.processName, prof); err != nil {
		return nil, err
	}
	return b.reader.ReadFields(prof)
}

func (b *Bridge) reopenAndReadMemoryFields(prof profile.Profile) (map[string]any, error) {
	b.reader.Close()
	return b.openAndRead(prof)
}

func (b *Bridge) setLastError(stage string, err error) {
	errType := "Error"
	if e, ok := err.(*memreader.Error); ok {
		errType = e.Kind
	} else if e, ok := err.(*memback.Error); ok {
		errType = e.Kind
	} else if _, ok := err.(*profile.Error); ok {
		errType = "ProfileError"
	}
	b.lastError = map[string]any{"stage": stage, "type": errType, "message": err.Error()}
}

func (b *Bridge) degrade(reason string) Status {
	b.state.Set(ModeDegraded, reason)
	return b.Status()
}

// Autoconnect attempts Connect once per calibration candidate (preferred
// first, then every other known candidate id in order), stopping at the
// first attempt that lands in memory mode.
func (b *Bridge) Autoconnect(opts AutoconnectOptions) (Status, error) {
	b.autoconnectEnabled = true
	b.autoconnectLastAttemptAt = time.Now().UTC().Format("2006-01-02T15:04:05Z")

	processName := opts.ProcessName
	if processName == "" {
		processName = "NordHold.exe"
	}
	requireAdmin := opts.RequireAdmin

	var attemptOrder []string
	var selectedCandidateID string
	var resolvedCandidatesPath string
	var recommendationReason string

	calibrationPayload, resolvedPath, loadErr := calibration.LoadCalibrationPayload(opts.CalibrationCandidatesPath, b.projectRoot, b.readJSON)
	explicitRequest := strings.TrimSpace(opts.CalibrationCandidatesPath) != "" || strings.TrimSpace(opts.CalibrationCandidateID) != ""
	if loadErr == nil {
		resolvedCandidatesPath = resolvedPath
		rec, recErr := calibration.CalibrationCandidateRecommendation(calibrationPayload, opts.CalibrationCandidateID, calibration.RequiredCombatFields, calibration.OptionalCombatFields)
		if recErr == nil {
			selectedCandidateID = rec.RecommendedCandidate
			if selectedCandidateID == "" {
				selectedCandidateID = strings.TrimSpace(opts.CalibrationCandidateID)
			}
			recommendationReason = rec.Reason
			ids, idsErr := calibration.CalibrationCandidateIDs(calibrationPayload, calibration.RequiredCombatFields, calibration.OptionalCombatFields)
			if idsErr == nil {
				seen := map[string]bool{}
				if selectedCandidateID != "" {
					attemptOrder = append(attemptOrder, selectedCandidateID)
					seen[selectedCandidateID] = true
				}
				for _, id := range ids {
					if !seen[id] {
						seen[id] = true
						attemptOrder = append(attemptOrder, id)
					}
				}
			}
		}
	} else if !explicitRequest {
		if selectedCandidateID == "" {
			selectedCandidateID = strings.TrimSpace(opts.CalibrationCandidateID)
		}
	}
	if len(attemptOrder) == 0 {
		attemptOrder = []string{selectedCandidateID}
	}

	var attempts []AutoconnectAttempt
	fallbackUsed := false
	finalMode := ""
	finalReason := ""

	for index, candidateID := range attemptOrder {
		datasetVersion := opts.DatasetVersion
		if opts.DatasetAutorefresh {
			datasetVersion = ""
		}
		status, _ := b.Connect(ConnectOptions{
			ProcessName:               processName,
			PollMS:                    opts.PollMS,
			RequireAdmin:              requireAdmin,
			DatasetVersion:            datasetVersion,
			ReplaySessionID:           opts.ReplaySessionID,
			SignatureProfileID:        opts.SignatureProfileID,
			CalibrationCandidatesPath: opts.CalibrationCandidatesPath,
			CalibrationCandidateID:    candidateID,
		})
		attempts = append(attempts, AutoconnectAttempt{
			Index:               index,
			CandidateID:         candidateID,
			SelectedCandidateID: b.calibrationCandidate,
			Mode:                status.Mode,
			Reason:              status.Reason,
			MemoryConnected:     status.MemoryConnected,
		})
		finalMode = status.Mode
		finalReason = status.Reason
		if status.Mode == "memory" {
			fallbackUsed = index > 0
			break
		}
	}
	if len(attempts) > 1 {
		fallbackUsed = true
	}

	selectedFinal := b.calibrationCandidate

	attemptPayloads := make([]map[string]any, len(attempts))
	for i, a := range attempts {
		attemptPayloads[i] = map[string]any{
			"index":                a.Index,
			"candidate_id":         a.CandidateID,
			"selected_candidate_id": a.SelectedCandidateID,
			"mode":                 a.Mode,
			"reason":               a.Reason,
			"memory_connected":     a.MemoryConnected,
		}
	}

	b.autoconnectLastResult = map[string]any{
		"ok":               finalMode == "memory",
		"mode":             finalMode,
		"reason":           finalReason,
		"dataset_version":  b.datasetVersion,
		"calibration_candidates_path": resolvedCandidatesPath,
		"calibration_candidate":       b.calibrationCandidate,
		"candidate_selection": map[string]any{
			"selected_candidate_id":   selectedCandidateID,
			"resolved_candidates_path": resolvedCandidatesPath,
			"recommendation_reason":   recommendationReason,
		},
		"attempts":                  attemptPayloads,
		"selected_candidate_id_final": selectedFinal,
		"fallback_used":             fallbackUsed,
	}

	return b.Status(), nil
}

func (b *Bridge) fieldCoverage() FieldCoverage {
	var cov FieldCoverage
	if b.memoryProfile == nil {
		return cov
	}
	requiredSet := make(map[string]bool, len(b.requiredFields))
	for _, name := range b.requiredFields {
		requiredSet[name] = true
	}
	cov.RequiredTotal = len(b.requiredFields)
	for _, name := range b.requiredFields {
		if spec, ok := b.memoryProfile.Fields[name]; ok && spec.Resolved() {
			cov.RequiredResolved++
		}
	}
	for name, spec := range b.memoryProfile.Fields {
		if requiredSet[name] {
			continue
		}
		cov.OptionalTotal++
		if spec.Resolved() {
			cov.OptionalResolved++
		}
	}
	return cov
}

func calibrationQuality(cov FieldCoverage) string {
	if cov.RequiredTotal > 0 && cov.RequiredResolved == cov.RequiredTotal {
		if cov.OptionalTotal == 0 || cov.OptionalResolved == cov.OptionalTotal {
			return "full"
		}
		return "partial"
	}
	if cov.RequiredResolved > 0 || cov.OptionalResolved > 0 {
		return "partial"
	}
	return "minimal"
}

// Status reports the bridge's full current state.
func (b *Bridge) Status() Status {
	mode, reason := b.state.Current()
	coverage := b.fieldCoverage()
	return Status{
		Status:                    statusLabel(mode),
		Mode:                      mode.String(),
		ProcessName:               b.processName,
		PollMS:                    b.pollMS,
		RequireAdmin:              b.requireAdmin,
		DatasetVersion:            b.datasetVersion,
		GameBuild:                 b.gameBuild,
		SignatureProfile:          b.signatureProfile,
		CalibrationCandidatesPath: b.calibrationCandidatesPath,
		CalibrationCandidate:      b.calibrationCandidate,
		Reason:                    reason,
		ReplaySessionID:           b.replaySessionID,
		MemoryConnected:           b.reader.Connected(),
		FieldCoverage:             coverage,
		CalibrationQuality:        calibrationQuality(coverage),
		ActiveRequiredFields:      append([]string{}, b.requiredFields...),
		CalibrationCandidateIDs:   append([]string{}, b.availableCalibrationCandidateIDs...),
		LastMemoryValues:          copyAnyMap(b.lastMemoryValues),
		LastError:                 copyAnyMap(b.lastError),

		SnapshotFailureStreak:         b.snapshotFailureStreak,
		SnapshotFailuresTotal:         b.snapshotFailuresTotal,
		SnapshotTransientFailureCount: b.snapshotTransientFailureCount,
		ConnectFailuresTotal:          b.connectFailuresTotal,
		ConnectTransientFailureCount:  b.connectTransientFailureCount,
		ConnectRetrySuccessTotal:      b.connectRetrySuccessTotal,

		AutoconnectEnabled:       b.autoconnectEnabled,
		AutoconnectLastAttemptAt: b.autoconnectLastAttemptAt,
		AutoconnectLastResult:    copyAnyMap(b.autoconnectLastResult),
		DatasetAutorefresh:       b.datasetAutorefresh,
	}
}

func statusLabel(mode Mode) string {
	if mode == ModeMemory {
		return "connected"
	}
	return "degraded"
}

func copyAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Snapshot returns the bridge's current LiveSnapshot, reading live memory
// when connected, falling back to the active replay session, or else
// synthesizing one — always passed through the raw-memory contract
// normalizer so build["raw_memory_fields"] is present either way.
func (b *Bridge) Snapshot() (model.LiveSnapshot, error) {
	mode, _ := b.state.Current()

	if mode == ModeMemory && b.reader.Connected() && b.memoryProfile != nil {
		values, err := b.reader.ReadFields(*b.memoryProfile)
		if err != nil {
			b.snapshotFailureStreak++
			b.snapshotFailuresTotal++
			if isTransientMemoryError(err) {
				b.snapshotTransientFailureCount++
				retryValues, retryErr := b.reopenAndReadMemoryFields(*b.memoryProfile)
				if retryErr != nil {
					b.reader.Close()
					b.setLastError("snapshot", retryErr)
					b.degrade("memory_snapshot_failed:" + retryErr.Error())
					return b.syntheticSnapshot(), nil
				}
				b.state.Set(ModeMemory, "ok")
				b.snapshotFailureStreak = 0
				b.lastError = map[string]any{}
				return b.snapshotFromMemoryValues(retryValues), nil
			}
			b.reader.Close()
			b.setLastError("snapshot", err)
			b.degrade("memory_snapshot_failed:" + err.Error())
			return b.syntheticSnapshot(), nil
		}
		b.snapshotFailureStreak = 0
		b.lastError = map[string]any{}
		return b.snapshotFromMemoryValues(values), nil
	}

	if mode == ModeReplay && b.replaySessionID != "" {
		snap, err := b.replayStore.LatestSnapshot(b.replaySessionID)
		if err != nil {
			return model.LiveSnapshot{}, err
		}
		return b.withRawMemoryContract(snap), nil
	}

	return b.syntheticSnapshot(), nil
}

func (b *Bridge) syntheticSnapshot() model.LiveSnapshot {
	snap := model.LiveSnapshot{
		Timestamp:  float64(time.Now().Unix()),
		Wave:       b.synthenticWave,
		Gold:       0,
		Essence:    0,
		Build:      map[string]any{"towers": []any{}},
		SourceMode: "synthetic",
	}
	return b.withRawMemoryContract(snap)
}

func (b *Bridge) snapshotFromMemoryValues(values map[string]any) model.LiveSnapshot {
	normalized := normalizeRawMemoryValues(values)
	b.lastMemoryValues = normalized

	wave := b.synthenticWave
	if v, ok := normalized["current_wave"]; ok {
		wave = asInt(v)
	}
	if wave < 1 {
		wave = 1
	}
	b.synthenticWave = wave

	gold := resolveNumericField(normalized, []string{"gold"}, 0)
	essence := resolveNumericField(normalized, []string{"essence"}, 0)
	block := combatBlockPayload(normalized)

	snap := model.LiveSnapshot{
		Timestamp: float64(time.Now().Unix()),
		Wave:      wave,
		Gold:      gold,
		Essence:   essence,
		Build: map[string]any{
			"towers":           []any{},
			"raw_memory_fields": normalized,
			"combat":           map[string]any{"block": block},
		},
		SourceMode: "memory",
	}
	return b.withRawMemoryContract(snap)
}

// withRawMemoryContract guarantees build["raw_memory_fields"] is always
// present and contract-normalized, regardless of the snapshot's source mode.
func (b *Bridge) withRawMemoryContract(snap model.LiveSnapshot) model.LiveSnapshot {
	if snap.Build == nil {
		snap.Build = map[string]any{}
	}
	raw, _ := snap.Build["raw_memory_fields"].(map[string]any)
	snap.Build["raw_memory_fields"] = normalizeRawMemoryValues(raw)
	return snap
}

// CalibrationCandidateInspection is the result of InspectCalibrationCandidates.
type CalibrationCandidateInspection struct {
	Path                          string
	ActiveCandidateID             string
	RecommendedCandidateID        string
	RecommendedCandidateSupport   calibration.QualityStats
	CandidateIDs                  []string
	Candidates                    []calibration.CandidateSummary
}

// InspectCalibrationCandidates loads and scores every candidate in path (or
// the auto-discovered calibration file if path is empty).
func (b *Bridge) InspectCalibrationCandidates(path string) (CalibrationCandidateInspection, error) {
	payload, resolvedPath, err := calibration.LoadCalibrationPayload(path, b.projectRoot, b.readJSON)
	if err != nil {
		return CalibrationCandidateInspection{}, err
	}

	required := calibration.RequiredCombatFields
	optional := calibration.OptionalCombatFields
	if b.memoryProfile != nil {
		required = b.memoryProfile.RequiredCombatFields
		optional = b.memoryProfile.OptionalCombatFields
	}

	summaries, err := calibration.ListCalibrationCandidateSummaries(payload, required, optional)
	if err != nil {
		return CalibrationCandidateInspection{}, err
	}
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	sort.Strings(ids)

	activeID := ""
	if s, ok := payload["active_candidate_id"].(string); ok {
		activeID = s
	} else if s, ok := payload["active_candidate"].(string); ok {
		activeID = s
	}

	rec, err := calibration.CalibrationCandidateRecommendation(payload, b.calibrationCandidate, required, optional)
	if err != nil {
		return CalibrationCandidateInspection{}, err
	}

	var support calibration.QualityStats
	for _, s := range summaries {
		if s.ID == rec.RecommendedCandidate {
			support = s.CandidateQuality
			break
		}
	}

	return CalibrationCandidateInspection{
		Path:                        resolvedPath,
		ActiveCandidateID:           activeID,
		RecommendedCandidateID:      rec.RecommendedCandidate,
		RecommendedCandidateSupport: support,
		CandidateIDs:                ids,
		Candidates:                  summaries,
	}, nil
}
