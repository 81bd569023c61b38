package calibration

import (
	"sort"
	"strings"
)

// RecommendationAlgorithm names the deterministic tie-break order used by
// CalibrationCandidateRecommendation, kept as a single exported constant so
// downstream consumers (and tests) can assert on it without duplicating it.
const RecommendationAlgorithm = "preferred_if_valid_else_max_required_resolved_then_stability_then_active_candidate_id_then_original_order"

// CandidateSummary is one candidate's resolved field addresses plus its
// quality/stability scoring, as returned by ListCalibrationCandidateSummaries.
type CandidateSummary struct {
	ID               string
	ProfileID        string
	Fields           map[string]string
	CandidateQuality QualityStats
}

// ListCalibrationCandidateSummaries resolves every candidate's address map
// and quality score against the payload's (or caller-supplied) combat field
// sets.
func ListCalibrationCandidateSummaries(calibrationPayload map[string]any, requiredFields, optionalFields []string) ([]CandidateSummary, error) {
	required, optional, err := ResolveCombatFieldSets(calibrationPayload, requiredFields, optionalFields)
	if err != nil {
		return nil, err
	}

	summaryFields := append(append([]string{}, required...), optional...)

	entries, err := IterCandidateEntries(calibrationPayload)
	if err != nil {
		return nil, err
	}

	summaries := make([]CandidateSummary, 0, len(entries))
	for _, entry := range entries {
		fieldsPayload, _ := entry.Payload["fields"].(map[string]any)
		if fieldsPayload == nil {
			fieldsPayload = map[string]any{}
		}

		addressMap := make(map[string]string, len(summaryFields))
		for _, fieldName := range summaryFields {
			rawField, _ := fieldsPayload[fieldName].(map[string]any)
			if rawField == nil {
				addressMap[fieldName] = ""
				continue
			}
			if rawAddress, ok := rawField["address"]; ok {
				if hexStr, err := addressToHex(rawAddress); err == nil {
					addressMap[fieldName] = hexStr
				} else if s, ok := rawAddress.(string); ok {
					addressMap[fieldName] = s
				} else {
					addressMap[fieldName] = ""
				}
			} else {
				addressMap[fieldName] = ""
			}
		}

		quality := CandidateQuality(fieldsPayload, required, optional, entry.Payload)

		profileID := ""
		if s, ok := entry.Payload["profile_id"].(string); ok {
			profileID = s
		} else if s, ok := entry.Payload["base_profile_id"].(string); ok {
			profileID = s
		}

		summaries = append(summaries, CandidateSummary{
			ID:               entry.ID,
			ProfileID:        strings.TrimSpace(profileID),
			Fields:           addressMap,
			CandidateQuality: quality,
		})
	}

	return summaries, nil
}

type candidateScore struct {
	ID                           string
	Valid                        bool
	ResolvedRequiredFields       int
	IsActiveCandidate            bool
	OriginalOrder                int
	HasStabilityMetrics          bool
	CandidateStableProbe         bool
	CandidateStabilityScore      float64
	SnapshotOKRatio              float64
	Transient299Ratio            float64
	Transient299Excessive        bool
	CandidateStableProbeCycles   int
	ConnectFailuresTotalLast     int
	SnapshotFailureStreakMax     int
	SnapshotFailuresTotalLast    int
	ConnectTransientFailureCount int
	StabilityPenalty             float64
}

// Recommendation is the full recommendation record returned by
// CalibrationCandidateRecommendation, matching the scanner's on-disk
// "recommended_candidate_support" payload shape.
type Recommendation struct {
	Algorithm             string
	PreferredCandidateID  string
	ActiveCandidateID     string
	RequiredCombatFields  []string
	OptionalCombatFields  []string
	RecommendedCandidate  string
	Reason                string
	NoStableCandidate     bool
	CandidateScores       []candidateScore
}

func sortKeyLess(a, b candidateScore) bool {
	av, bv := boolRank(a.Valid), boolRank(b.Valid)
	if av != bv {
		return av > bv
	}
	ap, bp := boolRank(a.CandidateStableProbe), boolRank(b.CandidateStableProbe)
	if ap != bp {
		return ap > bp
	}
	if a.CandidateStabilityScore != b.CandidateStabilityScore {
		return a.CandidateStabilityScore > b.CandidateStabilityScore
	}
	if a.StabilityPenalty != b.StabilityPenalty {
		return a.StabilityPenalty < b.StabilityPenalty
	}
	if a.ConnectFailuresTotalLast != b.ConnectFailuresTotalLast {
		return a.ConnectFailuresTotalLast < b.ConnectFailuresTotalLast
	}
	if a.SnapshotFailureStreakMax != b.SnapshotFailureStreakMax {
		return a.SnapshotFailureStreakMax < b.SnapshotFailureStreakMax
	}
	if a.SnapshotOKRatio != b.SnapshotOKRatio {
		return a.SnapshotOKRatio > b.SnapshotOKRatio
	}
	if a.Transient299Ratio != b.Transient299Ratio {
		return a.Transient299Ratio < b.Transient299Ratio
	}
	aa, ba := boolRank(a.IsActiveCandidate), boolRank(b.IsActiveCandidate)
	if aa != ba {
		return aa > ba
	}
	return a.OriginalOrder < b.OriginalOrder
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CalibrationCandidateRecommendation scores every candidate and picks one
// deterministically: a valid preferred candidate wins outright, otherwise
// the candidate with the most resolved required fields wins, narrowed first
// to ones with a proven stable probe history, then broken by stability
// score, stability penalty, failure counts, active-candidate status, and
// finally original list order.
func CalibrationCandidateRecommendation(calibrationPayload map[string]any, preferredCandidateID string, requiredFields, optionalFields []string) (Recommendation, error) {
	summaries, err := ListCalibrationCandidateSummaries(calibrationPayload, requiredFields, optionalFields)
	if err != nil {
		return Recommendation{}, err
	}
	required, optional, err := ResolveCombatFieldSets(calibrationPayload, requiredFields, optionalFields)
	if err != nil {
		return Recommendation{}, err
	}

	preferred := strings.TrimSpace(preferredCandidateID)
	activeID := ""
	if s, ok := calibrationPayload["active_candidate_id"].(string); ok {
		activeID = s
	} else if s, ok := calibrationPayload["active_candidate"].(string); ok {
		activeID = s
	}
	activeID = strings.TrimSpace(activeID)

	scores := make([]candidateScore, 0, len(summaries))
	byID := make(map[string]int, len(summaries))
	for index, summary := range summaries {
		q := summary.CandidateQuality
		score := candidateScore{
			ID:                           summary.ID,
			Valid:                        q.Valid,
			ResolvedRequiredFields:       q.ResolvedRequiredCount,
			IsActiveCandidate:            summary.ID == activeID,
			OriginalOrder:                index + 1,
			HasStabilityMetrics:          q.Stability.HasStabilityMetrics,
			CandidateStableProbe:         q.Stability.CandidateStableProbe,
			CandidateStabilityScore:      q.Stability.StabilityScore,
			SnapshotOKRatio:              q.Stability.SnapshotOKRatio,
			Transient299Ratio:            q.Stability.Transient299Ratio,
			Transient299Excessive:        q.Stability.Transient299Excessive,
			CandidateStableProbeCycles:   q.Stability.CandidateStableProbeCycles,
			ConnectFailuresTotalLast:     q.Stability.ConnectFailuresTotalLast,
			SnapshotFailureStreakMax:     q.Stability.SnapshotFailureStreakMax,
			SnapshotFailuresTotalLast:    q.Stability.SnapshotFailuresTotalLast,
			ConnectTransientFailureCount: q.Stability.ConnectTransientFailureCount,
			StabilityPenalty:             q.Stability.StabilityPenalty,
		}
		byID[score.ID] = len(scores)
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		return Recommendation{}, errorf("calibration payload has no candidate entries")
	}

	recommendedID := ""
	reason := ""
	noStableCandidate := false

	if preferred != "" {
		if idx, ok := byID[preferred]; ok && scores[idx].Valid {
			recommendedID = preferred
			reason = "preferred_candidate_valid"
		}
	}

	if recommendedID == "" && reason == "" {
		maxResolvedRequired := 0
		for _, s := range scores {
			if s.ResolvedRequiredFields > maxResolvedRequired {
				maxResolvedRequired = s.ResolvedRequiredFields
			}
		}

		var contenders []candidateScore
		for _, s := range scores {
			if s.ResolvedRequiredFields == maxResolvedRequired {
				contenders = append(contenders, s)
			}
		}

		var withStability []candidateScore
		for _, c := range contenders {
			if c.HasStabilityMetrics {
				withStability = append(withStability, c)
			}
		}

		var stableContenders []candidateScore
		for _, c := range withStability {
			if c.CandidateStableProbe && c.CandidateStabilityScore > 0.0 && !c.Transient299Excessive {
				stableContenders = append(stableContenders, c)
			}
		}

		if len(stableContenders) > 0 {
			contenders = stableContenders
		} else if len(withStability) > 0 {
			noStableCandidate = true
			contenders = withStability
		}

		sort.SliceStable(contenders, func(i, j int) bool {
			return sortKeyLess(contenders[i], contenders[j])
		})

		if len(contenders) > 0 {
			winner := contenders[0]
			if len(withStability) > 0 {
				if !noStableCandidate {
					recommendedID = winner.ID
				}
			} else {
				recommendedID = winner.ID
			}
			if winner.IsActiveCandidate {
				reason = "max_required_resolved_active_candidate_tiebreak"
			} else {
				reason = "max_required_resolved_original_order_tiebreak"
			}
			if noStableCandidate && len(stableContenders) == 0 {
				reason = "max_required_resolved_no_stable_probe"
			}
		}
		if noStableCandidate && reason == "" {
			reason = "max_required_resolved_no_stable_probe"
		}
	}

	return Recommendation{
		Algorithm:            RecommendationAlgorithm,
		PreferredCandidateID: preferred,
		ActiveCandidateID:    activeID,
		RequiredCombatFields: required,
		OptionalCombatFields: optional,
		RecommendedCandidate: recommendedID,
		Reason:               reason,
		NoStableCandidate:    noStableCandidate,
		CandidateScores:      scores,
	}, nil
}

// ChooseCalibrationCandidateID picks the candidate id to use, falling back
// from an empty recommendation to the preferred candidate (if valid) and
// finally to the same deterministic sort used by the recommendation itself.
func ChooseCalibrationCandidateID(calibrationPayload map[string]any, preferredCandidateID string, requiredFields, optionalFields []string) (string, error) {
	recommendation, err := CalibrationCandidateRecommendation(calibrationPayload, preferredCandidateID, requiredFields, optionalFields)
	if err != nil {
		return "", err
	}
	if recommendation.RecommendedCandidate != "" {
		return recommendation.RecommendedCandidate, nil
	}

	byID := make(map[string]candidateScore, len(recommendation.CandidateScores))
	for _, s := range recommendation.CandidateScores {
		byID[s.ID] = s
	}
	preferred := strings.TrimSpace(preferredCandidateID)
	if preferred != "" {
		if s, ok := byID[preferred]; ok && s.Valid {
			return preferred, nil
		}
	}

	sorted := append([]candidateScore{}, recommendation.CandidateScores...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortKeyLess(sorted[i], sorted[j])
	})
	if len(sorted) == 0 {
		return "", errorf("calibration payload has no candidate entries")
	}
	return sorted[0].ID, nil
}
