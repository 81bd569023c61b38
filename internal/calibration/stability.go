package calibration

import "github.com/apollion69/nordhold-calculator/internal/statutil"

// Stability scoring constants, named the same as the Python reference
// implementation so the formula below reads the same way.
const (
	minStableProbeCycles              = 3
	minSnapshotOKRatio                = 0.66
	maxTransient299RatioForStable      = 0.33
	maxTransient299RatioForCandidates = 0.66
	transient299ClusterPenalty        = 75.0
	transient299ConnectPenalty        = 16.0
	maxConnectFailurePenalty          = 120.0
	maxSnapshotStreakPenalty          = 60.0
	maxConnectFailuresForScore        = 6
	maxSnapshotStreakForScore         = 6
)

// StabilityStats summarizes one candidate's historical connect/poll
// reliability into a penalty/score pair used by the recommendation sort.
type StabilityStats struct {
	HasStabilityMetrics          bool
	SnapshotProbeCount           int
	SnapshotTotalCount           int
	SnapshotOKCount              int
	SnapshotOKRatio              float64
	Transient299Count            int
	Transient299Ratio            float64
	Transient299Excessive        bool
	CandidateStableProbe         bool
	CandidateStableProbeCycles   int
	ConnectFailuresTotalLast     int
	ConnectRetrySuccessTotal     int
	ConnectTransientFailureCount int
	SnapshotFailureStreakMax     int
	SnapshotFailuresTotalLast    int
	StabilityPenalty             float64
	StabilityScore               float64
}

func asIntField(m map[string]any, key string, def int) int {
	switch x := m[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return def
	}
}

// CandidateStabilityStats derives StabilityStats from a candidate's
// "stability" (or legacy "stability_metrics") sub-object. A candidate with
// no stability data at all is scored as maximally unstable, so a
// first-seen candidate never outranks one with a proven track record.
func CandidateStabilityStats(candidatePayload map[string]any) StabilityStats {
	raw, _ := candidatePayload["stability"].(map[string]any)
	if raw == nil {
		raw, _ = candidatePayload["stability_metrics"].(map[string]any)
	}
	if len(raw) == 0 {
		return StabilityStats{
			HasStabilityMetrics: false,
			StabilityPenalty:    100.0,
			StabilityScore:      0.0,
		}
	}

	probeCount := asIntField(raw, "snapshot_probe_count", 0)
	if probeCount <= 0 {
		probeCount = asIntField(raw, "probe_cycles", 0)
	}
	if probeCount <= 0 {
		probeCount = asIntField(raw, "probe_windows", 0)
	}

	okCount := asIntField(raw, "snapshot_ok_count", 0)
	if okCount <= 0 {
		okCount = asIntField(raw, "ok_count", 0)
	}

	totalCount := asIntField(raw, "snapshot_total_count", 0)
	if totalCount <= 0 {
		totalCount = asIntField(raw, "sample_count", 0)
	}
	if totalCount <= 0 {
		totalCount = maxInt(probeCount, okCount)
	}

	transient299Count := asIntField(raw, "transient_299_count", 0)
	if transient299Count <= 0 {
		transient299Count = asIntField(raw, "winerr299_count", 0)
	}

	var okRatio, transientRatio float64
	if totalCount > 0 {
		okRatio = statutil.Clamp(float64(okCount)/float64(totalCount), 0.0, 1.0)
		transientRatio = statutil.Clamp(float64(transient299Count)/float64(totalCount), 0.0, 1.0)
	}

	connectFailuresTotalLast := asIntField(raw, "connect_failures_total_last", 0)
	connectRetrySuccessTotal := asIntField(raw, "connect_retry_success_total", 0)
	connectTransientFailureCount := asIntField(raw, "connect_transient_failure_count", 0)
	snapshotFailureStreakMax := asIntField(raw, "snapshot_failure_streak_max", 0)
	snapshotFailuresTotalLast := asIntField(raw, "snapshot_failures_total_last", 0)

	transientExcessive := transientRatio >= maxTransient299RatioForStable
	stableProbe := probeCount >= minStableProbeCycles &&
		okRatio >= minSnapshotOKRatio &&
		!transientExcessive

	penalty := 0.0
	if !stableProbe {
		penalty += 40.0
	}
	penalty += maxF(0.0, minSnapshotOKRatio-okRatio) * 45.0

	if connectFailuresTotalLast > 0 {
		penalty += minF(maxConnectFailurePenalty, float64(connectFailuresTotalLast)*12.5)
		if connectFailuresTotalLast > maxConnectFailuresForScore {
			penalty += 60.0
		}
	}
	if connectTransientFailureCount > 0 {
		penalty += minF(maxTransient299RatioForCandidates*100.0, float64(connectTransientFailureCount)*transient299ConnectPenalty)
		if connectTransientFailureCount >= 2 {
			penalty += transient299ClusterPenalty
		}
	}
	if connectRetrySuccessTotal > 0 {
		penalty += maxF(0.0, 4.0-float64(connectRetrySuccessTotal))
	}
	if snapshotFailuresTotalLast > 0 {
		penalty += minF(maxSnapshotStreakPenalty, float64(snapshotFailuresTotalLast)*1.8)
	}
	if snapshotFailureStreakMax > 0 {
		penalty += minF(maxSnapshotStreakPenalty, float64(snapshotFailureStreakMax)*2.5)
		if snapshotFailureStreakMax > maxSnapshotStreakForScore {
			penalty += 45.0
		}
	}

	if okRatio < minSnapshotOKRatio {
		penalty += (minSnapshotOKRatio - okRatio) * 55.0
	}
	if okRatio < 0.25 {
		penalty += (0.25 - okRatio) * 180.0
	}
	if transientExcessive {
		penalty += 35.0
		if transientRatio >= maxTransient299RatioForStable+0.2 {
			penalty += 50.0
		}
	}
	penalty += transientRatio * 45.0
	penalty = maxF(0.0, penalty)

	return StabilityStats{
		HasStabilityMetrics:          true,
		SnapshotProbeCount:           probeCount,
		SnapshotTotalCount:           totalCount,
		SnapshotOKCount:              okCount,
		SnapshotOKRatio:              okRatio,
		Transient299Count:            transient299Count,
		Transient299Ratio:            transientRatio,
		Transient299Excessive:        transientExcessive,
		CandidateStableProbe:         stableProbe,
		CandidateStableProbeCycles:   probeCount,
		ConnectFailuresTotalLast:     connectFailuresTotalLast,
		ConnectRetrySuccessTotal:     connectRetrySuccessTotal,
		ConnectTransientFailureCount: connectTransientFailureCount,
		SnapshotFailureStreakMax:     snapshotFailureStreakMax,
		SnapshotFailuresTotalLast:    snapshotFailuresTotalLast,
		StabilityPenalty:             penalty,
		StabilityScore:               maxF(0.0, 100.0-penalty),
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
