package metrics

import "testing"

func TestNew_RegistersWithoutPanic(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("expected non-nil Metrics")
	}
	m.ScanBytesTotal.WithLabelValues("nordhold.exe").Add(128)
	m.RecommendationsTotal.WithLabelValues("preferred_candidate_valid").Inc()
	m.EvaluationsTotal.WithLabelValues("expected").Inc()
}
