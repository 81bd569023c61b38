// Package metrics exposes Prometheus metrics for the nordhold-calculator
// binaries.
//
// Endpoint: GET /metrics on 127.0.0.1:9531 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only — no external exposure.
//
// Metric naming convention: nordhold_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
//
// Cardinality control:
//   - Mode/state labels use the short enumerated string (few values).
//   - Memory addresses and PIDs are NOT used as labels (unbounded cardinality).
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for this module.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Scanner ──────────────────────────────────────────────────────────────

	// ScanBytesTotal counts bytes scanned, by process.
	ScanBytesTotal *prometheus.CounterVec

	// ScanMatchesTotal counts matches found, by process.
	ScanMatchesTotal *prometheus.CounterVec

	// ScanProgressReportsTotal counts progress reports emitted.
	ScanProgressReportsTotal prometheus.Counter

	// ScanProgressDroppedTotal counts progress reports throttled away.
	ScanProgressDroppedTotal prometheus.Counter

	// ─── Calibration ──────────────────────────────────────────────────────────

	// CandidatesBuiltTotal counts candidates emitted by BuildCalibrationCandidatesFromSnapshots.
	CandidatesBuiltTotal prometheus.Counter

	// RecommendationsTotal counts recommendation runs, by reason.
	RecommendationsTotal *prometheus.CounterVec

	// StabilityScoreHistogram records the distribution of candidate stability scores.
	StabilityScoreHistogram prometheus.Histogram

	// ─── Live Bridge ──────────────────────────────────────────────────────────

	// BridgeStateTransitionsTotal counts state transitions, by from_state and to_state.
	BridgeStateTransitionsTotal *prometheus.CounterVec

	// BridgeTransientRecoveriesTotal counts successful transient-error recoveries.
	BridgeTransientRecoveriesTotal prometheus.Counter

	// BridgePollLatency records poll-to-snapshot latency.
	BridgePollLatency prometheus.Histogram

	// ─── Simulation Engine ────────────────────────────────────────────────────

	// EvaluationsTotal counts EvaluateTimeline calls, by mode.
	EvaluationsTotal *prometheus.CounterVec

	// EvaluationLatency records per-call wall-clock latency.
	EvaluationLatency *prometheus.HistogramVec

	// ─── Process ──────────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since the process started.
	UptimeSeconds prometheus.Gauge

	startTime time.Time
}

// New creates and registers all nordhold Prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		ScanBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "scanner",
			Name:      "bytes_total",
			Help:      "Total bytes scanned, by process name.",
		}, []string{"process"}),

		ScanMatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "scanner",
			Name:      "matches_total",
			Help:      "Total matches found during a scan, by process name.",
		}, []string{"process"}),

		ScanProgressReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "scanner",
			Name:      "progress_reports_total",
			Help:      "Total progress reports emitted during scans.",
		}),

		ScanProgressDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "scanner",
			Name:      "progress_dropped_total",
			Help:      "Total progress reports throttled by the scan rate limiter.",
		}),

		CandidatesBuiltTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "calibration",
			Name:      "candidates_built_total",
			Help:      "Total calibration candidates emitted by BuildCalibrationCandidatesFromSnapshots.",
		}),

		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "calibration",
			Name:      "recommendations_total",
			Help:      "Total calibration recommendations computed, by reason.",
		}, []string{"reason"}),

		StabilityScoreHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nordhold",
			Subsystem: "calibration",
			Name:      "stability_score",
			Help:      "Distribution of candidate stability scores.",
			Buckets:   []float64{0, 10, 25, 40, 55, 70, 80, 90, 95, 100},
		}),

		BridgeStateTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "bridge",
			Name:      "state_transitions_total",
			Help:      "Total live-bridge state transitions, by from_state and to_state.",
		}, []string{"from_state", "to_state"}),

		BridgeTransientRecoveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "bridge",
			Name:      "transient_recoveries_total",
			Help:      "Total transient memory-read errors recovered by a single retry.",
		}),

		BridgePollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nordhold",
			Subsystem: "bridge",
			Name:      "poll_latency_seconds",
			Help:      "Latency of a single Snapshot() call in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordhold",
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Total EvaluateTimeline calls, by mode.",
		}, []string{"mode"}),

		EvaluationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nordhold",
			Subsystem: "engine",
			Name:      "evaluation_latency_seconds",
			Help:      "EvaluateTimeline wall-clock latency in seconds, by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nordhold",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the process started.",
		}),
	}

	reg.MustRegister(
		m.ScanBytesTotal,
		m.ScanMatchesTotal,
		m.ScanProgressReportsTotal,
		m.ScanProgressDroppedTotal,
		m.CandidatesBuiltTotal,
		m.RecommendationsTotal,
		m.StabilityScoreHistogram,
		m.BridgeStateTransitionsTotal,
		m.BridgeTransientRecoveriesTotal,
		m.BridgePollLatency,
		m.EvaluationsTotal,
		m.EvaluationLatency,
		m.UptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Serve starts the Prometheus HTTP metrics server on the given address.
// Blocks until ctx is cancelled or the server fails.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
