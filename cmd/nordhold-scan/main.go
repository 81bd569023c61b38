// Package main — cmd/nordhold-scan/main.go
//
// Memory Scanner entrypoint.
//
// Attaches to a running process by name, performs one chunked exact-value
// scan across its readable address space, and writes a snapshot (TSV records
// + JSON metadata) a Calibration Layer run can consume. It does not narrow
// the result set against further live reads; -source-meta only records an
// earlier snapshot as this one's source.
//
// Usage:
//
//	nordhold-scan -process towerdefense.exe -value 1000 -type int32 -out runtime/snapshots/gold
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apollion69/nordhold-calculator/internal/config"
	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/metrics"
	"github.com/apollion69/nordhold-calculator/internal/ratelimit"
	"github.com/apollion69/nordhold-calculator/internal/scanner"
)

func main() {
	configPath := flag.String("config", "/etc/nordhold/config.yaml", "Path to config.yaml")
	processName := flag.String("process", "", "Target process name (required)")
	valueText := flag.String("value", "", "Value to search for (required)")
	valueType := flag.String("type", "int32", "Value type: int32, float32, uint64")
	epsilon := flag.Float64("epsilon", 0, "Float comparison tolerance (defaults to config scanner.float_epsilon)")
	minAddress := flag.Int64("min-address", 0, "Minimum address to scan")
	maxAddress := flag.Int64("max-address", 0, "Maximum address to scan (0 means backend default)")
	outBase := flag.String("out", "runtime/snapshots/snapshot", "Output snapshot path base (writes .meta.json and .tsv)")
	sourceSnapshotMeta := flag.String("source-meta", "", "Previous snapshot meta path, if this run narrows an earlier one")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("nordhold-scan %s (commit=%s built=%s)\n", config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}
	if *processName == "" || *valueText == "" {
		fmt.Fprintln(os.Stderr, "FATAL: -process and -value are required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	vt := scanner.ValueType(*valueType)
	target, err := scanner.ParseValue(*valueText, vt)
	if err != nil {
		log.Fatal("invalid -value for the given -type", zap.Error(err))
	}
	eps := *epsilon
	if eps == 0 {
		eps = cfg.Scanner.FloatEpsilon
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received — aborting scan", zap.String("signal", sig.String()))
		cancel()
	}()

	backend := memback.SelectBackend()
	if !backend.SupportsMemoryRead() {
		log.Warn("this platform has no live memory-read backend; scan will fail to find a process",
			zap.String("process", *processName))
	}

	pid, err := backend.FindProcessID(*processName)
	if err != nil {
		log.Fatal("process not found", zap.String("process", *processName), zap.Error(err))
	}
	handle, err := backend.OpenProcess(pid)
	if err != nil {
		log.Fatal("failed to open process", zap.Int("pid", pid), zap.Error(err))
	}
	defer backend.CloseProcess(handle)
	log.Info("attached to process", zap.String("process", *processName), zap.Int("pid", pid))

	met := metrics.New()
	go func() {
		if err := met.Serve(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	reporter := newMetricsReporter(met, log, *processName)
	s := scanner.New(backend, handle)
	opts := scanner.ScanOptions{
		ValueType:        vt,
		Target:           target,
		Epsilon:          eps,
		ChunkBytes:       cfg.Scanner.ChunkBytes,
		MinAddress:       *minAddress,
		MaxAddress:       *maxAddress,
		MaxResults:       cfg.Scanner.MaxResults,
		Workers:          cfg.Scanner.WorkerCount,
		ProcessName:      *processName,
		ProgressInterval: time.Duration(cfg.Scanner.ProgressIntervalMB) * time.Second,
	}

	started := time.Now()
	candidates, stats, err := s.ScanForValue(ctx, opts, reporter)
	if err != nil {
		log.Fatal("scan failed", zap.Error(err))
	}
	log.Info("scan complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("regions_scanned", stats.RegionsScanned),
		zap.Int64("bytes_scanned", stats.BytesScanned),
		zap.Int("read_errors", stats.ReadErrors),
		zap.Float64("elapsed_s", stats.ElapsedS),
		zap.Bool("max_results_hit", stats.MaxResultsHit),
	)

	criteria := map[string]any{"target": target, "epsilon": eps}
	summary := map[string]any{
		"regions_scanned": stats.RegionsScanned,
		"bytes_scanned":   stats.BytesScanned,
		"read_errors":     stats.ReadErrors,
		"elapsed_s":       stats.ElapsedS,
		"max_results_hit": stats.MaxResultsHit,
	}
	metaPath, recordsPath, count, err := scanner.WriteSnapshot(
		*outBase, *processName, pid, vt, "scan", criteria, summary, candidates, *sourceSnapshotMeta, started)
	if err != nil {
		log.Fatal("failed to write snapshot", zap.Error(err))
	}
	log.Info("snapshot written", zap.String("meta", metaPath), zap.String("records", recordsPath), zap.Int("count", count))
}

// metricsReporter forwards scan progress to Prometheus counters, throttled
// by a token bucket so a tight scan loop cannot flood the metrics pipeline.
type metricsReporter struct {
	met         *metrics.Metrics
	log         *zap.Logger
	processName string
	limiter     *ratelimit.Bucket
}

func newMetricsReporter(met *metrics.Metrics, log *zap.Logger, processName string) *metricsReporter {
	return &metricsReporter{
		met:         met,
		log:         log,
		processName: processName,
		limiter:     ratelimit.New(20, time.Second),
	}
}

func (r *metricsReporter) Report(bytesScanned int64, candidatesFound int) {
	r.met.ScanBytesTotal.WithLabelValues(r.processName).Add(float64(bytesScanned))
	if !r.limiter.Allow() {
		r.met.ScanProgressDroppedTotal.Inc()
		return
	}
	r.met.ScanProgressReportsTotal.Inc()
	r.log.Debug("scan progress", zap.Int64("bytes_scanned", bytesScanned), zap.Int("candidates", candidatesFound))
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}
