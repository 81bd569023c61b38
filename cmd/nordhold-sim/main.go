// Package main — cmd/nordhold-sim/main.go
//
// Simulation Engine CLI.
//
// Loads a scenario from the dataset catalog and a build plan from a JSON
// file, evaluates the timeline in the requested mode, and prints the
// stabilized, JSON-ready result to stdout.
//
// Usage:
//
//	nordhold-sim -scenario proving-grounds -build build.json -mode expected -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apollion69/nordhold-calculator/internal/catalog"
	"github.com/apollion69/nordhold-calculator/internal/config"
	"github.com/apollion69/nordhold-calculator/internal/engine"
	"github.com/apollion69/nordhold-calculator/internal/metrics"
	"github.com/apollion69/nordhold-calculator/internal/model"
)

func main() {
	configPath := flag.String("config", "/etc/nordhold/config.yaml", "Path to config.yaml")
	scenarioID := flag.String("scenario", "", "Scenario id to load from the dataset catalog (required)")
	datasetVersion := flag.String("dataset-version", "", "Dataset version override (defaults to the catalog's active version)")
	buildPath := flag.String("build", "", "Path to a JSON build-plan file (required)")
	mode := flag.String("mode", engine.ModeExpected, "Evaluation mode: expected, combat, monte_carlo")
	seed := flag.Int64("seed", 1, "Evaluation seed")
	monteCarloRuns := flag.Int("monte-carlo-runs", 64, "Number of runs averaged in monte_carlo mode")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("nordhold-sim %s (commit=%s built=%s)\n", config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}
	if *scenarioID == "" || *buildPath == "" {
		fmt.Fprintln(os.Stderr, "FATAL: -scenario and -build are required")
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

	cat := catalog.New(cfg.Dataset.Root)
	meta, scenario, err := cat.LoadScenario(*scenarioID, *datasetVersion)
	if err != nil {
		log.Fatal("scenario load failed", zap.String("scenario", *scenarioID), zap.Error(err))
	}

	buildPayload, err := readJSONFile(*buildPath)
	if err != nil {
		log.Fatal("build plan read failed", zap.String("path", *buildPath), zap.Error(err))
	}
	build, err := model.BuildPlanFromPayload(buildPayload)
	if err != nil {
		log.Fatal("build plan invalid", zap.Error(err))
	}

	met := metrics.New()
	started := time.Now()
	result, err := engine.EvaluateTimeline(scenario, build, meta.DatasetVersion, *mode, *seed, *monteCarloRuns)
	met.EvaluationsTotal.WithLabelValues(*mode).Inc()
	met.EvaluationLatency.WithLabelValues(*mode).Observe(time.Since(started).Seconds())
	if err != nil {
		log.Fatal("evaluation failed", zap.String("mode", *mode), zap.Error(err))
	}

	encoded, err := json.MarshalIndent(result.ToMap(), "", "  ")
	if err != nil {
		log.Fatal("result encoding failed", zap.Error(err))
	}
	fmt.Println(string(encoded))
}

func readJSONFile(path string) (model.Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload model.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return payload, nil
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
