// Package main — cmd/nordhold-calibrate/main.go
//
// Calibration Layer CLI.
//
// Takes the narrowed snapshot files a Memory Scanner run produced for each
// combat field, builds the Cartesian-product candidate list, attaches a
// deterministic recommendation, and writes the result as a calibration
// candidates JSON file a Live Bridge connect() call can consume.
//
// Usage:
//
//	nordhold-calibrate -profile-id nordhold_v1 \
//	  -required gold=runtime/snapshots/gold.meta.json \
//	  -required essence=runtime/snapshots/essence.meta.json \
//	  -optional wave=runtime/snapshots/wave.meta.json \
//	  -out runtime/worklogs/memory_calibration_candidates.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apollion69/nordhold-calculator/internal/calibration"
	"github.com/apollion69/nordhold-calculator/internal/config"
	"github.com/apollion69/nordhold-calculator/internal/metrics"
)

// fieldPathFlag accumulates repeated -required/-optional "field=path" flags
// into a map, the shape BuildCandidatesOptions expects.
type fieldPathFlag struct {
	values map[string]string
}

func (f *fieldPathFlag) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, len(f.values))
	for k, v := range f.values {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f *fieldPathFlag) Set(value string) error {
	field, path, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(field) == "" || strings.TrimSpace(path) == "" {
		return fmt.Errorf("expected field=path, got %q", value)
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[strings.TrimSpace(field)] = strings.TrimSpace(path)
	return nil
}

func main() {
	configPath := flag.String("config", "/etc/nordhold/config.yaml", "Path to config.yaml")
	profileID := flag.String("profile-id", "", "Signature profile id these candidates target (required)")
	candidatePrefix := flag.String("prefix", "candidate", "Candidate id prefix")
	activeCandidateID := flag.String("active", "", "Candidate id to mark active, if known up front")
	requiredAdmin := flag.Bool("require-admin", false, "Whether this target requires administrator privileges")
	outPath := flag.String("out", "runtime/worklogs/memory_calibration_candidates.json", "Output calibration candidates JSON path")
	version := flag.Bool("version", false, "Print version and exit")

	required := &fieldPathFlag{}
	optional := &fieldPathFlag{}
	flag.Var(required, "required", "Required combat field as field=snapshot_meta_path (repeatable)")
	flag.Var(optional, "optional", "Optional combat field as field=snapshot_meta_path (repeatable)")
	flag.Parse()

	if *version {
		fmt.Printf("nordhold-calibrate %s (commit=%s built=%s)\n", config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}
	if *profileID == "" || len(required.values) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: -profile-id and at least one -required field=path are required")
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

	requiredFields := make([]string, 0, len(required.values))
	for field := range required.values {
		requiredFields = append(requiredFields, field)
	}
	optionalFields := make([]string, 0, len(optional.values))
	for field := range optional.values {
		optionalFields = append(optionalFields, field)
	}

	opts := calibration.BuildCandidatesOptions{
		ProjectRoot:            cfg.Dataset.Root,
		RequiredFieldMetaPaths: required.values,
		OptionalFieldMetaPaths: optional.values,
		ProfileID:              *profileID,
		CandidatePrefix:        *candidatePrefix,
		MaxRecordsPerField:     cfg.Calibration.MaxRecordsPerField,
		MaxCandidates:          cfg.Calibration.MaxCandidates,
		ActiveCandidateID:      *activeCandidateID,
		RequiredAdmin:          *requiredAdmin,
		RequiredFields:         requiredFields,
		OptionalFields:         optionalFields,
	}

	met := metrics.New()
	payload, err := calibration.BuildCalibrationCandidatesFromSnapshots(opts, readJSONFile)
	if err != nil {
		log.Fatal("candidate build failed", zap.Error(err))
	}

	candidateCount := 0
	if candidates, ok := payload["candidates"].([]any); ok {
		candidateCount = len(candidates)
	}
	met.CandidatesBuiltTotal.Add(float64(candidateCount))
	log.Info("calibration candidates built", zap.Int("count", candidateCount))

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Fatal("result encoding failed", zap.Error(err))
	}
	if err := os.MkdirAll(dirOf(*outPath), 0o755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}
	if err := os.WriteFile(*outPath, encoded, 0o644); err != nil {
		log.Fatal("failed to write output", zap.String("path", *outPath), zap.Error(err))
	}
	log.Info("candidates written", zap.String("path", *outPath))
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func readJSONFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
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
