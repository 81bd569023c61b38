// Package config provides configuration loading and validation for the
// nordhold-calculator binaries.
//
// Configuration file: /etc/nordhold/config.yaml (default)
// Schema version: 1
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (e.g., poll_ms >= 200, epsilon >= 0).
//   - Invalid config on startup: the binary refuses to start (fatal error).

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime are injected by the Makefile via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure shared by every entrypoint in
// this module. All fields have defaults; see Defaults() for values.
type Config struct {
	// SchemaVersion must be "1". Future versions will trigger migration.
	SchemaVersion string `yaml:"schema_version"`

	Scanner       ScannerConfig       `yaml:"scanner"`
	Calibration   CalibrationConfig   `yaml:"calibration"`
	Bridge        BridgeConfig        `yaml:"bridge"`
	Dataset       DatasetConfig       `yaml:"dataset"`
	Observability ObservabilityConfig `yaml:"observability"`
	Storage       StorageConfig       `yaml:"storage"`
}

// ScannerConfig holds Memory Scanner operational parameters.
type ScannerConfig struct {
	// ChunkBytes is the bounded read chunk size. Default: 1 MiB. Minimum: 64.
	ChunkBytes int `yaml:"chunk_bytes"`

	// ProgressIntervalMB must be >= 1. Default: 256. nordhold-scan passes it
	// on as ScanOptions.ProgressInterval (as that many seconds), which the
	// scanner does not read; progress is reported after every chunk read.
	ProgressIntervalMB int `yaml:"progress_interval_mb"`

	// MaxResults bounds the number of retained candidates per scan. Default: 100000.
	MaxResults int `yaml:"max_results"`

	// FloatEpsilon is the default tolerance for float32/float64 comparisons.
	FloatEpsilon float64 `yaml:"float_epsilon"`

	// WorkerCount is the size of the bounded region-scanning worker pool. Default: 4.
	WorkerCount int `yaml:"worker_count"`
}

// CalibrationConfig holds Calibration Layer defaults.
type CalibrationConfig struct {
	// MaxRecordsPerField caps unique addresses loaded per field snapshot. Default: 64.
	MaxRecordsPerField int `yaml:"max_records_per_field"`

	// MaxCandidates caps the Cartesian-product candidate list size. Default: 5000.
	MaxCandidates int `yaml:"max_candidates"`
}

// BridgeConfig holds Live Bridge defaults.
type BridgeConfig struct {
	// PollMS is the default polling cadence. Must be >= 200. Default: 500.
	PollMS int `yaml:"poll_ms"`

	// RequireAdmin is the default admin-requirement for connect(). Default: false.
	RequireAdmin bool `yaml:"require_admin"`

	// ControlSocketEnabled gates the optional bridgectl Unix-socket server. Default: true.
	ControlSocketEnabled bool `yaml:"control_socket_enabled"`

	// ControlSocketPath is the bridgectl Unix domain socket path.
	// Default: /run/nordhold/bridge.sock.
	ControlSocketPath string `yaml:"control_socket_path"`
}

// DatasetConfig holds dataset/catalog root paths.
type DatasetConfig struct {
	// Root is the dataset root directory (contains data/versions/index.json). Default: ".".
	Root string `yaml:"root"`

	// ActiveVersion overrides the catalog's active_version when non-empty.
	ActiveVersion string `yaml:"active_version"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	// Default: 127.0.0.1:9531.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error). Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console). Default: json.
	LogFormat string `yaml:"log_format"`
}

// StorageConfig holds replay/golden storage parameters.
type StorageConfig struct {
	// ReplayRoot is the directory holding runtime/replays/<id>.json files. Default: "runtime/replays".
	ReplayRoot string `yaml:"replay_root"`

	// GoldenRoot is the directory holding golden regression pairs. Default: "runtime/golden".
	GoldenRoot string `yaml:"golden_root"`

	// ReplayIndexPath names a bbolt cache file for the replay session index.
	// Default: "runtime/replays/.index.db". replay.OpenIndex does not read
	// it: the index always lives at <replays dir>/replay_index.bolt.
	ReplayIndexPath string `yaml:"replay_index_path"`

	// ReplayIndexTimeout must be >= 0. Default: 5s. replay.OpenIndex does not
	// read it; its bbolt.Open uses a fixed 5s lock timeout.
	ReplayIndexTimeout time.Duration `yaml:"replay_index_timeout"`
}

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	return Config{
		SchemaVersion: "1",
		Scanner: ScannerConfig{
			ChunkBytes:         1 << 20,
			ProgressIntervalMB: 256,
			MaxResults:         100000,
			FloatEpsilon:       1e-6,
			WorkerCount:        4,
		},
		Calibration: CalibrationConfig{
			MaxRecordsPerField: 64,
			MaxCandidates:      5000,
		},
		Bridge: BridgeConfig{
			PollMS:               500,
			RequireAdmin:         false,
			ControlSocketEnabled: true,
			ControlSocketPath:    "/run/nordhold/bridge.sock",
		},
		Dataset: DatasetConfig{
			Root: ".",
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9531",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		Storage: StorageConfig{
			ReplayRoot:         "runtime/replays",
			GoldenRoot:         "runtime/golden",
			ReplayIndexPath:    "runtime/replays/.index.db",
			ReplayIndexTimeout: 5 * time.Second,
		},
	}
}

// Load reads and validates a config file from the given path.
// Returns the merged config (defaults overridden by file values).
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness.
// Returns a descriptive error listing all violations found.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.Scanner.ChunkBytes < 64 {
		errs = append(errs, fmt.Sprintf("scanner.chunk_bytes must be >= 64, got %d", cfg.Scanner.ChunkBytes))
	}
	if cfg.Scanner.ProgressIntervalMB < 1 {
		errs = append(errs, fmt.Sprintf("scanner.progress_interval_mb must be >= 1, got %d", cfg.Scanner.ProgressIntervalMB))
	}
	if cfg.Scanner.MaxResults < 1 {
		errs = append(errs, fmt.Sprintf("scanner.max_results must be >= 1, got %d", cfg.Scanner.MaxResults))
	}
	if cfg.Scanner.FloatEpsilon < 0 {
		errs = append(errs, fmt.Sprintf("scanner.float_epsilon must be >= 0, got %f", cfg.Scanner.FloatEpsilon))
	}
	if cfg.Scanner.WorkerCount < 1 || cfg.Scanner.WorkerCount > 64 {
		errs = append(errs, fmt.Sprintf("scanner.worker_count must be in [1, 64], got %d", cfg.Scanner.WorkerCount))
	}
	if cfg.Calibration.MaxRecordsPerField < 1 {
		errs = append(errs, fmt.Sprintf("calibration.max_records_per_field must be >= 1, got %d", cfg.Calibration.MaxRecordsPerField))
	}
	if cfg.Calibration.MaxCandidates < 1 {
		errs = append(errs, fmt.Sprintf("calibration.max_candidates must be >= 1, got %d", cfg.Calibration.MaxCandidates))
	}
	if cfg.Bridge.PollMS < 200 {
		errs = append(errs, fmt.Sprintf("bridge.poll_ms must be >= 200, got %d", cfg.Bridge.PollMS))
	}
	if cfg.Dataset.Root == "" {
		errs = append(errs, "dataset.root must not be empty")
	}
	if cfg.Storage.ReplayRoot == "" {
		errs = append(errs, "storage.replay_root must not be empty")
	}
	if cfg.Storage.GoldenRoot == "" {
		errs = append(errs, "storage.golden_root must not be empty")
	}
	if cfg.Storage.ReplayIndexTimeout < 0 {
		errs = append(errs, "storage.replay_index_timeout must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", joinStrings(errs, "\n  - "))
	}
	return nil
}

// joinStrings joins a slice of strings with a separator.
func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}
