// Package main — cmd/nordhold-live/main.go
//
// Live Bridge daemon entrypoint.
//
// Startup sequence:
//  1. Load and validate config.
//  2. Initialise structured logger (zap, JSON format).
//  3. Open the dataset catalog and replay store.
//  4. Select a memory backend for the host platform.
//  5. Construct the Live Bridge and attempt an initial connect/autoconnect.
//  6. Start the Prometheus metrics server.
//  7. Start the bridgectl Unix-socket control server, if enabled.
//  8. Block on SIGINT/SIGTERM for graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apollion69/nordhold-calculator/internal/bridge"
	"github.com/apollion69/nordhold-calculator/internal/bridgectl"
	"github.com/apollion69/nordhold-calculator/internal/catalog"
	"github.com/apollion69/nordhold-calculator/internal/config"
	"github.com/apollion69/nordhold-calculator/internal/memback"
	"github.com/apollion69/nordhold-calculator/internal/metrics"
	"github.com/apollion69/nordhold-calculator/internal/replay"
)

func main() {
	configPath := flag.String("config", "/etc/nordhold/config.yaml", "Path to config.yaml")
	processName := flag.String("process", "", "Target process name to autoconnect to")
	datasetVersion := flag.String("dataset-version", "", "Dataset version override (defaults to the catalog's active version)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("nordhold-live %s (commit=%s built=%s)\n", config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
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

	log.Info("nordhold-live starting",
		zap.String("version", config.Version),
		zap.String("commit", config.GitCommit),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat := catalog.New(cfg.Dataset.Root)
	store, err := replay.New(cfg.Dataset.Root)
	if err != nil {
		log.Fatal("replay store init failed", zap.Error(err))
	}

	backend := memback.SelectBackend()
	if !backend.SupportsMemoryRead() {
		log.Warn("this platform has no live memory-read backend; the bridge will fall back to replay/synthetic mode")
	}

	b := bridge.New(cfg.Dataset.Root, cat, store, backend)

	if *processName != "" {
		status, err := b.Autoconnect(bridge.AutoconnectOptions{
			ProcessName:        *processName,
			PollMS:             cfg.Bridge.PollMS,
			RequireAdmin:       cfg.Bridge.RequireAdmin,
			DatasetVersion:     *datasetVersion,
			DatasetAutorefresh: *datasetVersion == "",
		})
		if err != nil {
			log.Warn("initial autoconnect failed — starting in degraded mode", zap.Error(err))
		} else {
			log.Info("autoconnect result", zap.String("mode", status.Mode), zap.String("reason", status.Reason))
		}
	} else {
		log.Info("no -process given; the bridge starts disconnected and waits for a bridgectl connect command")
	}

	met := metrics.New()
	go func() {
		if err := met.Serve(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))

	if cfg.Bridge.ControlSocketEnabled {
		srv := bridgectl.NewServer(cfg.Bridge.ControlSocketPath, b, log)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
				log.Error("bridgectl server error", zap.Error(err))
			}
		}()
		log.Info("bridgectl control socket started", zap.String("path", cfg.Bridge.ControlSocketPath))
	} else {
		log.Info("bridgectl control socket disabled by config")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))
	cancel()
	log.Info("nordhold-live shutdown complete")
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
