// Command coreserver is the process entry point: it wires the Engine
// together, loads any persisted playlist snapshot, starts the metrics
// listener, and drives cooperative shutdown on SIGINT/SIGTERM, the same
// lifecycle shape as the teacher's root main.go.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arung-agamani/musicbox-core/config"
	"github.com/arung-agamani/musicbox-core/internal/core/audio"
	"github.com/arung-agamani/musicbox-core/internal/core/hardware"
	"github.com/arung-agamani/musicbox-core/internal/core/metrics"
	"github.com/arung-agamani/musicbox-core/internal/core/repo"
	"github.com/arung-agamani/musicbox-core/internal/engine"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(),
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("starting musicbox core",
		"data_dir", cfg.DataDir,
		"snapshot_file", cfg.SnapshotFile,
		"metrics_addr", cfg.MetricsAddr,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("creating data dir", "error", err)
		os.Exit(1)
	}

	repository := repo.NewInMemoryRepository(cfg.SnapshotFile)
	if err := repository.Load(); err != nil {
		slog.Error("loading playlist snapshot", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	backend := audio.NewExecBackend("ffplay", []string{"-nodisp", "-autoexit"}, logger.With("component", "audio"))
	reader := hardware.NewFakeNFCReader(true)
	buttons := hardware.NewFakeButtonSource()

	eng := engine.New(cfg.EngineConfig(), backend, repository, reader, buttons, m, logger.With("component", "engine"))
	eng.Start()

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine error", "error", err)
	}

	slog.Info("shutting down gracefully")
	eng.Shutdown(2 * time.Second)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown", "error", err)
	}

	slog.Info("musicbox core stopped")
}

func parseLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
