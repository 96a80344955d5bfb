package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetsim/fleet-simulator/internal/config"
	"github.com/fleetsim/fleet-simulator/internal/dataset"
	"github.com/fleetsim/fleet-simulator/internal/logging"
	"github.com/fleetsim/fleet-simulator/internal/metrics"
	"github.com/fleetsim/fleet-simulator/internal/sim"
	"github.com/fleetsim/fleet-simulator/internal/sink"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("[main] Fleet Simulator %s (%s)", sim.Version, sim.GitSHA)

	cfg := config.MustLoad()

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, stopping run", "signal", sig.String())
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metrics.Init("fleet_simulator")
		go func() {
			slog.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	// Dataset source
	src, err := dataset.NewSource(dataset.SourceConfig{
		Mode:       cfg.Datasets.Mode,
		LocalPath:  cfg.Datasets.LocalPath,
		Bucket:     cfg.Datasets.Bucket,
		Prefix:     cfg.Datasets.Prefix,
		S3Endpoint: cfg.Datasets.S3Endpoint,
		S3Region:   cfg.Datasets.S3Region,
	})
	if err != nil {
		log.Fatalf("[main] failed to create dataset source: %v", err)
	}
	loader := dataset.NewLoader(src)
	defer loader.Close()

	// Sink factory
	sinks, err := sink.NewFactory(cfg.Sink)
	if err != nil {
		log.Fatalf("[main] failed to create sink factory: %v", err)
	}

	// Create and run simulator
	s := sim.New(cfg, loader, sinks)

	summary, err := s.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("run interrupted")
			return
		}
		log.Fatalf("[main] simulation failed: %v", err)
	}

	slog.Info("fleet simulator stopped cleanly",
		"messages", summary.Messages,
		"duration", summary.Elapsed.String(),
	)
}
