package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fleetsim/fleet-simulator/internal/config"
	"github.com/fleetsim/fleet-simulator/internal/dataset"
	"github.com/fleetsim/fleet-simulator/internal/logging"
	"github.com/fleetsim/fleet-simulator/internal/metrics"
	"github.com/fleetsim/fleet-simulator/internal/sink"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Simulator orchestrates one run: it builds the fleet, fills the queue,
// starts the worker pool and aggregates the results. All collaborators are
// injected, so tests can substitute fakes for the loader, sink and clock.
type Simulator struct {
	cfg    config.Config
	loader *dataset.Loader
	sinks  sink.Factory
	clock  Clock
	log    *slog.Logger
}

// New creates a simulator. The clock defaults to the system clock.
func New(cfg config.Config, loader *dataset.Loader, sinks sink.Factory) *Simulator {
	return &Simulator{
		cfg:    cfg,
		loader: loader,
		sinks:  sinks,
		clock:  SystemClock(),
		log:    logging.Component("simulator"),
	}
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	RunID         string
	Boats         int
	Claimed       int
	Unclaimed     int
	Messages      int64
	FailedWorkers int
	Elapsed       time.Duration
	Throughput    float64 // messages per second
}

// Run executes the simulation and blocks until every worker finishes.
func (s *Simulator) Run(ctx context.Context) (*Summary, error) {
	fleet := s.cfg.Fleet
	runID := logging.NewRunID()
	log := s.log.With("run_id", runID)

	capacity := BatchCapacity(fleet.Boats, fleet.Workers)
	log.Info("starting simulation",
		"boats", fleet.Boats,
		"workers", fleet.Workers,
		"capacity", capacity,
		"rate_interval", fleet.RateInterval.Std().String(),
		"row_window", fmt.Sprintf("[%d,%d)", fleet.StartRow, fleet.EndRow),
		"datasets", len(s.cfg.Datasets.Files),
	)

	boats, err := s.buildFleet(ctx)
	if err != nil {
		return nil, err
	}

	queue := NewQueue(len(boats))
	for _, b := range boats {
		queue.Push(b)
	}

	if claimable := fleet.Workers * capacity; claimable < fleet.Boats && !fleet.DrainLeftovers {
		log.Warn("claim capacity below fleet size, tail boats will never be simulated",
			"boats", fleet.Boats,
			"claimable", claimable,
			"unclaimed", fleet.Boats-claimable,
		)
	}

	start := s.clock.Now()
	results := make(chan workerResult, fleet.Workers)
	var wg sync.WaitGroup

	if m := metrics.Get(); m != nil {
		m.SetWorkersActive(float64(fleet.Workers))
	}

	for i := 0; i < fleet.Workers; i++ {
		w := &worker{
			id:             i,
			queue:          queue,
			sinks:          s.sinks,
			clock:          s.clock,
			capacity:       capacity,
			drainLeftovers: fleet.DrainLeftovers,
			log:            logging.WorkerLogger(i).With("run_id", runID),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- w.run(ctx)
		}()
	}

	wg.Wait()
	close(results)

	if m := metrics.Get(); m != nil {
		m.SetWorkersActive(0)
	}

	summary := &Summary{RunID: runID, Boats: len(boats)}
	for res := range results {
		summary.Messages += res.messages
		summary.Claimed += res.claimed
		if res.err != nil {
			summary.FailedWorkers++
		}
	}
	summary.Unclaimed = queue.Len()
	summary.Elapsed = s.clock.Now().Sub(start)
	if summary.Elapsed > 0 {
		summary.Throughput = float64(summary.Messages) / summary.Elapsed.Seconds()
	}

	if m := metrics.Get(); m != nil {
		m.SetBoatsUnclaimed(float64(summary.Unclaimed))
		m.SetMessagesPerSecond(summary.Throughput)
	}

	log.Info("simulation complete",
		"boats", summary.Boats,
		"claimed", summary.Claimed,
		"unclaimed", summary.Unclaimed,
		"messages", summary.Messages,
		"failed_workers", summary.FailedWorkers,
		"duration", summary.Elapsed.String(),
		"rate_per_sec", fmt.Sprintf("%.1f", summary.Throughput),
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// buildFleet creates every boat, assigning datasets round-robin and loading
// each boat's row window. A dataset failure here aborts the run before any
// worker starts.
func (s *Simulator) buildFleet(ctx context.Context) ([]*Boat, error) {
	fleet := s.cfg.Fleet
	files := s.cfg.Datasets.Files

	boats := make([]*Boat, 0, fleet.Boats)
	for i := 1; i <= fleet.Boats; i++ {
		name := files[(i-1)%len(files)]

		rows, err := s.loader.Window(ctx, name, fleet.StartRow, fleet.EndRow)
		if err != nil {
			return nil, fmt.Errorf("build fleet: %w", err)
		}

		boats = append(boats, NewBoat(BoatConfig{
			Number:        i,
			IDPrefix:      fleet.IDPrefix,
			IdentityField: fleet.IdentityField,
			Dataset:       name,
			StartRow:      fleet.StartRow,
			EndRow:        fleet.EndRow,
			RateInterval:  fleet.RateInterval.Std(),
		}, rows))

		if m := metrics.Get(); m != nil {
			m.IncBoatsCreated(name)
		}
	}

	s.log.Info("fleet created", "boats", len(boats))
	return boats, nil
}
