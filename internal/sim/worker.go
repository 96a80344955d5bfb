package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fleetsim/fleet-simulator/internal/metrics"
	"github.com/fleetsim/fleet-simulator/internal/sink"
)

const (
	// maxBatchCapacity caps how many boats a single worker may claim.
	maxBatchCapacity = 50

	// claimBufferFactor oversizes batches so an uneven split still covers
	// the fleet when boats outnumber workers.
	claimBufferFactor = 1.5

	// gatePollInterval is how often a worker re-checks a boat's rate gate.
	gatePollInterval = time.Millisecond
)

// BatchCapacity computes the per-worker claim limit:
// clamp(ceil(boats/workers * factor), 1, 50), with factor 1.5 when boats
// outnumber workers. With the claim-once policy, workers*capacity below the
// fleet size leaves a tail of boats unclaimed.
func BatchCapacity(boats, workers int) int {
	if boats < 1 || workers < 1 {
		return 1
	}

	factor := 1.0
	if boats > workers {
		factor = claimBufferFactor
	}

	capacity := int(math.Ceil(float64(boats) / float64(workers) * factor))
	if capacity < 1 {
		capacity = 1
	}
	if capacity > maxBatchCapacity {
		capacity = maxBatchCapacity
	}
	return capacity
}

// workerResult is one worker's contribution to the run summary.
type workerResult struct {
	workerID int
	claimed  int
	messages int64
	rounds   int
	err      error
}

// worker claims a private batch of boats and replays it in lock-step rounds.
type worker struct {
	id             int
	queue          *Queue
	sinks          sink.Factory
	clock          Clock
	capacity       int
	drainLeftovers bool
	log            *slog.Logger
}

// run executes the worker: claim, open sink, rounds. Returns a result even
// on failure so the aggregator always sees every worker.
func (w *worker) run(ctx context.Context) workerResult {
	res := workerResult{workerID: w.id}

	batch := w.claim()
	if len(batch) == 0 {
		w.log.Info("no boats to simulate, worker exiting")
		return res
	}
	res.claimed = len(batch)

	if m := metrics.Get(); m != nil {
		m.AddBoatsClaimed(float64(len(batch)))
		m.ObserveBatchSize(float64(len(batch)))
	}

	// One sink per worker. A connect failure drops the claimed batch: the
	// boats are already off the queue and are not requeued.
	s, err := w.sinks.New(ctx, w.id)
	if err != nil {
		w.log.Error("sink connect failed, dropping claimed batch",
			"error", err, "boats_lost", len(batch))
		if m := metrics.Get(); m != nil {
			m.IncSinkConnectErrors()
		}
		res.err = fmt.Errorf("worker %d: open sink: %w", w.id, err)
		return res
	}
	defer s.Close()

	for {
		sent, rounds, err := w.runRounds(ctx, batch, s)
		res.messages += sent
		res.rounds += rounds
		if err != nil {
			res.err = err
			return res
		}

		for _, b := range batch {
			if b.Completed() {
				w.log.Info("boat complete", "boat_id", b.ID, "sent", b.Sent())
				if m := metrics.Get(); m != nil {
					m.IncBoatsCompleted(b.Dataset)
				}
			}
		}

		if !w.drainLeftovers {
			break
		}
		batch = w.claim()
		if len(batch) == 0 {
			break
		}
		res.claimed += len(batch)
		if m := metrics.Get(); m != nil {
			m.AddBoatsClaimed(float64(len(batch)))
		}
	}

	w.log.Info("worker complete", "messages", res.messages, "boats", res.claimed)
	return res
}

// claim performs non-blocking pops until the worker holds its capacity or
// the queue is empty. There is no work-stealing afterwards.
func (w *worker) claim() []*Boat {
	batch := make([]*Boat, 0, w.capacity)
	for len(batch) < w.capacity {
		b, ok := w.queue.TryPop()
		if !ok {
			break
		}
		batch = append(batch, b)
	}
	if len(batch) > 0 {
		w.log.Info("claimed boats", "count", len(batch))
	}
	return batch
}

// runRounds drives the lock-step scheduler: as many rounds as the largest
// row window in the batch, visiting every boat once per round in claim
// order. Finished boats are skipped without waiting.
func (w *worker) runRounds(ctx context.Context, batch []*Boat, s sink.Sink) (int64, int, error) {
	rounds := 0
	for _, b := range batch {
		if b.Rows() > rounds {
			rounds = b.Rows()
		}
	}
	w.log.Info("starting rounds", "rounds", rounds, "boats", len(batch))

	var sent int64
	for round := 0; round < rounds; round++ {
		if err := ctx.Err(); err != nil {
			return sent, round, err
		}

		for _, b := range batch {
			if !b.HasPending() {
				continue
			}

			// Rate gate: wait until this boat's interval has elapsed.
			for !b.CanEmit(w.clock.Now()) {
				if err := ctx.Err(); err != nil {
					return sent, round, err
				}
				w.clock.Sleep(gatePollInterval)
			}

			row, ok := b.TakeNext(w.clock.Now())
			if !ok {
				continue
			}
			sent++
			if m := metrics.Get(); m != nil {
				m.IncMessagesSent(b.Dataset)
			}

			payload, err := row.MarshalJSON()
			if err != nil {
				w.log.Warn("encode record failed", "boat_id", b.ID, "error", err)
				continue
			}

			// A failed publish never aborts the worker; the record is
			// logged and the loop moves on.
			if err := s.Publish(ctx, []byte(b.ID), payload); err != nil {
				w.log.Warn("publish failed", "boat_id", b.ID, "error", err)
				if m := metrics.Get(); m != nil {
					m.IncPublishErrors(w.sinks.Backend())
				}
			}

			if b.Sent()%100 == 0 {
				w.log.Debug("boat progress",
					"boat_id", b.ID, "sent", b.Sent(), "rows", b.Rows())
			}
		}

		if m := metrics.Get(); m != nil {
			m.IncRoundsComplete()
		}
		if (round+1)%10 == 0 {
			w.log.Debug("round complete", "round", round+1, "rounds", rounds)
		}
	}

	return sent, rounds, nil
}
