// Package sink publishes emitted telemetry records to the configured
// message endpoint.
package sink

import (
	"context"
	"fmt"
	"os"

	"github.com/fleetsim/fleet-simulator/internal/config"
)

// Sink is the publish-only contract the scheduler hands records to.
// Publish is fire-and-forget: implementations must not make the caller wait
// on broker acknowledgements. Close is idempotent.
type Sink interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// Factory opens one Sink per worker, mirroring the per-thread producer of
// the recorded runs. A failed New is a worker-local connection error.
type Factory interface {
	New(ctx context.Context, workerID int) (Sink, error)
	Backend() string
}

// NewFactory creates a sink factory for the configured backend.
func NewFactory(cfg config.SinkConfig) (Factory, error) {
	switch cfg.Backend {
	case "kafka", "stdout", "discard":
		return &factory{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown sink backend: %s", cfg.Backend)
	}
}

type factory struct {
	cfg config.SinkConfig
}

// Backend implements Factory.
func (f *factory) Backend() string {
	return f.cfg.Backend
}

// New implements Factory.
func (f *factory) New(ctx context.Context, workerID int) (Sink, error) {
	var (
		s   Sink
		err error
	)

	switch f.cfg.Backend {
	case "kafka":
		s, err = newKafkaSink(ctx, f.cfg, workerID)
	case "stdout":
		s = NewWriterSink(os.Stdout)
	case "discard":
		s = NewDiscard()
	default:
		err = fmt.Errorf("unknown sink backend: %s", f.cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if f.cfg.MaxAttempts > 1 {
		s = WithRetry(s, f.cfg.MaxAttempts, f.cfg.RetryBackoff.Std())
	}
	return s, nil
}

// discardSink accepts and drops every record.
type discardSink struct{}

// NewDiscard returns a no-op sink.
func NewDiscard() Sink {
	return discardSink{}
}

// Publish implements Sink.
func (discardSink) Publish(ctx context.Context, key, value []byte) error {
	return nil
}

// Close implements Sink.
func (discardSink) Close() error {
	return nil
}
