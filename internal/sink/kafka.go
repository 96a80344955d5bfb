package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fleetsim/fleet-simulator/internal/config"
	"github.com/fleetsim/fleet-simulator/internal/metrics"
)

// kafkaSink produces records to a Kafka topic via franz-go. Each worker owns
// its own client. Produce is asynchronous; delivery failures surface through
// the callback and are logged and counted, never returned to the scheduler.
type kafkaSink struct {
	client    *kgo.Client
	log       *slog.Logger
	closeOnce sync.Once
}

func newKafkaSink(ctx context.Context, cfg config.SinkConfig, workerID int) (*kafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(cfg.Linger.Std()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	// Fail at worker start rather than on the first record.
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping brokers: %w", err)
	}

	return &kafkaSink{
		client: client,
		log:    slog.With("component", "sink", "backend", "kafka", "worker_id", workerID),
	}, nil
}

// Publish implements Sink.
func (s *kafkaSink) Publish(ctx context.Context, key, value []byte) error {
	s.client.Produce(ctx, &kgo.Record{Key: key, Value: value}, func(r *kgo.Record, err error) {
		if err != nil {
			s.log.Warn("record delivery failed", "error", err)
			if m := metrics.Get(); m != nil {
				m.IncPublishErrors("kafka")
			}
		}
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (s *kafkaSink) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.client.Flush(ctx); err != nil {
			s.log.Warn("flush on close failed", "error", err)
		}
		s.client.Close()
	})
	return nil
}
