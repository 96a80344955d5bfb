package sink

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fleetsim/fleet-simulator/internal/config"
)

func TestNewFactoryBackends(t *testing.T) {
	for _, backend := range []string{"kafka", "stdout", "discard"} {
		f, err := NewFactory(config.SinkConfig{Backend: backend})
		if err != nil {
			t.Errorf("backend %s rejected: %v", backend, err)
			continue
		}
		if f.Backend() != backend {
			t.Errorf("Backend() = %s, want %s", f.Backend(), backend)
		}
	}
}

func TestNewFactoryUnknownBackend(t *testing.T) {
	if _, err := NewFactory(config.SinkConfig{Backend: "rabbitmq"}); err == nil {
		t.Error("unknown backend should be rejected")
	}
}

func TestFactoryDiscard(t *testing.T) {
	f, err := NewFactory(config.SinkConfig{Backend: "discard", MaxAttempts: 1})
	if err != nil {
		t.Fatal(err)
	}
	s, err := f.New(context.Background(), 0)
	if err != nil {
		t.Fatalf("discard sink should always open: %v", err)
	}
	defer s.Close()

	if err := s.Publish(context.Background(), []byte("k"), []byte("v")); err != nil {
		t.Errorf("discard publish failed: %v", err)
	}
}

func TestFactoryWrapsRetry(t *testing.T) {
	f, err := NewFactory(config.SinkConfig{
		Backend:      "discard",
		MaxAttempts:  3,
		RetryBackoff: config.Duration(time.Millisecond),
	})
	if err != nil {
		t.Fatal(err)
	}
	s, err := f.New(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*retrySink); !ok {
		t.Errorf("max_attempts > 1 should wrap the sink in a retry policy, got %T", s)
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)
	defer s.Close()

	ctx := context.Background()
	if err := s.Publish(ctx, []byte("BOAT_001"), []byte(`{"boat":"BOAT_001"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(ctx, []byte("BOAT_002"), []byte(`{"boat":"BOAT_002"}`)); err != nil {
		t.Fatal(err)
	}

	want := "{\"boat\":\"BOAT_001\"}\n{\"boat\":\"BOAT_002\"}\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
