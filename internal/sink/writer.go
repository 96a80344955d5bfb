package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// writerSink emits one record per line to an io.Writer. Used for the stdout
// backend and for inspecting runs without a broker.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink that writes records as lines to w.
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

// Publish implements Sink.
func (s *writerSink) Publish(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(append(value, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *writerSink) Close() error {
	return nil
}
