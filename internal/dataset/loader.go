package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// LoadError reports a missing or malformed dataset. It is fatal: setup
// aborts before any worker starts.
type LoadError struct {
	Dataset string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Dataset, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader reads datasets through a Source and caches the parsed rows so each
// file is read once per run regardless of how many boats replay it.
type Loader struct {
	src Source
	log *slog.Logger

	mu    sync.Mutex
	cache map[string][]Row
}

// NewLoader creates a loader over the given source.
func NewLoader(src Source) *Loader {
	return &Loader{
		src:   src,
		log:   slog.With("component", "dataset"),
		cache: make(map[string][]Row),
	}
}

// Load returns every data row of the named dataset, in file order.
func (l *Loader) Load(ctx context.Context, name string) ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rows, ok := l.cache[name]; ok {
		return rows, nil
	}

	reader, err := l.src.Open(ctx, name)
	if err != nil {
		return nil, &LoadError{Dataset: name, Err: err}
	}
	defer reader.Close()

	rows, err := ParseRows(name, reader)
	if err != nil {
		return nil, &LoadError{Dataset: name, Err: err}
	}

	l.log.Info("dataset loaded", "dataset", name, "rows", len(rows))
	l.cache[name] = rows
	return rows, nil
}

// Window returns the half-open row window [start,end) of the named dataset,
// 0-based over data rows. Windows reaching past the end of the data are
// clipped, matching the replay semantics of reading until exhaustion.
func (l *Loader) Window(ctx context.Context, name string, start, end int) ([]Row, error) {
	if start < 0 || end < start {
		return nil, &LoadError{Dataset: name, Err: fmt.Errorf("invalid window [%d,%d)", start, end)}
	}

	rows, err := l.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	if start >= len(rows) {
		return nil, nil
	}
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

// Close releases the underlying source.
func (l *Loader) Close() error {
	return l.src.Close()
}
