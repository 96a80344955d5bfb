// Package sim contains the core of the Fleet Simulator: the boat state
// machine, the claim-once work queue and the lock-step round scheduler.
package sim

import (
	"fmt"
	"time"

	"github.com/fleetsim/fleet-simulator/internal/dataset"
)

// timestampLayout renders UTC instants with millisecond precision and a
// literal trailing Z, e.g. 2026-08-23T10:15:42.123Z.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// BoatConfig describes one boat at creation time.
type BoatConfig struct {
	Number        int    // sequential, 1-based
	IDPrefix      string // formatted id is prefix + zero-padded number
	IdentityField string // dataset column overwritten with the boat id
	Dataset       string
	StartRow      int // half-open window [StartRow,EndRow), 0-based data rows
	EndRow        int
	RateInterval  time.Duration
}

// Boat is one simulated telemetry source. It owns its row window and all of
// its mutable state; after the claim phase exactly one worker touches it, so
// no method is safe for concurrent use.
type Boat struct {
	ID      string
	Dataset string

	startRow int
	endRow   int

	identityField string
	rateInterval  time.Duration

	rows      []dataset.Row
	cursor    int
	sent      int
	lastEmit  time.Time
	completed bool
}

// FormatBoatID renders a boat number as its unique id, zero-padded to at
// least three digits.
func FormatBoatID(prefix string, number int) string {
	return fmt.Sprintf("%s%03d", prefix, number)
}

// NewBoat creates a boat over its loaded row window.
func NewBoat(cfg BoatConfig, rows []dataset.Row) *Boat {
	return &Boat{
		ID:            FormatBoatID(cfg.IDPrefix, cfg.Number),
		Dataset:       cfg.Dataset,
		startRow:      cfg.StartRow,
		endRow:        cfg.EndRow,
		identityField: cfg.IdentityField,
		rateInterval:  cfg.RateInterval,
		rows:          rows,
		completed:     len(rows) == 0,
	}
}

// HasPending reports whether the boat still has rows to emit.
func (b *Boat) HasPending() bool {
	return b.cursor < len(b.rows) && !b.completed
}

// CanEmit reports whether the rate interval has elapsed since the boat's
// last emission.
func (b *Boat) CanEmit(now time.Time) bool {
	return now.Sub(b.lastEmit) >= b.rateInterval
}

// TakeNext consumes the next row: it copies it, stamps time and timestamp
// with the given instant, overwrites the identity field with the boat id,
// and advances the cursor. Returns false when nothing is pending.
func (b *Boat) TakeNext(now time.Time) (dataset.Row, bool) {
	if !b.HasPending() {
		return dataset.Row{}, false
	}

	row := b.rows[b.cursor].Clone()

	stamp := dataset.String(now.UTC().Format(timestampLayout))
	row.Set("time", stamp)
	row.Set("timestamp", stamp)
	row.Set(b.identityField, dataset.String(b.ID))

	b.cursor++
	b.sent++
	b.lastEmit = now
	if b.cursor >= len(b.rows) {
		b.completed = true
	}

	return row, true
}

// Rows returns the size of the boat's row window.
func (b *Boat) Rows() int {
	return len(b.rows)
}

// Sent returns how many rows the boat has emitted.
func (b *Boat) Sent() int {
	return b.sent
}

// Completed reports whether the boat has emitted its full window.
func (b *Boat) Completed() bool {
	return b.completed
}
