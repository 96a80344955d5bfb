package sim

import "time"

// Clock abstracts wall-clock reads and sleeps so rate-gating and record
// stamping are deterministic under test.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// SystemClock returns the real wall clock.
func SystemClock() Clock {
	return systemClock{}
}
