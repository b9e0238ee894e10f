package engine

import "time"

// Clock supplies the timestamps stamped on history entries and state
// updates. Injected so tests and the scenario harness get deterministic
// traces; production uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
