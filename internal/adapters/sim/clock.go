package sim

import "time"

// SystemClock implements ports.Clock with the local wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }
