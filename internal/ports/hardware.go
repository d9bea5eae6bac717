package ports

import "time"

// Actuator drives the dispensing hardware.
type Actuator interface {
	// OpenPath opens the dispensing path below a tube.
	OpenPath(tube string) error

	// ClosePath closes the dispensing path below a tube.
	ClosePath(tube string) error

	// SetFeed switches the feed motor of a tube.
	SetFeed(tube string, on bool) error

	// ReadWeight returns the current reading of the cup scale in grams.
	ReadWeight() (float64, error)
}

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

// Button reports the level of the user button.
type Button interface {
	// Pressed returns true while the button is held down.
	Pressed() bool
}
