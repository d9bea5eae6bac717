// Package dispense drives the user-facing workflow on top of a compiled
// schedule: finding the next dose, raising a notification when a dose is due,
// guiding the user through loading each tube, and dispensing a due group with
// the scale as feedback.
//
// The Coordinator is a state machine over domain.ModeBrowsing,
// domain.ModeNotifying and domain.ModeSettingUp. It is driven entirely by its
// caller through Tick and Press and is not safe for concurrent use.
package dispense
