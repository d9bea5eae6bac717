// Package backoff implements exponential backoff with jitter for retried
// storage and transport operations.
package backoff

import (
	"math/rand"
	"time"
)

// Backoff implements exponential backoff with jitter.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	jitter  float64
	sleep   func(time.Duration)
}

// New creates a backoff starting at initial and capped at max, with ±20% jitter.
func New(initial, max time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
		jitter:  0.2,
		sleep:   time.Sleep,
	}
}

// WithSleep replaces the sleep function, e.g. with a recorder in tests.
func (b *Backoff) WithSleep(fn func(time.Duration)) *Backoff {
	b.sleep = fn
	return b
}

// WithoutJitter makes every delay exact.
func (b *Backoff) WithoutJitter() *Backoff {
	b.jitter = 0
	return b
}

// Next returns the delay to wait now and grows the following one.
func (b *Backoff) Next() time.Duration {
	d := b.current
	if b.jitter > 0 {
		d = time.Duration(float64(d) + float64(d)*b.jitter*(rand.Float64()*2-1))
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Sleep sleeps for the current backoff duration and increases it.
func (b *Backoff) Sleep() {
	b.sleep(b.Next())
}

// Reset resets the backoff to the initial duration.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *Backoff) Current() time.Duration {
	return b.current
}
