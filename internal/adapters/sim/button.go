package sim

import (
	"bufio"
	"io"
	"sync"
)

// LineButton turns every line read from r (e.g. stdin) into one button press.
// Each press is reported as a single poll at level high followed by at least
// one poll at level low, so edge detection sees every press.
type LineButton struct {
	mu      sync.Mutex
	pending int
	high    bool
}

// NewLineButton starts reading lines from r in the background.
func NewLineButton(r io.Reader) *LineButton {
	b := &LineButton{}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			b.Press()
		}
	}()
	return b
}

// Press queues one press.
func (b *LineButton) Press() {
	b.mu.Lock()
	b.pending++
	b.mu.Unlock()
}

// Pressed implements ports.Button.
func (b *LineButton) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.high {
		b.high = false
		return false
	}
	if b.pending > 0 {
		b.pending--
		b.high = true
	}
	return b.high
}
