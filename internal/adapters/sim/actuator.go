package sim

import (
	"sync"

	"github.com/bft-labs/pillship/internal/ports"
)

// Actuator simulates the servos, feed motors and scale. While a feed motor
// runs, every scale reading grows by GramsPerRead.
type Actuator struct {
	mu           sync.Mutex
	logger       ports.Logger
	gramsPerRead float64

	weight  float64
	open    map[string]bool
	feeding map[string]bool
}

// NewActuator creates a simulated actuator.
func NewActuator(gramsPerRead float64, logger ports.Logger) *Actuator {
	return &Actuator{
		logger:       logger,
		gramsPerRead: gramsPerRead,
		open:         make(map[string]bool),
		feeding:      make(map[string]bool),
	}
}

// OpenPath implements ports.Actuator.
func (a *Actuator) OpenPath(tube string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.open[tube] = true
	a.logger.Debug("path opened", ports.String("tube", tube))
	return nil
}

// ClosePath implements ports.Actuator.
func (a *Actuator) ClosePath(tube string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.open, tube)
	a.logger.Debug("path closed", ports.String("tube", tube))
	return nil
}

// SetFeed implements ports.Actuator.
func (a *Actuator) SetFeed(tube string, on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if on {
		a.feeding[tube] = true
	} else {
		delete(a.feeding, tube)
	}
	a.logger.Debug("feed switched", ports.String("tube", tube), ports.Bool("on", on))
	return nil
}

// ReadWeight implements ports.Actuator.
func (a *Actuator) ReadWeight() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for tube := range a.feeding {
		if a.open[tube] {
			a.weight += a.gramsPerRead
		}
	}
	return a.weight, nil
}

// Open reports whether the path below tube is open.
func (a *Actuator) Open(tube string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open[tube]
}
