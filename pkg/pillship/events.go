package pillship

import (
	"time"

	"github.com/bft-labs/pillship/internal/app"
	"github.com/bft-labs/pillship/internal/dispense"
	"github.com/bft-labs/pillship/internal/domain"
)

// State is the lifecycle state of a Service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ScheduleLoadedEvent reports a successfully compiled schedule.
type ScheduleLoadedEvent struct {
	Entries int
	Slots   []string

	// Transferred is true when the schedule just arrived over the transport
	// and tube setup was started
	Transferred bool
}

// DispenseEvent reports the outcome of dispensing one slot.
type DispenseEvent struct {
	Slot      string
	StartedAt time.Time
	Complete  bool
	Summary   string
}

// EventHandler receives Service events.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnScheduleLoaded(event ScheduleLoadedEvent)
	OnDispensed(event DispenseEvent)
}

// BaseEventHandler provides no-op implementations of all EventHandler methods.
// Embed it to handle only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnScheduleLoaded(ScheduleLoadedEvent) {}
func (BaseEventHandler) OnDispensed(DispenseEvent)            {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: State(previous),
		Current:  State(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnScheduleLoaded(sched domain.Schedule, transferred bool) {
	if e.handler == nil {
		return
	}
	slots := make([]string, 0, sched.Groups.Len())
	for _, g := range sched.Groups.All() {
		slots = append(slots, g.Time)
	}
	e.handler.OnScheduleLoaded(ScheduleLoadedEvent{
		Entries:     sched.Entries.Len(),
		Slots:       slots,
		Transferred: transferred,
	})
}

func (e *eventEmitterWrapper) OnDispensed(report *dispense.Report) {
	if e.handler == nil {
		return
	}
	e.handler.OnDispensed(DispenseEvent{
		Slot:      report.Slot,
		StartedAt: report.StartedAt,
		Complete:  report.Complete(),
		Summary:   report.Summary(),
	})
}
