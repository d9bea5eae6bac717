package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/pillship/internal/backoff"
	"github.com/bft-labs/pillship/internal/dispense"
	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/frame"
	"github.com/bft-labs/pillship/internal/ports"
	"github.com/bft-labs/pillship/internal/schedule"
	"github.com/bft-labs/pillship/internal/storage"
)

// Default loop timings.
const (
	DefaultPollInterval    = 10 * time.Millisecond
	DefaultRefreshInterval = 5 * time.Second
	DefaultReadBufferSize  = 256
	DefaultChangeQuiet     = time.Second
)

// maxReadsPerStep bounds how much of a burst one step consumes so the
// coordinator keeps ticking during long transfers.
const maxReadsPerStep = 16

// AgentConfig contains configuration for the agent loop.
type AgentConfig struct {
	PollInterval    time.Duration
	RefreshInterval time.Duration
	ReadBufferSize  int

	// ChangeQuiet is how long file-change signals are ignored after the
	// agent committed the schedule file itself
	ChangeQuiet time.Duration

	Frame frame.Config
}

// DefaultAgentConfig returns the loop defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		PollInterval:    DefaultPollInterval,
		RefreshInterval: DefaultRefreshInterval,
		ReadBufferSize:  DefaultReadBufferSize,
		ChangeQuiet:     DefaultChangeQuiet,
		Frame:           frame.DefaultConfig(),
	}
}

// Deps are the collaborators of the agent. Button, Journal, Changes and
// Events may be nil.
type Deps struct {
	Transport   ports.Transport
	Writer      *storage.Writer
	Compiler    *schedule.Compiler
	Coordinator *dispense.Coordinator
	Clock       ports.Clock
	Button      ports.Button
	Renderer    ports.Renderer
	StatusRepo  ports.StatusRepository
	Journal     ports.Journal
	Changes     <-chan struct{}
	Logger      ports.Logger
	Events      AgentEvents
}

// AgentEvents is notified about schedule loads and dispenses.
type AgentEvents interface {
	OnScheduleLoaded(sched domain.Schedule, transferred bool)
	OnDispensed(report *dispense.Report)
}

// Agent runs the poll loop that sequences transport, storage, compiler and
// coordinator. All core state is owned by the goroutine calling Run.
type Agent struct {
	config   AgentConfig
	deps     Deps
	logger   ports.Logger
	receiver *frame.Receiver
	readBuf  []byte

	readBackoff  *backoff.Backoff
	readResumeAt time.Time

	status        domain.Status
	reloadPending bool
	ignoreUntil   time.Time
	buttonDown    bool

	rendered   bool
	lastSnap   domain.Snapshot
	lastRender time.Time
}

// NewAgent creates an agent. The writer receives frames from the transport
// and acknowledgements go back through it.
func NewAgent(config AgentConfig, deps Deps) *Agent {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = DefaultReadBufferSize
	}
	return &Agent{
		config:      config,
		deps:        deps,
		logger:      deps.Logger,
		receiver:    frame.NewReceiver(config.Frame, deps.Writer, deps.Transport, deps.Logger),
		readBuf:     make([]byte, config.ReadBufferSize),
		readBackoff: backoff.New(100*time.Millisecond, 5*time.Second),
	}
}

// Status returns the status as last recorded by the loop.
func (a *Agent) Status() domain.Status { return a.status }

// Run restores state, loads the stored schedule and polls until ctx is
// canceled. It returns ctx's error.
func (a *Agent) Run(ctx context.Context) error {
	a.Start(ctx)
	defer a.Shutdown()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		a.Step(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Start loads the persisted status, promotes a schedule left behind by an
// interrupted commit and loads the stored schedule.
func (a *Agent) Start(ctx context.Context) {
	status, err := a.deps.StatusRepo.Load(ctx)
	if err != nil {
		a.logger.Error("failed to load status", ports.Err(err))
	}
	a.status = status
	a.status.StorageReady = false

	if err := a.deps.Writer.Recover(schedule.Validate); err != nil {
		a.logger.Warn("schedule recovery failed", ports.Err(err))
	}
	a.reload(ctx, a.deps.Clock.Now(), false)
}

// Step performs one iteration of the loop.
func (a *Agent) Step(ctx context.Context) {
	now := a.deps.Clock.Now()

	a.pollTransport(ctx, now)
	if err := a.receiver.Tick(now); err != nil {
		a.status.LastError = err.Error()
	}
	a.pollChanges(ctx, now)
	if a.reloadPending {
		a.reload(ctx, now, false)
	}
	a.pollButton(ctx, now)
	a.deps.Coordinator.Tick(a.deps.Clock.Now())
	a.render(a.deps.Clock.Now())
}

// Shutdown abandons a frame in progress and persists the status.
func (a *Agent) Shutdown() {
	a.receiver.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.saveStatus(ctx)
}

func (a *Agent) pollTransport(ctx context.Context, now time.Time) {
	if now.Before(a.readResumeAt) {
		return
	}

	for i := 0; i < maxReadsPerStep; i++ {
		n, err := a.deps.Transport.Read(a.readBuf)
		for _, b := range a.readBuf[:n] {
			res, ferr := a.receiver.Feed(b, now)
			if res == frame.ResultCommitted {
				a.onCommit(ctx, now)
			}
			if ferr != nil {
				a.status.LastError = ferr.Error()
			}
		}
		if err != nil {
			delay := a.readBackoff.Next()
			a.readResumeAt = now.Add(delay)
			a.receiver.Reset()
			a.logger.Warn("transport read failed",
				ports.Err(err),
				ports.Duration("retry_in", delay),
			)
			return
		}
		if n > 0 {
			a.readBackoff.Reset()
		}
		if n < len(a.readBuf) {
			return
		}
	}
}

func (a *Agent) onCommit(ctx context.Context, now time.Time) {
	a.status.LastCommitAt = now
	a.ignoreUntil = now.Add(a.config.ChangeQuiet)
	a.reload(ctx, now, true)
}

func (a *Agent) pollChanges(ctx context.Context, now time.Time) {
	if a.deps.Changes == nil {
		return
	}
	select {
	case <-a.deps.Changes:
	default:
		return
	}
	if now.Before(a.ignoreUntil) {
		a.logger.Debug("ignoring change from own commit")
		return
	}
	a.logger.Info("schedule file changed externally")
	a.reload(ctx, now, false)
}

// reload compiles the stored schedule and hands it to the coordinator. On
// failure the coordinator keeps the last good schedule. A freshly transferred
// schedule starts tube setup.
func (a *Agent) reload(ctx context.Context, now time.Time, transferred bool) {
	sched, err := a.deps.Compiler.Compile()
	if errors.Is(err, domain.ErrStorageBusy) {
		a.reloadPending = true
		return
	}
	a.reloadPending = false
	a.status.RecordReload(now, &sched, err)

	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			a.deps.Coordinator.SetStorageReady(false)
			a.status.StorageReady = false
		}
		a.logger.Warn("schedule reload failed", ports.Err(err))
		a.saveStatus(ctx)
		return
	}

	a.deps.Coordinator.Load(sched)
	if transferred {
		a.deps.Coordinator.BeginSetup()
	}
	a.record(ctx, ports.JournalRecord{
		At:     now,
		Kind:   ports.JournalLoad,
		Detail: fmt.Sprintf("%d entries, %d groups", sched.Entries.Len(), sched.Groups.Len()),
	})
	a.saveStatus(ctx)

	if a.deps.Events != nil {
		a.deps.Events.OnScheduleLoaded(sched, transferred)
	}
}

func (a *Agent) pollButton(ctx context.Context, now time.Time) {
	if a.deps.Button == nil {
		return
	}
	pressed := a.deps.Button.Pressed()
	edge := pressed && !a.buttonDown
	a.buttonDown = pressed
	if !edge {
		return
	}

	report, err := a.deps.Coordinator.Press(ctx, now)
	if err != nil {
		a.logger.Warn("dispensing interrupted", ports.Err(err))
	}
	if report == nil {
		return
	}

	a.status.LastDispenseAt = report.StartedAt
	a.record(ctx, ports.JournalRecord{
		At:     report.StartedAt,
		Kind:   ports.JournalDispense,
		Slot:   report.Slot,
		Detail: report.Summary(),
	})
	a.saveStatus(ctx)

	if a.deps.Events != nil {
		a.deps.Events.OnDispensed(report)
	}
}

func (a *Agent) render(now time.Time) {
	snap := a.deps.Coordinator.Snapshot()
	if a.rendered && snap.Equal(a.lastSnap) && now.Sub(a.lastRender) < a.config.RefreshInterval {
		return
	}
	a.deps.Renderer.Render(snap)
	a.rendered = true
	a.lastSnap = snap
	a.lastRender = now
}

func (a *Agent) record(ctx context.Context, rec ports.JournalRecord) {
	if a.deps.Journal == nil {
		return
	}
	if err := a.deps.Journal.Record(ctx, rec); err != nil {
		a.logger.Warn("failed to record journal entry", ports.String("kind", string(rec.Kind)), ports.Err(err))
	}
}

func (a *Agent) saveStatus(ctx context.Context) {
	if err := a.deps.StatusRepo.Save(ctx, a.status); err != nil {
		a.logger.Error("failed to save status", ports.Err(err))
	}
}
