package pillship

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	fsAdapter "github.com/bft-labs/pillship/internal/adapters/fs"
	"github.com/bft-labs/pillship/internal/adapters/journal"
	"github.com/bft-labs/pillship/internal/adapters/render"
	"github.com/bft-labs/pillship/internal/adapters/sim"
	"github.com/bft-labs/pillship/internal/adapters/transport"
	"github.com/bft-labs/pillship/internal/app"
	"github.com/bft-labs/pillship/internal/cliconfig"
	"github.com/bft-labs/pillship/internal/dispense"
	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/frame"
	"github.com/bft-labs/pillship/internal/ports"
	"github.com/bft-labs/pillship/internal/schedule"
	"github.com/bft-labs/pillship/internal/storage"
	"github.com/bft-labs/pillship/internal/watch"
)

// Config holds the dispenser configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Errors returned by Service methods.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// simGramsPerRead is how fast the simulated scale gains weight.
const simGramsPerRead = 0.05

// Service is a dispenser daemon that can be embedded in other applications.
// Use New() to create an instance, then Start() to begin polling.
type Service struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	logger    ports.Logger

	mu        sync.Mutex
	transport ports.Transport
	journal   ports.Journal
	agent     *app.Agent
}

// New creates a Service in StateStopped; call Start() to begin.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = sim.SystemClock{}
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	return &Service{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(o.logger, emitter),
		emitter:   emitter,
		logger:    o.logger,
	}, nil
}

// Start opens the transport and journal and runs the poll loop in the
// background. The provided context bounds the lifetime of the loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	if err := s.open(); err != nil {
		s.closeResources()
		_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	var changes <-chan struct{}
	if w := s.watcher(); w != nil {
		changes = w.Changes()
		s.lifecycle.Go(func() {
			if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("schedule watcher stopped", ports.Err(err))
			}
		})
	}

	if r := s.retention(); r != nil {
		s.lifecycle.Go(func() { r.run(runCtx) })
	}

	s.agent = s.newAgent(changes)
	agent := s.agent
	s.lifecycle.Go(func() {
		if err := s.lifecycle.TransitionTo(app.StateRunning, "agent starting"); err != nil {
			s.logger.Error("failed to transition to running", ports.Err(err))
			return
		}
		err := agent.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("agent error", ports.Err(err))
			_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})

	return nil
}

// Stop cancels the poll loop, waits for it to persist its status and
// releases the transport and journal. Returns ErrShutdownTimeout if the
// loop did not finish in time.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	s.mu.Lock()
	s.closeResources()
	s.mu.Unlock()

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Service) Status() State {
	return State(s.lifecycle.State())
}

// open prepares the data directory and acquires transport and journal.
func (s *Service) open() error {
	if err := s.opts.fs.MkdirAll(s.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	switch {
	case s.opts.transport != nil:
		s.transport = s.opts.transport
	case s.config.Device != "":
		t, err := transport.OpenDevice(s.config.Device, transport.DefaultCapacity, s.logger)
		if err != nil {
			return err
		}
		s.transport = t
	default:
		t := transport.NewWebSocketServer(transport.DefaultCapacity, s.logger)
		if err := t.Start(s.config.ListenAddr); err != nil {
			return err
		}
		s.transport = t
	}

	if s.opts.journal != nil {
		s.journal = s.opts.journal
		return nil
	}
	j, err := journal.Open(s.config.JournalPath)
	if err != nil {
		// The journal is history only; dispensing works without it.
		s.logger.Warn("journal unavailable", ports.String("path", s.config.JournalPath), ports.Err(err))
		return nil
	}
	s.journal = j
	return nil
}

func (s *Service) closeResources() {
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("close transport", ports.Err(err))
		}
		s.transport = nil
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("close journal", ports.Err(err))
		}
		s.journal = nil
	}
}

// watcher returns nil when watching is disabled or the medium is not the
// OS filesystem.
func (s *Service) watcher() *watch.Watcher {
	if !s.config.Watch {
		return nil
	}
	if _, ok := s.opts.fs.(*afero.OsFs); !ok {
		return nil
	}
	return watch.New(s.config.SchedulePath(), watch.DefaultDebounce, s.logger)
}

// retention returns nil when pruning is disabled or the journal cannot prune.
func (s *Service) retention() *retentionRunner {
	if s.opts.retention == nil || s.journal == nil {
		return nil
	}
	p, ok := s.journal.(pruner)
	if !ok {
		return nil
	}
	return &retentionRunner{cfg: *s.opts.retention, target: p, clock: s.opts.clock, logger: s.logger}
}

func (s *Service) newAgent(changes <-chan struct{}) *app.Agent {
	cfg := s.config
	guard := &storage.Guard{}

	writer := storage.NewWriter(s.opts.fs, storageConfig(cfg), guard, s.logger)
	compiler := schedule.NewCompiler(s.opts.fs, schedule.Config{
		Path:     cfg.SchedulePath(),
		MaxBytes: int64(cfg.MaxScheduleBytes),
	}, guard, s.logger)

	clock := s.opts.clock
	actuator := s.opts.actuator
	if actuator == nil {
		actuator = sim.NewActuator(simGramsPerRead, s.logger)
	}
	renderer := s.opts.renderer
	if renderer == nil {
		renderer = render.NewLogRenderer(s.logger)
	}
	coordinator := dispense.NewCoordinator(coordinatorConfig(cfg), actuator, clock, s.logger)

	deps := app.Deps{
		Transport:   s.transport,
		Writer:      writer,
		Compiler:    compiler,
		Coordinator: coordinator,
		Clock:       clock,
		Button:      s.opts.button,
		Renderer:    renderer,
		StatusRepo:  fsAdapter.NewStatusFileRepository(s.opts.fs, cfg.DataDir),
		Journal:     s.journal,
		Changes:     changes,
		Logger:      s.logger,
		Events:      s.emitter,
	}
	return app.NewAgent(agentConfig(cfg), deps)
}

func storageConfig(cfg Config) storage.Config {
	sc := storage.DefaultConfig(cfg.DataDir)
	sc.ScheduleFile = cfg.ScheduleFile
	sc.TempFile = cfg.TempFile
	return sc
}

func coordinatorConfig(cfg Config) dispense.Config {
	dc := dispense.DefaultConfig()
	dc.NotificationDwell = cfg.NotificationDwell
	dc.FeedTimeout = cfg.FeedTimeout
	dc.WeightThreshold = cfg.WeightThreshold
	dc.SettleDelay = cfg.SettleDelay
	return dc
}

func agentConfig(cfg Config) app.AgentConfig {
	ac := app.DefaultAgentConfig()
	ac.PollInterval = cfg.PollInterval
	ac.RefreshInterval = cfg.RefreshInterval
	ac.Frame = frame.Config{
		BufferSize:   cfg.BufferSize,
		IdleTimeout:  cfg.IdleTimeout,
		TotalTimeout: cfg.TotalTimeout,
		AckEvery:     cfg.AckEvery,
	}
	return ac
}
