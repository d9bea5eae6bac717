package dispense

import (
	"context"
	"time"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// Config holds coordinator timing and dispensing parameters.
type Config struct {
	// NotificationDwell is how long an unanswered notification stays up
	NotificationDwell time.Duration

	// FeedTimeout bounds how long one tube's feed motor runs
	FeedTimeout time.Duration

	// WeightThreshold is the weight gain in grams that ends feeding
	WeightThreshold float64

	// WeightPoll is the interval between scale readings while feeding
	WeightPoll time.Duration

	// SettleDelay is the pause between two tubes
	SettleDelay time.Duration
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		NotificationDwell: 30 * time.Second,
		FeedTimeout:       8 * time.Second,
		WeightThreshold:   0.2,
		WeightPoll:        100 * time.Millisecond,
		SettleDelay:       500 * time.Millisecond,
	}
}

// Coordinator owns the loaded schedule and the workflow state.
type Coordinator struct {
	cfg      Config
	actuator ports.Actuator
	clock    ports.Clock
	logger   ports.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	sched        domain.Schedule
	storageReady bool
	mode         domain.Mode
	now          time.Time

	// notification state, valid in ModeNotifying
	due         domain.Group
	message     string
	notifyUntil time.Time
	lastFired   string

	setup domain.SetupState
}

// NewCoordinator creates a coordinator in ModeBrowsing with no schedule.
func NewCoordinator(cfg Config, actuator ports.Actuator, clock ports.Clock, logger ports.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		actuator: actuator,
		clock:    clock,
		logger:   logger,
		sleep:    sleepContext,
		mode:     domain.ModeBrowsing,
	}
}

// WithSleep replaces the delay function used while dispensing.
func (c *Coordinator) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Coordinator {
	c.sleep = fn
	return c
}

// Mode returns the current mode.
func (c *Coordinator) Mode() domain.Mode { return c.mode }

// Schedule returns the loaded schedule.
func (c *Coordinator) Schedule() domain.Schedule { return c.sched }

// Load replaces the schedule. A pending notification follows its slot into
// the new schedule; when the slot is gone the notification is withdrawn and
// the slot may fire again.
func (c *Coordinator) Load(sched domain.Schedule) {
	c.sched = sched
	c.storageReady = true
	if c.mode != domain.ModeNotifying {
		return
	}
	if i := sched.Groups.Find(c.due.Time); i >= 0 {
		c.due = sched.Groups.At(i)
		c.message = Message(c.due)
		return
	}
	c.clearNotification()
	c.lastFired = ""
	c.mode = c.idleMode()
}

// SetStorageReady records whether a usable schedule is available.
func (c *Coordinator) SetStorageReady(ready bool) { c.storageReady = ready }

// Tick advances time-driven state: it expires the notification after its
// dwell time and raises a notification for a group due exactly at now's
// minute. A slot fires at most once per calendar day. A due dose interrupts
// tube setup unless a tube path is open for loading; setup resumes once the
// notification ends.
func (c *Coordinator) Tick(now time.Time) {
	c.now = now

	if c.mode == domain.ModeNotifying && !now.Before(c.notifyUntil) {
		c.logger.Info("notification expired", ports.String("slot", c.due.Time))
		c.clearNotification()
		c.mode = c.idleMode()
	}
	watching := c.mode == domain.ModeBrowsing ||
		(c.mode == domain.ModeSettingUp && !c.setup.AwaitingConfirm)
	if !watching {
		return
	}

	clock := domain.FormatClock(now)
	key := now.Format("2006-01-02") + " " + clock
	if key == c.lastFired {
		return
	}
	for i := 0; i < c.sched.Groups.Len(); i++ {
		g := c.sched.Groups.At(i)
		if g.Time != clock {
			continue
		}
		c.lastFired = key
		c.due = g
		c.message = Message(g)
		c.notifyUntil = now.Add(c.cfg.NotificationDwell)
		c.mode = domain.ModeNotifying
		c.logger.Info("dose due",
			ports.String("slot", g.Time),
			ports.Int("doses", g.Count),
			ports.String("message", c.message),
		)
		return
	}
}

// Press handles a button press. While notifying it dispenses the due group
// and returns the report; during setup it advances the flow; otherwise it
// does nothing. The error is non-nil only when ctx ended the dispensing.
func (c *Coordinator) Press(ctx context.Context, now time.Time) (*Report, error) {
	c.now = now

	switch c.mode {
	case domain.ModeNotifying:
		group := c.due
		c.clearNotification()
		report, err := c.dispense(ctx, group, now)
		c.mode = c.idleMode()
		return report, err
	case domain.ModeSettingUp:
		c.advanceSetup()
	}
	return nil, nil
}

// BeginSetup starts the guided loading of every distinct tube of the loaded
// schedule. It returns false when the schedule has no tubes. A pending
// notification stays up and setup starts after it.
func (c *Coordinator) BeginSetup() bool {
	tubes := c.sched.Entries.Tubes()
	if len(tubes) == 0 {
		return false
	}
	if c.setup.Active && c.setup.AwaitingConfirm {
		tube := c.setup.Current()
		if err := c.actuator.ClosePath(tube); err != nil {
			c.logger.Warn("failed to close tube of abandoned setup", ports.String("tube", tube), ports.Err(err))
		}
	}
	c.setup = domain.NewSetupState(tubes)
	if c.mode != domain.ModeNotifying {
		c.mode = domain.ModeSettingUp
	}
	c.logger.Info("tube setup started",
		ports.Int("tubes", len(tubes)),
		ports.String("first", c.setup.Current()),
	)
	return true
}

// advanceSetup performs one setup step: the first press on a tube opens its
// path for loading, the second closes it and moves on.
func (c *Coordinator) advanceSetup() {
	tube := c.setup.Current()
	if !c.setup.AwaitingConfirm {
		if err := c.actuator.OpenPath(tube); err != nil {
			c.logger.Warn("failed to open tube for loading", ports.String("tube", tube), ports.Err(err))
		}
		c.setup.AwaitingConfirm = true
		return
	}

	if err := c.actuator.ClosePath(tube); err != nil {
		c.logger.Warn("failed to close tube after loading", ports.String("tube", tube), ports.Err(err))
	}
	c.setup.Advance()
	c.logger.Info("tube loaded",
		ports.String("tube", tube),
		ports.Int("index", c.setup.Index),
		ports.Int("total", c.setup.Total),
	)
	if !c.setup.Active {
		c.mode = domain.ModeBrowsing
		c.logger.Info("tube setup complete")
	}
}

// Snapshot returns the view handed to renderers.
func (c *Coordinator) Snapshot() domain.Snapshot {
	now := c.now
	if now.IsZero() {
		now = c.clock.Now()
	}

	groups := c.sched.Groups.All()
	next, ok := NextDose(groups, domain.MinuteOfDay(now))
	if !ok {
		next = -1
	}

	snap := domain.Snapshot{
		Mode:                c.mode,
		Groups:              groups,
		Entries:             c.sched.Entries.Len(),
		NextDose:            next,
		NotificationActive:  c.mode == domain.ModeNotifying,
		NotificationMessage: c.message,
		StorageReady:        c.storageReady,
	}
	if c.setup.Active {
		snap.Setup = c.setup
		snap.Setup.Tubes = append([]string(nil), c.setup.Tubes...)
	}
	return snap
}

// idleMode is the mode to return to when no notification is up.
func (c *Coordinator) idleMode() domain.Mode {
	if c.setup.Active {
		return domain.ModeSettingUp
	}
	return domain.ModeBrowsing
}

func (c *Coordinator) clearNotification() {
	c.due = domain.Group{}
	c.message = ""
	c.notifyUntil = time.Time{}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
