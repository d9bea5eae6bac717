package pillship

import (
	"github.com/spf13/afero"

	logAdapter "github.com/bft-labs/pillship/internal/adapters/log"
	"github.com/bft-labs/pillship/internal/ports"
)

// Re-exported port interfaces for implementing custom adapters.
type (
	// Logger is the structured logging interface.
	Logger = ports.Logger

	// LogField is a structured log field.
	LogField = ports.Field

	// Transport carries framed schedules from the sender.
	Transport = ports.Transport

	// Actuator drives tube paths, feed motors and the scale.
	Actuator = ports.Actuator

	// Button reports the level of the user button.
	Button = ports.Button

	// Renderer presents coordinator snapshots.
	Renderer = ports.Renderer

	// Clock supplies wall-clock time.
	Clock = ports.Clock

	// Journal records schedule loads and dispenses.
	Journal = ports.Journal

	// JournalRecord is one row of device history.
	JournalRecord = ports.JournalRecord
)

// Option configures optional behavior of a Service.
type Option func(*options)

type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	fs           afero.Fs
	transport    ports.Transport
	actuator     ports.Actuator
	button       ports.Button
	renderer     ports.Renderer
	clock        ports.Clock
	journal      ports.Journal
	retention    *RetentionConfig
}

func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
		fs:     afero.NewOsFs(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for Service events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithFs replaces the storage medium, e.g. with afero.NewMemMapFs in tests.
// File watching needs the OS filesystem and is skipped for other media.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithTransport replaces the transport built from Config.Device or
// Config.ListenAddr. The Service closes it on Stop.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithActuator attaches dispensing hardware.
// If not provided, a simulated actuator is used.
func WithActuator(a Actuator) Option {
	return func(o *options) {
		o.actuator = a
	}
}

// WithButton attaches the user button. Without one, notifications expire
// unanswered and setup cannot advance.
func WithButton(b Button) Option {
	return func(o *options) {
		o.button = b
	}
}

// WithRenderer replaces the log renderer.
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithJournal replaces the SQLite journal opened from Config.JournalPath.
func WithJournal(j Journal) Option {
	return func(o *options) {
		o.journal = j
	}
}
