package schedule

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
	"github.com/bft-labs/pillship/internal/storage"
)

// DefaultMaxBytes bounds the schedule file size accepted by Compile.
const DefaultMaxBytes = 64 << 10

// Config configures a Compiler.
type Config struct {
	// Path is the canonical schedule file
	Path string

	// MaxBytes rejects larger files as unparseable; 0 means DefaultMaxBytes
	MaxBytes int64
}

// Compiler turns the canonical schedule file into a domain.Schedule.
type Compiler struct {
	fs     afero.Fs
	cfg    Config
	guard  *storage.Guard
	logger ports.Logger
}

// NewCompiler creates a Compiler reading from fs under guard.
func NewCompiler(fs afero.Fs, cfg Config, guard *storage.Guard, logger ports.Logger) *Compiler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Compiler{fs: fs, cfg: cfg, guard: guard, logger: logger}
}

// Compile reads and compiles the schedule file.
// The returned Schedule is complete; on error it is the zero value and the
// caller keeps whatever it had loaded before.
func (c *Compiler) Compile() (domain.Schedule, error) {
	if !c.guard.TryAcquire() {
		return domain.Schedule{}, fmt.Errorf("compile: %w", domain.ErrStorageBusy)
	}
	defer c.guard.Release()

	f, err := c.fs.Open(c.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Schedule{}, fmt.Errorf("%w: %s not found", domain.ErrNoScheduleData, c.cfg.Path)
	}
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("%w: open schedule: %v", domain.ErrStorageUnavailable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("%w: stat schedule: %v", domain.ErrStorageUnavailable, err)
	}
	if info.Size() == 0 {
		return domain.Schedule{}, fmt.Errorf("%w: %s is empty", domain.ErrNoScheduleData, c.cfg.Path)
	}
	if info.Size() > c.cfg.MaxBytes {
		return domain.Schedule{}, fmt.Errorf("%w: file is %d bytes, limit %d", domain.ErrParse, info.Size(), c.cfg.MaxBytes)
	}

	sched, report, err := Parse(io.LimitReader(f, c.cfg.MaxBytes))
	if err != nil {
		return domain.Schedule{}, err
	}

	if report.Truncated() {
		c.logger.Warn("schedule truncated to capacity",
			ports.Int("slots", report.Slots),
			ports.Int("dropped_entries", report.DroppedEntries),
			ports.Int("dropped_doses", report.DroppedDoses),
			ports.Err(domain.ErrCapacityExceeded),
		)
	}
	c.logger.Info("schedule compiled",
		ports.Int("medications", report.Medications),
		ports.Int("entries", sched.Entries.Len()),
		ports.Int("groups", sched.Groups.Len()),
	)
	return sched, nil
}
