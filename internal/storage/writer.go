package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// Default file names, relative to Config.Dir.
const (
	DefaultScheduleFile = "data.json"
	DefaultTempFile     = "data.json.tmp"
)

// Config locates the schedule files and tunes the commit pipeline.
type Config struct {
	Dir          string
	ScheduleFile string
	TempFile     string

	// RemoveAttempts bounds how often removal of the canonical file is tried
	RemoveAttempts int

	// RemoveBackoff is the first delay between removal attempts
	RemoveBackoff time.Duration

	// CopyBlockSize is the block size of the fallback copy
	CopyBlockSize int
}

// DefaultConfig returns a Config rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		ScheduleFile:   DefaultScheduleFile,
		TempFile:       DefaultTempFile,
		RemoveAttempts: 5,
		RemoveBackoff:  20 * time.Millisecond,
		CopyBlockSize:  512,
	}
}

// SchedulePath returns the canonical schedule file path.
func (c Config) SchedulePath() string { return filepath.Join(c.Dir, c.ScheduleFile) }

// TempPath returns the temporary file path.
func (c Config) TempPath() string { return filepath.Join(c.Dir, c.TempFile) }

// Writer streams a frame into the temporary file and commits it.
// It implements frame.Sink.
type Writer struct {
	fs     afero.Fs
	cfg    Config
	guard  *Guard
	logger ports.Logger
	sleep  func(time.Duration)

	tmp     afero.File
	held    bool
	written int64

	// canonicalGone is set by the pipeline once the canonical file is known
	// to be absent, which is the precondition of the copy stage.
	canonicalGone bool
}

// NewWriter creates a Writer on fs sharing guard with the compiler.
func NewWriter(fs afero.Fs, cfg Config, guard *Guard, logger ports.Logger) *Writer {
	if cfg.ScheduleFile == "" {
		cfg.ScheduleFile = DefaultScheduleFile
	}
	if cfg.TempFile == "" {
		cfg.TempFile = DefaultTempFile
	}
	if cfg.RemoveAttempts <= 0 {
		cfg.RemoveAttempts = 1
	}
	if cfg.CopyBlockSize <= 0 {
		cfg.CopyBlockSize = 512
	}
	return &Writer{
		fs:     fs,
		cfg:    cfg,
		guard:  guard,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Config returns the writer configuration.
func (w *Writer) Config() Config { return w.cfg }

// Open acquires storage and creates a fresh temporary file.
// On failure the guard is released and no frame is open.
func (w *Writer) Open() error {
	if !w.guard.TryAcquire() {
		return fmt.Errorf("open temp: %w", domain.ErrStorageBusy)
	}
	w.held = true

	if err := w.fs.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		w.release()
		return fmt.Errorf("%w: create dir: %v", domain.ErrStorageUnavailable, err)
	}
	if err := w.fs.Remove(w.cfg.TempPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.release()
		return fmt.Errorf("%w: remove stale temp: %v", domain.ErrStorageUnavailable, err)
	}

	f, err := w.fs.OpenFile(w.cfg.TempPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		w.release()
		return fmt.Errorf("%w: create temp: %v", domain.ErrStorageUnavailable, err)
	}
	w.tmp = f
	w.written = 0
	return nil
}

// WriteChunk appends p to the temporary file and flushes it.
// A short write is reported but leaves the frame open; the caller decides
// whether to continue or Abort.
func (w *Writer) WriteChunk(p []byte) error {
	if w.tmp == nil {
		return fmt.Errorf("%w: no frame open", domain.ErrStorageUnavailable)
	}

	n, err := w.tmp.Write(p)
	w.written += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("%w: wrote %d of %d bytes: %v", domain.ErrPartialWrite, n, len(p), err)
	}
	if err := w.tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", domain.ErrPartialWrite, err)
	}
	return nil
}

// Commit finalizes the temporary file and replaces the canonical file with it.
// The guard is released on every path.
func (w *Writer) Commit() error {
	defer w.release()

	if w.tmp == nil {
		return fmt.Errorf("%w: no frame open", domain.ErrCommitFailure)
	}

	syncErr := w.tmp.Sync()
	closeErr := w.tmp.Close()
	w.tmp = nil
	if err := errors.Join(syncErr, closeErr); err != nil {
		w.removeTemp()
		return fmt.Errorf("%w: finalize temp: %v", domain.ErrCommitFailure, err)
	}

	if err := w.replace(); err != nil {
		return err
	}
	w.logger.Info("schedule committed",
		ports.String("path", w.cfg.SchedulePath()),
		ports.Int64("bytes", w.written),
	)
	return nil
}

// Abort closes and discards the temporary file and releases the guard.
// It is a no-op when no frame is open.
func (w *Writer) Abort() error {
	if !w.held {
		return nil
	}
	defer w.release()

	var err error
	if w.tmp != nil {
		err = w.tmp.Close()
		w.tmp = nil
	}
	w.removeTemp()
	return err
}

// Recover promotes a temporary file left behind by an interrupted commit.
// It only acts when the canonical file is missing or empty and validate
// accepts the temporary file's content; otherwise a stale temporary file is
// deleted.
func (w *Writer) Recover(validate func([]byte) error) error {
	if !w.guard.TryAcquire() {
		return fmt.Errorf("recover: %w", domain.ErrStorageBusy)
	}
	w.held = true
	defer w.release()

	tmpPath := w.cfg.TempPath()
	if ok, _ := afero.Exists(w.fs, tmpPath); !ok {
		return nil
	}

	if info, err := w.fs.Stat(w.cfg.SchedulePath()); err == nil && info.Size() > 0 {
		w.logger.Debug("removing stale temp file", ports.String("path", tmpPath))
		w.removeTemp()
		return nil
	}

	data, err := afero.ReadFile(w.fs, tmpPath)
	if err != nil {
		return fmt.Errorf("%w: read temp: %v", domain.ErrStorageUnavailable, err)
	}
	if err := validate(data); err != nil {
		w.logger.Warn("discarding invalid temp file", ports.String("path", tmpPath), ports.Err(err))
		w.removeTemp()
		return nil
	}

	w.written = int64(len(data))
	if err := w.replace(); err != nil {
		return err
	}
	w.logger.Info("schedule recovered from temp file", ports.Int64("bytes", w.written))
	return nil
}

func (w *Writer) release() {
	if w.held {
		w.held = false
		w.guard.Release()
	}
}

func (w *Writer) removeTemp() {
	if err := w.fs.Remove(w.cfg.TempPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("failed to remove temp file", ports.Err(err))
	}
}
