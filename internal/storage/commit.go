package storage

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/bft-labs/pillship/internal/backoff"
	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

var errCanonicalPresent = errors.New("canonical file still present")

// commitStage is one step of the replace pipeline.
type commitStage struct {
	name string
	run  func() error
}

// replace moves the finished temporary file over the canonical file.
// Stages run in order until one succeeds.
func (w *Writer) replace() error {
	w.canonicalGone = false

	stages := []commitStage{
		{name: "rename", run: w.tryRename},
		{name: "remove-rename", run: w.tryRemoveRename},
		{name: "copy", run: w.tryCopy},
	}

	var errs []error
	for _, stage := range stages {
		err := stage.run()
		if err == nil {
			w.logger.Debug("commit stage succeeded", ports.String("stage", stage.name))
			return nil
		}
		w.logger.Debug("commit stage failed", ports.String("stage", stage.name), ports.Err(err))
		errs = append(errs, fmt.Errorf("%s: %w", stage.name, err))
	}

	// Keep the temp file for Recover only when the canonical file is gone.
	if !w.canonicalGone {
		w.removeTemp()
	}
	return fmt.Errorf("%w: %w", domain.ErrCommitFailure, errors.Join(errs...))
}

func (w *Writer) tryRename() error {
	return w.fs.Rename(w.cfg.TempPath(), w.cfg.SchedulePath())
}

func (w *Writer) tryRemoveRename() error {
	if err := w.removeCanonical(); err != nil {
		return err
	}
	return w.fs.Rename(w.cfg.TempPath(), w.cfg.SchedulePath())
}

// removeCanonical deletes the canonical file, retrying with backoff since
// another user of the medium may briefly hold it.
func (w *Writer) removeCanonical() error {
	b := backoff.New(w.cfg.RemoveBackoff, 8*w.cfg.RemoveBackoff).WithSleep(w.sleep)

	var err error
	for attempt := 1; attempt <= w.cfg.RemoveAttempts; attempt++ {
		err = w.fs.Remove(w.cfg.SchedulePath())
		if err == nil || errors.Is(err, os.ErrNotExist) {
			w.canonicalGone = true
			return nil
		}
		w.logger.Debug("remove canonical failed",
			ports.Int("attempt", attempt),
			ports.Err(err),
		)
		if attempt < w.cfg.RemoveAttempts {
			b.Sleep()
		}
	}
	return fmt.Errorf("remove canonical after %d attempts: %w", w.cfg.RemoveAttempts, err)
}

// tryCopy copies the temporary file into a fresh canonical file in fixed-size
// blocks and verifies the result before deleting the temporary file.
func (w *Writer) tryCopy() error {
	if !w.canonicalGone {
		return errCanonicalPresent
	}

	if err := w.copyBlocks(); err != nil {
		w.discardCanonical()
		return err
	}

	want, err := w.checksum(w.cfg.TempPath())
	if err != nil {
		w.discardCanonical()
		return fmt.Errorf("checksum temp: %w", err)
	}
	got, err := w.checksum(w.cfg.SchedulePath())
	if err != nil || got != want {
		w.discardCanonical()
		if err == nil {
			err = fmt.Errorf("verify: got %d bytes crc %08x, want %d bytes crc %08x",
				got.size, got.crc, want.size, want.crc)
		}
		return err
	}

	w.removeTemp()
	return nil
}

func (w *Writer) copyBlocks() (err error) {
	src, err := w.fs.Open(w.cfg.TempPath())
	if err != nil {
		return fmt.Errorf("open temp: %w", err)
	}
	defer src.Close()

	dst, err := w.fs.OpenFile(w.cfg.SchedulePath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create canonical: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close canonical: %w", cerr)
		}
	}()

	buf := make([]byte, w.cfg.CopyBlockSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return fmt.Errorf("write canonical: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read temp: %w", rerr)
		}
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("sync canonical: %w", err)
	}
	return nil
}

type fileSum struct {
	size int64
	crc  uint32
}

func (w *Writer) checksum(path string) (fileSum, error) {
	f, err := w.fs.Open(path)
	if err != nil {
		return fileSum{}, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	n, err := io.Copy(h, f)
	if err != nil {
		return fileSum{}, err
	}
	return fileSum{size: n, crc: h.Sum32()}, nil
}

// discardCanonical removes a partially copied canonical file.
func (w *Writer) discardCanonical() {
	if err := w.fs.Remove(w.cfg.SchedulePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("failed to remove partial schedule file", ports.Err(err))
	}
}
