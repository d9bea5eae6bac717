// Package sender frames a schedule file and streams it to a dispenser in
// small paced chunks, the way a low-MTU radio link expects it.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/pillship/internal/frame"
	"github.com/bft-labs/pillship/internal/ports"
)

// ErrInvalidPayload is returned when a schedule file lacks required fields.
var ErrInvalidPayload = errors.New("sender: invalid payload")

// Defaults matching a BLE UART link.
const (
	DefaultChunkSize  = 20
	DefaultChunkDelay = 200 * time.Millisecond
)

// Summary describes a validated payload.
type Summary struct {
	Medications int
	Tubes       int
	Slots       int
}

type medication struct {
	Tube       json.RawMessage `json:"tube"`
	Type       json.RawMessage `json:"type"`
	Amount     json.RawMessage `json:"amount"`
	TimeToTake json.RawMessage `json:"time_to_take"`
}

type slot struct {
	Time   json.RawMessage `json:"time"`
	Dosage json.RawMessage `json:"dosage"`
}

// Validate checks that data is a list of medications, each with tube, type,
// amount and a time_to_take list whose slots all carry time and dosage.
func Validate(data []byte) (Summary, error) {
	var meds []medication
	if err := json.Unmarshal(data, &meds); err != nil {
		return Summary{}, fmt.Errorf("%w: must be a list of medications: %v", ErrInvalidPayload, err)
	}

	var sum Summary
	tubes := make(map[string]struct{})
	for i, m := range meds {
		for _, f := range []struct {
			name  string
			value json.RawMessage
		}{
			{"tube", m.Tube},
			{"type", m.Type},
			{"amount", m.Amount},
			{"time_to_take", m.TimeToTake},
		} {
			if f.value == nil {
				return Summary{}, fmt.Errorf("%w: medication %d: missing required field %s", ErrInvalidPayload, i, f.name)
			}
		}

		var slots []slot
		if err := json.Unmarshal(m.TimeToTake, &slots); err != nil {
			return Summary{}, fmt.Errorf("%w: medication %d: time_to_take must be a list", ErrInvalidPayload, i)
		}
		for j, s := range slots {
			if s.Time == nil || s.Dosage == nil {
				return Summary{}, fmt.Errorf("%w: medication %d slot %d: needs time and dosage", ErrInvalidPayload, i, j)
			}
		}

		tubes[string(bytes.TrimSpace(m.Tube))] = struct{}{}
		sum.Slots += len(slots)
	}
	sum.Medications = len(meds)
	sum.Tubes = len(tubes)
	return sum, nil
}

// Frame validates data and wraps its indented form in start and end
// sentinels. Key order of the source is preserved.
func Frame(data []byte) ([]byte, Summary, error) {
	sum, err := Validate(data)
	if err != nil {
		return nil, Summary{}, err
	}

	var buf bytes.Buffer
	buf.Write(frame.StartSentinel)
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return nil, Summary{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	buf.Write(frame.EndSentinel)
	return buf.Bytes(), sum, nil
}

// Options tune the pacing of a Sender.
type Options struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// DefaultOptions returns the link defaults.
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, ChunkDelay: DefaultChunkDelay}
}

// Sender writes framed payloads to w in paced chunks.
type Sender struct {
	w      io.Writer
	opts   Options
	logger ports.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Sender writing to w.
func New(w io.Writer, opts Options, logger ports.Logger) *Sender {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Sender{w: w, opts: opts, logger: logger, sleep: sleepContext}
}

// WithSleep replaces the pacing delay, e.g. in tests.
func (s *Sender) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Sender {
	s.sleep = fn
	return s
}

// Send writes payload chunk by chunk, pausing ChunkDelay after each one.
// It returns the number of bytes written.
func (s *Sender) Send(ctx context.Context, payload []byte) (int, error) {
	total := (len(payload) + s.opts.ChunkSize - 1) / s.opts.ChunkSize
	sent := 0
	for i := 0; i < total; i++ {
		end := sent + s.opts.ChunkSize
		if end > len(payload) {
			end = len(payload)
		}
		if _, err := s.w.Write(payload[sent:end]); err != nil {
			return sent, fmt.Errorf("write chunk %d/%d: %w", i+1, total, err)
		}
		sent = end
		s.logger.Debug("chunk sent",
			ports.Int("chunk", i+1),
			ports.Int("chunks", total),
			ports.Int("bytes", sent),
		)
		if s.opts.ChunkDelay > 0 {
			if err := s.sleep(ctx, s.opts.ChunkDelay); err != nil {
				return sent, err
			}
		}
	}
	s.logger.Info("payload sent", ports.Int("bytes", sent), ports.Int("chunks", total))
	return sent, nil
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
