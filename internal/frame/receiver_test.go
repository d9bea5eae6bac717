package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pillship/internal/domain"
	"github.com/bft-labs/pillship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// fakeSink records the frames written to it.
type fakeSink struct {
	current   bytes.Buffer
	committed []string
	chunks    int
	opens     int
	aborts    int

	openErr   error
	writeErr  error
	commitErr error
}

func (s *fakeSink) Open() error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opens++
	s.current.Reset()
	return nil
}

func (s *fakeSink) WriteChunk(p []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.chunks++
	s.current.Write(p)
	return nil
}

func (s *fakeSink) Commit() error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = append(s.committed, s.current.String())
	return nil
}

func (s *fakeSink) Abort() error {
	s.aborts++
	s.current.Reset()
	return nil
}

type countingAcker struct{ acks int }

func (a *countingAcker) Ack() error {
	a.acks++
	return nil
}

var t0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func feed(r *Receiver, data string, now time.Time) []Result {
	var results []Result
	for i := 0; i < len(data); i++ {
		res, _ := r.Feed(data[i], now)
		if res != ResultNone {
			results = append(results, res)
		}
	}
	return results
}

func TestReceiver_SingleFrame(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	payload := `[{"tube":"t1","type":"Aspirin","amount":1,"time_to_take":[{"time":"08:00","dosage":"1 tab"}]}]`
	results := feed(r, "garbage before#START#"+payload+"#END#trailing", t0)

	require.Equal(t, []Result{ResultStarted, ResultCommitted}, results)
	require.Equal(t, []string{payload}, sink.committed)
	require.False(t, r.Receiving())
}

func TestReceiver_PayloadAlignment(t *testing.T) {
	// Every payload length exercises a different split between flushed halves
	// and the end sentinel.
	for n := 0; n < 120; n++ {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			sink := &fakeSink{}
			cfg := DefaultConfig()
			cfg.BufferSize = MinBufferSize
			r := NewReceiver(cfg, sink, nil, mockLogger{})

			payload := strings.Repeat("#EN#x", n/5+1)[:n]
			feed(r, "#START#"+payload+"#END#", t0)

			require.Equal(t, []string{payload}, sink.committed)
			require.LessOrEqual(t, r.Buffered(), cfg.BufferSize)
		})
	}
}

func TestReceiver_NoiseBeforeSentinelIsBounded(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	noise := strings.Repeat("0123456789", 50)
	feed(r, noise, t0)
	require.LessOrEqual(t, r.Buffered(), 64)
	require.Equal(t, 0, sink.opens)

	// A sentinel straddling the truncation point must still match.
	feed(r, noise[:61]+"#START#abc#END#", t0)
	require.Equal(t, []string{"abc"}, sink.committed)
}

func TestReceiver_BackToBackFrames(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	feed(r, "#START#one#END##START#two#END#", t0)
	require.Equal(t, []string{"one", "two"}, sink.committed)
}

func TestReceiver_OpenFailureStaysIdle(t *testing.T) {
	sink := &fakeSink{openErr: domain.ErrStorageBusy}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	var gotErr error
	for _, c := range []byte("#START#") {
		if _, err := r.Feed(c, t0); err != nil {
			gotErr = err
		}
	}
	require.ErrorIs(t, gotErr, domain.ErrStorageBusy)
	require.False(t, r.Receiving())
	require.Equal(t, 0, r.Buffered())

	// The payload that follows is treated as noise; a later frame succeeds.
	feed(r, "lost#END#", t0)
	sink.openErr = nil
	feed(r, "#START#ok#END#", t0)
	require.Equal(t, []string{"ok"}, sink.committed)
}

func TestReceiver_WriteFailureAbortsFrame(t *testing.T) {
	sink := &fakeSink{writeErr: domain.ErrPartialWrite}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	results := feed(r, "#START#"+strings.Repeat("a", 100)+"#END#", t0)

	require.Contains(t, results, ResultFailed)
	require.Equal(t, 1, sink.aborts)
	require.Empty(t, sink.committed)
	require.False(t, r.Receiving())
}

func TestReceiver_CommitFailure(t *testing.T) {
	sink := &fakeSink{commitErr: domain.ErrCommitFailure}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	feed(r, "#START#abc#END", t0)
	res, err := r.Feed('#', t0)

	require.Equal(t, ResultFailed, res)
	require.ErrorIs(t, err, domain.ErrCommitFailure)
	require.False(t, r.Receiving())
}

func TestReceiver_IdleTimeout(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	feed(r, "#START#partial", t0)
	require.True(t, r.Receiving())

	require.NoError(t, r.Tick(t0.Add(4*time.Second)))
	err := r.Tick(t0.Add(6 * time.Second))

	require.True(t, errors.Is(err, domain.ErrReceiveTimeout))
	require.False(t, r.Receiving())
	require.Equal(t, 1, sink.aborts)
	require.Equal(t, 0, r.Buffered())

	// Retry after the timeout works.
	feed(r, "#START#again#END#", t0.Add(7*time.Second))
	require.Equal(t, []string{"again"}, sink.committed)
}

func TestReceiver_TotalTimeout(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	feed(r, "#START#", t0)

	var failedAt int
	for i := 1; i <= 25; i++ {
		res, err := r.Feed('a', t0.Add(time.Duration(i)*time.Second))
		if res == ResultFailed {
			require.ErrorIs(t, err, domain.ErrReceiveTimeout)
			failedAt = i
			break
		}
	}

	require.Equal(t, 21, failedAt)
	require.False(t, r.Receiving())
	require.Empty(t, sink.committed)
}

func TestReceiver_LateByteAfterIdleGapAborts(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	feed(r, "#START#abc", t0)
	res, err := r.Feed('d', t0.Add(10*time.Second))

	require.Equal(t, ResultFailed, res)
	require.ErrorIs(t, err, domain.ErrReceiveTimeout)
	require.Equal(t, 1, sink.aborts)
}

func TestReceiver_Acknowledgements(t *testing.T) {
	sink := &fakeSink{}
	acker := &countingAcker{}
	cfg := DefaultConfig()
	cfg.AckEvery = 10
	r := NewReceiver(cfg, sink, acker, mockLogger{})

	stream := "#START#" + strings.Repeat("p", 33) + "#END#" // 45 bytes
	feed(r, stream, t0)

	// 4 periodic acks plus one for the completed frame.
	require.Equal(t, 5, acker.acks)
}

func TestReceiver_Reset(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(DefaultConfig(), sink, nil, mockLogger{})

	feed(r, "#START#abc", t0)
	r.Reset()

	require.False(t, r.Receiving())
	require.Equal(t, 1, sink.aborts)
	require.Equal(t, 0, r.Buffered())
}

func TestResult_String(t *testing.T) {
	require.Equal(t, "Committed", ResultCommitted.String())
	require.Equal(t, "Unknown", Result(42).String())
}
