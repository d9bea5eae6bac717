package sender

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pillship/internal/ports"
	"github.com/bft-labs/pillship/internal/schedule"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...ports.Field) {}
func (nopLogger) Info(msg string, fields ...ports.Field)  {}
func (nopLogger) Warn(msg string, fields ...ports.Field)  {}
func (nopLogger) Error(msg string, fields ...ports.Field) {}

const payload = `[{"type":"Aspirin","tube":"A","amount":30,"time_to_take":[{"time":"08:00","dosage":"1 tab"},{"time":"20:00","dosage":"1 tab"}]},
{"tube":"B","type":"Vitamin D","amount":10,"time_to_take":[{"time":"08:00","dosage":"1 cap"}]}]`

// chunkWriter records every Write call.
type chunkWriter struct {
	chunks [][]byte
	failAt int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if w.failAt > 0 && len(w.chunks)+1 == w.failAt {
		return 0, errors.New("link lost")
	}
	w.chunks = append(w.chunks, append([]byte(nil), p...))
	return len(p), nil
}

func TestValidate(t *testing.T) {
	sum, err := Validate([]byte(payload))
	require.NoError(t, err)
	require.Equal(t, Summary{Medications: 2, Tubes: 2, Slots: 3}, sum)

	tests := []struct {
		name string
		data string
		want string
	}{
		{"not a list", `{"tube":"A"}`, "list of medications"},
		{"missing amount", `[{"tube":"A","type":"X","time_to_take":[]}]`, "amount"},
		{"slots not a list", `[{"tube":"A","type":"X","amount":1,"time_to_take":"08:00"}]`, "must be a list"},
		{"slot without dosage", `[{"tube":"A","type":"X","amount":1,"time_to_take":[{"time":"08:00"}]}]`, "time and dosage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidPayload)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFrame(t *testing.T) {
	framed, sum, err := Frame([]byte(payload))
	require.NoError(t, err)
	require.Equal(t, 2, sum.Medications)

	s := string(framed)
	require.True(t, strings.HasPrefix(s, "#START#[\n  {\n    \"type\": \"Aspirin\""), "source key order is kept")
	require.True(t, strings.HasSuffix(s, "]#END#"))

	body := strings.TrimSuffix(strings.TrimPrefix(s, "#START#"), "#END#")
	require.NoError(t, schedule.Validate([]byte(body)))
}

func TestSend(t *testing.T) {
	w := &chunkWriter{}
	var delays []time.Duration
	s := New(w, DefaultOptions(), nopLogger{}).WithSleep(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})

	data := bytes.Repeat([]byte("x"), 45)
	n, err := s.Send(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 45, n)
	require.Len(t, w.chunks, 3)
	require.Len(t, w.chunks[2], 5)
	require.Equal(t, []time.Duration{DefaultChunkDelay, DefaultChunkDelay, DefaultChunkDelay}, delays)
	require.Equal(t, data, bytes.Join(w.chunks, nil))
}

func TestSendWriteError(t *testing.T) {
	w := &chunkWriter{failAt: 2}
	s := New(w, Options{ChunkSize: 10}, nopLogger{})

	n, err := s.Send(context.Background(), bytes.Repeat([]byte("x"), 30))
	require.Error(t, err)
	require.Contains(t, err.Error(), "chunk 2/3")
	require.Equal(t, 10, n)
}

func TestSendCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(&chunkWriter{}, Options{ChunkSize: 4, ChunkDelay: time.Second}, nopLogger{})

	n, err := s.Send(ctx, []byte("12345678"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 4, n)
}
