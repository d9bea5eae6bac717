package transport

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pillship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// readAll polls t until want bytes arrived or the deadline passes.
func readAll(t *testing.T, tr ports.Transport, want int) string {
	t.Helper()
	var got []byte
	buf := make([]byte, 16)
	require.Eventually(t, func() bool {
		n, err := tr.Read(buf)
		if err != nil {
			return false
		}
		got = append(got, buf[:n]...)
		return len(got) >= want
	}, 2*time.Second, 5*time.Millisecond)
	return string(got)
}

// pipeRWC joins the reading end of one pipe with the writing end of another.
type pipeRWC struct {
	io.Reader
	io.Writer
	closeFn func() error
}

func (p pipeRWC) Close() error { return p.closeFn() }

func TestStream_ReadAndAck(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := NewStream(pipeRWC{Reader: inR, Writer: outW, closeFn: inR.Close}, 8, mockLogger{})
	defer s.Close()

	go func() {
		_, _ = inW.Write([]byte("#START#[]#END#"))
	}()
	require.Equal(t, "#START#[]#END#", readAll(t, s, 14))

	n, err := s.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Zero(t, n, "Read must not block when idle")

	var wg sync.WaitGroup
	wg.Add(1)
	ack := make([]byte, 1)
	go func() {
		defer wg.Done()
		_, _ = io.ReadFull(outR, ack)
	}()
	require.NoError(t, s.Ack())
	wg.Wait()
	require.Equal(t, ports.AckByte, ack[0])
}

func TestStream_ErrorAfterDrain(t *testing.T) {
	boom := errors.New("device unplugged")
	r := io.MultiReader(strings.NewReader("abc"), &errReader{err: boom})
	s := NewStream(pipeRWC{Reader: r, Writer: io.Discard, closeFn: func() error { return nil }}, 8, mockLogger{})
	defer s.Close()

	require.Equal(t, "abc", readAll(t, s, 3))
	require.Eventually(t, func() bool {
		_, err := s.Read(make([]byte, 4))
		return errors.Is(err, boom)
	}, 2*time.Second, 5*time.Millisecond)
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

func TestWebSocket_RoundTrip(t *testing.T) {
	srv := NewWebSocketServer(64, mockLogger{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
	client, err := DialWebSocket(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	for _, chunk := range []string{"#START#[{\"tube\":", "\"t1\"}]#END#"} {
		_, err := client.Write([]byte(chunk))
		require.NoError(t, err)
	}
	require.Equal(t, `#START#[{"tube":"t1"}]#END#`, readAll(t, srv, 27))

	require.NoError(t, srv.Ack())
	require.NoError(t, srv.Ack())
	require.Eventually(t, func() bool { return client.Acks() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocket_AckWithoutSender(t *testing.T) {
	srv := NewWebSocketServer(64, mockLogger{})
	defer srv.Close()
	require.NoError(t, srv.Ack())
}
