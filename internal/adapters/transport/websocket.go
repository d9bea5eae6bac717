package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/bft-labs/pillship/internal/ports"
)

// WebSocketPath is where the server accepts senders.
const WebSocketPath = "/stream"

const ackTimeout = time.Second

// WebSocketServer accepts one sender at a time over WebSocket and exposes
// its binary messages as a byte stream. A new sender replaces the previous
// one. Acknowledgements go back as one-byte binary messages.
type WebSocketServer struct {
	q      *byteQueue
	logger ports.Logger

	server   *http.Server
	listener net.Listener

	mu      sync.Mutex
	current *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketServer creates a server; call Start to listen or mount Handler.
func NewWebSocketServer(capacity int, logger ports.Logger) *WebSocketServer {
	s := &WebSocketServer{
		q:      newByteQueue(capacity),
		logger: logger,
		done:   make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWS)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Handler returns the HTTP handler serving WebSocketPath.
func (s *WebSocketServer) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on addr and serves in the background.
func (s *WebSocketServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server error", ports.Err(err))
		}
	}()
	s.logger.Info("websocket transport listening", ports.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listening address once started.
func (s *WebSocketServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *WebSocketServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", ports.Err(err))
		return
	}

	s.mu.Lock()
	previous := s.current
	s.current = conn
	s.mu.Unlock()
	if previous != nil {
		previous.Close(websocket.StatusGoingAway, "replaced by new sender")
	}
	s.q.clear()
	s.logger.Info("sender connected", ports.String("remote", r.RemoteAddr))

	defer func() {
		s.mu.Lock()
		if s.current == conn {
			s.current = nil
		}
		s.mu.Unlock()
		conn.CloseNow()
		s.logger.Info("sender disconnected", ports.String("remote", r.RemoteAddr))
	}()

	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary && typ != websocket.MessageText {
			continue
		}
		if !s.q.push(s.done, data) {
			return
		}
	}
}

// Read copies queued bytes into p without blocking.
func (s *WebSocketServer) Read(p []byte) (int, error) {
	return s.q.read(p)
}

// Ack sends an acknowledgement to the connected sender, if any.
func (s *WebSocketServer) Ack() error {
	s.mu.Lock()
	conn := s.current
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageBinary, []byte{ports.AckByte})
}

// Close shuts the server down and drops the current sender.
func (s *WebSocketServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		conn := s.current
		s.current = nil
		s.mu.Unlock()
		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
	})
	return err
}
