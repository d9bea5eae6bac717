package transport

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/bft-labs/pillship/internal/ports"
)

// WebSocketClient writes a byte stream to a WebSocketServer, one binary
// message per Write, and counts the acknowledgements it receives.
type WebSocketClient struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	acks         atomic.Int64
	done         chan struct{}
}

// DialWebSocket connects to url, e.g. ws://host:7070/stream.
func DialWebSocket(ctx context.Context, url string) (*WebSocketClient, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &WebSocketClient{
		conn:         conn,
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}
	go c.readAcks()
	return c, nil
}

func (c *WebSocketClient) readAcks() {
	defer close(c.done)
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			return
		}
		for _, b := range data {
			if b == ports.AckByte {
				c.acks.Add(1)
			}
		}
	}
}

// Write sends p as one binary message.
func (c *WebSocketClient) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageBinary, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Acks returns the number of acknowledgements received so far.
func (c *WebSocketClient) Acks() int64 {
	return c.acks.Load()
}

// Close closes the connection normally.
func (c *WebSocketClient) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	<-c.done
	return err
}
