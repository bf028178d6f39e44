package ws

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

const sseEventName = "insights"

// SSEClient streams Server-Sent Events over an HTTP response writer.
type SSEClient struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	log     *slog.Logger
	closed  bool
	seq     uint64
}

// NewSSEClient builds an SSE client instance.
func NewSSEClient(writer io.Writer, flusher http.Flusher, logger *slog.Logger) *SSEClient {
	return &SSEClient{writer: writer, flusher: flusher, log: logger}
}

// Send emits a numbered insights event to the stream.
func (c *SSEClient) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	c.seq++
	if _, err := fmt.Fprintf(c.writer, "id: %d\nevent: %s\ndata: %s\n\n", c.seq, sseEventName, payload); err != nil {
		c.closed = true
		c.log.Warn("sse send failed", "error", err)
		return err
	}
	c.flusher.Flush()
	return nil
}

// Heartbeat emits a comment frame to keep the connection alive.
func (c *SSEClient) Heartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	if _, err := fmt.Fprint(c.writer, ": ping\n\n"); err != nil {
		c.closed = true
		c.log.Warn("sse heartbeat failed", "error", err)
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close marks the stream as closed; later sends report io.EOF.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
