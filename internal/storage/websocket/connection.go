package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citadel-raid/raidnav/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	closeTimeout = time.Second
)

// ErrClosed is returned when waiting on a connection that was shut down.
var ErrClosed = errors.New("websocket connection closed")

// connection owns one WebSocket at a time. A single write goroutine drains
// sendCh; after a failure the socket is redialled with exponential backoff.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}

	url          string
	header       http.Header
	maxReconnect int
	backoff      time.Duration

	// start_run is replayed first after a reconnect
	startMsg []byte

	dropped atomic.Uint64
	logger  *slog.Logger
}

func newConnection(cfg Config, logger *slog.Logger) *connection {
	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	return &connection{
		sendCh:       make(chan []byte, sendChSize),
		ackCh:        make(chan streaming.AckMessage, ackChSize),
		done:         make(chan struct{}),
		url:          cfg.URL,
		header:       header,
		maxReconnect: cfg.MaxReconnect,
		backoff:      cfg.ReconnectBackoff,
		logger:       logger,
	}
}

// dial connects and starts the read and write loops.
func (c *connection) dial() error {
	conn, _, err := ws.DefaultDialer.Dial(c.url, c.header)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	c.attach(conn)
	return nil
}

func (c *connection) attach(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
}

// writeLoop drains sendCh into conn until conn fails or the connection closes.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := write(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.dropped.Add(1)
				go c.reconnect(conn)
				return
			}
		}
	}
}

// readLoop routes acks from conn to ackCh.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("WebSocket read error", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces a failed socket. Only the goroutine that still sees
// failed as current redials; the other loop of the same socket returns.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()
	_ = failed.Close()

	backoff := c.backoff
	for attempt := 1; attempt <= c.maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt)
		conn, _, err := ws.DefaultDialer.Dial(c.url, c.header)
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		start := c.startMsg
		c.mu.Unlock()
		if start != nil {
			if err := write(conn, start); err != nil {
				c.logger.Warn("Failed to replay start_run after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.mu.Unlock()

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", c.maxReconnect)
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// setStart caches the start_run message for replay; nil clears it.
func (c *connection) setStart(data []byte) {
	c.mu.Lock()
	c.startMsg = data
	c.mu.Unlock()
}

// send queues data for the write loop. It never blocks; a full queue drops.
func (c *connection) send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		c.dropped.Add(1)
		c.logger.Warn("WebSocket send channel full, dropping message")
		return false
	}
}

// sendAndWait queues data and blocks until the server acks ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	if !c.send(data) {
		return fmt.Errorf("send queue full, %q not sent", ackFor)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("waiting for ack of %q: %w", ackFor, ErrClosed)
		}
	}
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(closeTimeout))
	return conn.Close()
}
