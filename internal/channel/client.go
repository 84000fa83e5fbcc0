package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gotheater/lockstep/internal/protocol"
)

var (
	ErrAlreadyConnected = errors.New("channel already connected")
	ErrClosed           = errors.New("channel closed")
)

type EventType int

const (
	EventOpen EventType = iota
	EventClose
	EventMessage
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	}

	return "unknown"
}

type Event struct {
	Type EventType
	Raw  []byte
	Err  error
}

type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	SendBuffer       int
	EventBuffer      int
}

func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   64 * 1024,
		SendBuffer:       64,
		EventBuffer:      64,
	}
}

// Client is a websocket connection to the relay. Lifecycle changes and inbound frames are
// delivered on Events.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer
	events chan Event

	mu     sync.Mutex
	link   *link
	closed chan struct{}
	once   sync.Once
}

type link struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	// set before conn is closed on purpose so the read pump reports no error
	shutdown bool
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		events: make(chan Event, cfg.EventBuffer),
		closed: make(chan struct{}),
	}
}

func (c *Client) Events() <-chan Event {
	return c.events
}

// Connect dials url and starts the pumps. EventOpen is emitted on success.
func (c *Client) Connect(ctx context.Context, url string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	if c.link != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", url, err)
	}
	conn.SetReadLimit(c.cfg.MaxMessageSize)

	l := &link{
		conn: conn,
		send: make(chan []byte, c.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	if c.link != nil {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	c.link = l
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "channel connected", "url", url)
	c.emit(Event{Type: EventOpen})

	go c.writePump(l)
	go c.readPump(l)

	return nil
}

// Send queues env for writing. When disconnected or the send buffer is full the envelope is dropped.
func (c *Client) Send(env protocol.Envelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil {
		c.logger.Debug("channel not connected, envelope dropped", "type", env.Type)
		return nil
	}

	select {
	case l.send <- raw:
	case <-l.done:
		c.logger.Debug("channel closing, envelope dropped", "type", env.Type)
	default:
		c.logger.Warn("send buffer full, envelope dropped", "type", env.Type)
	}

	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		l := c.link
		c.mu.Unlock()

		if l != nil {
			c.teardown(l, true)
		}
		close(c.closed)
	})

	return nil
}

func (c *Client) teardown(l *link, intentional bool) {
	l.once.Do(func() {
		c.mu.Lock()
		l.shutdown = intentional
		if c.link == l {
			c.link = nil
		}
		c.mu.Unlock()

		close(l.done)
		if intentional {
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			_ = l.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		}
		l.conn.Close()
	})
}

func (c *Client) writePump(l *link) {
	for {
		select {
		case raw := <-l.send:
			l.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := l.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.logger.Debug("failed to write message", "error", err)
				c.teardown(l, false)
				return
			}
		case <-l.done:
			return
		}
	}
}

func (c *Client) readPump(l *link) {
	defer c.emit(Event{Type: EventClose})

	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			intentional := l.shutdown
			c.mu.Unlock()

			c.teardown(l, false)
			if !intentional {
				c.emit(Event{Type: EventError, Err: fmt.Errorf("failed to read message: %w", err)})
			}
			return
		}

		c.emit(Event{Type: EventMessage, Raw: raw})
	}
}

func (c *Client) emit(e Event) {
	select {
	case c.events <- e:
	case <-c.closed:
		c.logger.Debug("channel closed, event dropped", "event", e.Type.String())
	}
}
