// Package wsconn provides a WebSocket client with automatic reconnection.
package wsconn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// ErrMaxReconnects is returned when the reconnect budget is exhausted.
var ErrMaxReconnects = errors.New("wsconn: max reconnect attempts reached")

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
	}
}

// Client is a reconnecting WebSocket client. Received messages are delivered
// on the Messages channel; the channel is closed when the client stops.
type Client struct {
	config Config

	conn   *websocket.Conn
	connMu sync.RWMutex

	state   State
	stateMu sync.RWMutex

	messages chan []byte
	done     chan struct{}
	closed   sync.Once

	onStateChange func(State)
}

// New creates a new WebSocket client.
func New(config Config) *Client {
	return &Client{
		config:   config,
		state:    StateDisconnected,
		messages: make(chan []byte, 100),
		done:     make(chan struct{}),
	}
}

// OnStateChange registers a callback invoked on every state transition.
// Must be called before Connect.
func (c *Client) OnStateChange(fn func(State)) {
	c.onStateChange = fn
}

// Connect establishes the connection and starts the read loop. The read loop
// reconnects with exponential backoff until Close is called, the context is
// cancelled, or the reconnect budget is exhausted.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	c.setState(StateConnected)

	go c.run(ctx)

	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}
	// Feed payloads can exceed the 32 KiB default
	conn.SetReadLimit(1 << 20)

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	return nil
}

func (c *Client) run(ctx context.Context) {
	defer func() {
		c.closeConn(websocket.StatusNormalClosure, "client stopped")
		c.setState(StateDisconnected)
		close(c.messages)
	}()

	reconnects := 0
	for {
		err := c.readLoop(ctx)
		if err == nil || ctx.Err() != nil || c.isDone() {
			return
		}

		// Connection dropped, try to reconnect
		c.setState(StateReconnecting)
		backoff := c.config.InitialBackoff
		for {
			if c.config.MaxReconnects > 0 && reconnects >= c.config.MaxReconnects {
				return
			}
			reconnects++

			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(backoff):
			}

			if err := c.dial(ctx); err == nil {
				break
			}

			backoff *= 2
			if backoff > c.config.MaxBackoff {
				backoff = c.config.MaxBackoff
			}
		}
		c.setState(StateConnected)
		reconnects = 0
	}
}

// readLoop reads until the connection fails or the client stops. A nil return
// means the client is shutting down.
func (c *Client) readLoop(ctx context.Context) error {
	pingTicker := time.NewTicker(c.config.PingInterval)
	defer pingTicker.Stop()

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := c.currentConn().Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case c.messages <- data:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case err := <-readErr:
			return err
		case <-pingTicker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.currentConn().Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// Send sends a text message through the WebSocket.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrMaxReconnects
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// Messages returns the channel for receiving messages.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Close gracefully closes the WebSocket connection.
func (c *Client) Close() error {
	c.closed.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Client) closeConn(code websocket.StatusCode, reason string) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(code, reason)
		c.conn = nil
	}
}

func (c *Client) setState(state State) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
	if c.onStateChange != nil {
		c.onStateChange(state)
	}
}

func (c *Client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
