// ABOUTME: WebSocket client for the Sprut.hub JSON-RPC control plane.
// ABOUTME: Owns the socket, the receive loop, and the invoke entry points.

package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultCallTimeout = 30 * time.Second
	DefaultDialTimeout = 10 * time.Second
)

// Config holds the connection settings for a hub client.
type Config struct {
	// URL is the hub WebSocket endpoint (e.g. wss://web.spruthub.ru/spruthub).
	URL      string
	Email    string
	Password string
	// Serial identifies the hub device and is attached to every frame.
	Serial string

	// CallTimeout bounds each request round trip.
	CallTimeout time.Duration
	// DialTimeout bounds the WebSocket handshake.
	DialTimeout time.Duration

	Logger *slog.Logger
}

// Client is a single session against the hub. It owns the socket exclusively;
// a dropped connection is not reconnected — construct a fresh Client instead.
type Client struct {
	cfg    Config
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	pending *pendingTable

	mu        sync.Mutex
	token     *string
	connected bool

	ready    chan struct{} // closed once authentication succeeds
	lost     chan struct{} // closed when the receive loop exits
	loopDone chan struct{}

	closeOnce sync.Once
}

// New creates an unconnected client. Call Connect before invoking methods.
func New(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		logger:   logger.With("component", "hub"),
		pending:  newPendingTable(),
		ready:    make(chan struct{}),
		lost:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Connect dials the hub, starts the receive loop, and runs the
// challenge-response authentication. On any authentication failure the
// connection is torn down and no token is stored.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	alreadyDialed := c.conn != nil
	c.mu.Unlock()
	if alreadyDialed {
		return errors.New("hub: already connected")
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("hub: dialing %s: %w", c.cfg.URL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("connected to hub", "url", c.cfg.URL)

	go c.readLoop()

	if err := c.authenticate(ctx); err != nil {
		_ = c.Close()
		return err
	}

	close(c.ready)
	c.logger.Info("hub session authenticated", "serial", c.cfg.Serial)
	return nil
}

// IsConnected reports whether the socket is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears down the connection and waits for the receive loop to exit.
// Calling Close more than once is a no-op.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
		<-c.loopDone
		c.logger.Info("disconnected from hub")
	})
	return nil
}

// Invoke calls a dotted hub method with a flat parameter map. The params are
// wrapped into the hub's nested dispatch shape, so "room.list" with {} sends
// {"room":{"list":{}}}. Blocks until the session is authenticated.
func (c *Client) Invoke(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	return c.CallRaw(ctx, nestParams(method, params))
}

// CallRaw sends an already-nested params payload. Used by callers that build
// the wire shape themselves, such as characteristic updates and scenario runs.
func (c *Client) CallRaw(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("hub: decoding result: %w", err)
	}
	return result, nil
}

// waitReady blocks until authentication has completed. Calls issued while the
// session is still authenticating queue here rather than fail.
func (c *Client) waitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.lost:
		return ErrConnectionLost
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call sends one frame and awaits its correlated reply. Requests are sent in
// caller order but may complete out of order; correctness rests entirely on
// id correlation.
func (c *Client) call(ctx context.Context, params map[string]any) (json.RawMessage, error) {
	id := c.pending.next()
	ch := c.pending.register(id)

	frame := &request{
		JSONRPC: protocolVersion,
		Params:  params,
		ID:      id,
		Token:   c.currentToken(),
		Serial:  c.cfg.Serial,
	}
	if err := c.send(frame); err != nil {
		c.pending.drop(id)
		return nil, err
	}

	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-timer.C:
		c.pending.drop(id)
		return nil, fmt.Errorf("hub: request %d: %w", id, ErrRequestTimeout)
	case <-ctx.Done():
		c.pending.drop(id)
		return nil, ctx.Err()
	}
}

// send serializes and writes one frame. The write mutex keeps frames atomic
// on the wire.
func (c *Client) send(frame *request) error {
	c.mu.Lock()
	conn, open := c.conn, c.connected
	c.mu.Unlock()
	if conn == nil || !open {
		select {
		case <-c.lost:
			return ErrConnectionLost
		default:
			return ErrNotConnected
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

// readLoop is the single reader for the session. It demultiplexes replies to
// the pending table and discards everything else as notifications. Malformed
// payloads are logged and skipped, never fatal.
func (c *Client) readLoop() {
	defer close(c.loopDone)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}

		var r reply
		if err := json.Unmarshal(data, &r); err != nil {
			c.logger.Warn("discarding malformed frame", "error", err)
			continue
		}

		if r.ID == nil {
			c.logger.Debug("hub notification", "frame", string(data))
			continue
		}

		id := *r.ID
		if len(r.Error) > 0 && string(r.Error) != "null" {
			if !c.pending.reject(id, &RemoteError{Payload: r.Error}) {
				c.logger.Debug("reply for unknown request id", "id", id)
			}
			continue
		}
		if !c.pending.resolve(id, r.Result) {
			c.logger.Debug("reply for unknown request id", "id", id)
		}
	}
}

// teardown marks the session dead, clears the token, and fails every
// outstanding request. Runs exactly once, from the receive loop's exit path.
func (c *Client) teardown(err error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.token = nil
	c.mu.Unlock()

	if wasConnected {
		c.logger.Warn("hub connection closed", "error", err)
	}
	close(c.lost)
	c.pending.failAll(ErrConnectionLost)
}

func (c *Client) currentToken() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = &token
	c.mu.Unlock()
}

// Token returns the session token, or "" before authentication completes.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return ""
	}
	return *c.token
}
