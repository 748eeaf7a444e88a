// Package gateway talks to the agent gateway over its WebSocket RPC
// protocol and turns its lists into monitor snapshots.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultCallTimeout = 10 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 90 * time.Second
	pingInterval       = 30 * time.Second
	maxMessageSize     = 4 << 20
)

// ClientName identifies this service in the connect handshake.
const ClientName = "fleetwatch"

// Client is a WebSocket JSON-RPC client for the gateway. It is safe for
// concurrent use; Connect may be called again after the connection drops.
type Client struct {
	url         string
	token       string
	instanceID  string
	dialer      *websocket.Dialer
	callTimeout time.Duration

	connecting chan struct{} // one-slot lock held for a whole Connect

	mu        sync.Mutex
	writeMu   sync.Mutex // serialises conn writes (calls, pings)
	conn      *websocket.Conn
	done      chan struct{}
	connected bool
	nextID    int64
	pending   map[int64]chan frame
	handlers  []func(Notification)
}

// NewClient creates a client for the gateway at url (ws:// or wss://).
func NewClient(url, token string) *Client {
	return &Client{
		url:         url,
		token:       token,
		instanceID:  uuid.NewString(),
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		callTimeout: defaultCallTimeout,
		pending:     make(map[int64]chan frame),
		connecting:  make(chan struct{}, 1),
	}
}

// SetCallTimeout overrides the per-call response timeout.
func (c *Client) SetCallTimeout(d time.Duration) {
	if d > 0 {
		c.callTimeout = d
	}
}

// OnNotification registers a handler for gateway push messages. Handlers
// run on the read goroutine and must not block.
func (c *Client) OnNotification(h func(Notification)) {
	c.mu.Lock()
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
}

// IsConnected reports whether the handshake completed and the socket is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the gateway and performs the connect handshake. It is a
// no-op when already connected. Concurrent callers wait for the handshake in
// flight and then see its outcome.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case c.connecting <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.connecting }()

	if c.IsConnected() {
		return nil
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dial gateway %s: %w", c.url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	if c.conn != nil {
		// Stale socket whose handshake never completed.
		stale := c.conn
		c.mu.Unlock()
		c.teardown(stale)
		c.mu.Lock()
	}
	done := make(chan struct{})
	c.conn = conn
	c.done = done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	go c.pingLoop(conn, done)

	params := map[string]any{
		"auth": map[string]string{"token": c.token},
		"client": map[string]string{
			"id":   c.instanceID,
			"name": ClientName,
		},
	}
	if err := c.Call(ctx, "connect", params, nil); err != nil {
		c.teardown(conn)
		return fmt.Errorf("gateway handshake: %w", err)
	}

	c.mu.Lock()
	ok := c.conn == conn
	if ok {
		c.connected = true
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("gateway handshake: %w", ErrClosed)
	}

	log.Printf("[Gateway] Connected to %s (client %s)", c.url, c.instanceID)
	return nil
}

// Call sends method with params and decodes the result into out (which may
// be nil). Gateway-side failures are returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan frame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(request{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(c.callTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrClosed)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s: timed out after %s", method, c.callTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the connection down. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.teardown(conn)
	return nil
}

// teardown forgets conn if it is still current and fails pending calls.
func (c *Client) teardown(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	close(c.done)
	pending := c.pending
	c.pending = make(map[int64]chan frame)
	c.mu.Unlock()

	conn.Close()
	for _, ch := range pending {
		close(ch)
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.teardown(conn)

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[Gateway] Read error: %v", err)
				} else {
					log.Printf("[Gateway] Disconnected")
				}
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("[Gateway] Invalid frame: %v", err)
			continue
		}

		if f.isNotification() {
			c.dispatch(f.notification())
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		if ok {
			delete(c.pending, f.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- f
		}
	}
}

func (c *Client) dispatch(n Notification) {
	c.mu.Lock()
	handlers := make([]func(Notification), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Gateway] Notification handler panic: %v", r)
				}
			}()
			h(n)
		}()
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
