package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

// ErrReconnectExhausted is delivered on the error subscription when the
// retry ceiling is hit; the channel stops retrying after it.
var ErrReconnectExhausted = errors.New("live: reconnect attempts exhausted")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

type Config struct {
	// BaseURL uses the ws/wss scheme, e.g. "wss://api.example.com".
	BaseURL string

	HeartbeatInterval    time.Duration // default 30s
	ReconnectBase        time.Duration // default 3s; delay grows linearly per attempt
	MaxReconnectAttempts int           // default 5
	Dialer               *websocket.Dialer
}

// Channel is one push connection per venue or per user. Construct with
// NewChannel and tear down with Disconnect before the owner goes away;
// otherwise the reconnect loop outlives it.
type Channel struct {
	cfg    Config
	events Emitter

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	target   string // active subscription URL, reused by the retry path
	attempts int
	noRetry  bool
	hbStop   chan struct{}

	writeMu sync.Mutex
}

func NewChannel(cfg Config) *Channel {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = 3 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Channel{cfg: cfg}
}

// Events exposes the typed subscription surface.
func (c *Channel) Events() *Emitter { return &c.events }

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectVenue opens the venue-wide subscription. A no-op while already
// connecting or connected.
func (c *Channel) ConnectVenue(ctx context.Context, venueID, token string) error {
	return c.connect(ctx, fmt.Sprintf("%s/ws/venue/%s?token=%s",
		c.cfg.BaseURL, url.PathEscape(venueID), url.QueryEscape(token)))
}

// ConnectUser opens the per-user subscription. A no-op while already
// connecting or connected.
func (c *Channel) ConnectUser(ctx context.Context, userID, token string) error {
	return c.connect(ctx, fmt.Sprintf("%s/ws/user/%s?token=%s",
		c.cfg.BaseURL, url.PathEscape(userID), url.QueryEscape(token)))
}

func (c *Channel) connect(ctx context.Context, target string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.target = target
	c.noRetry = false
	c.mu.Unlock()

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.scheduleReconnect()
		return fmt.Errorf("live dial: %w", err)
	}

	c.mu.Lock()
	if c.noRetry {
		// Disconnect arrived while the dial was in flight; the socket is
		// dropped instead of adopted.
		c.state = StateDisconnected
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	stop := make(chan struct{})
	c.hbStop = stop
	c.mu.Unlock()

	go c.heartbeat(stop)
	go c.readLoop(conn)
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			c.stopHeartbeatLocked()
			if c.conn == conn {
				c.conn = nil
			}
			deliberate := c.noRetry || c.state == StateClosing
			c.state = StateDisconnected
			c.mu.Unlock()

			if deliberate || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			c.events.errs.emit(fmt.Errorf("live: connection lost: %w", err))
			c.scheduleReconnect()
			return
		}
		c.dispatch(env)
	}
}

// scheduleReconnect retries the original venue/user target after a linearly
// growing delay, up to the attempt ceiling.
func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	if c.noRetry || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.events.errs.emit(ErrReconnectExhausted)
		return
	}
	c.attempts++
	delay := time.Duration(c.attempts) * c.cfg.ReconnectBase
	target := c.target
	c.mu.Unlock()

	time.AfterFunc(delay, func() {
		c.mu.Lock()
		stopped := c.noRetry
		c.mu.Unlock()
		if stopped {
			return // Disconnect won while the timer was pending
		}
		_ = c.connect(context.Background(), target)
	})
}

func (c *Channel) heartbeat(stop chan struct{}) {
	t := time.NewTicker(c.cfg.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.send(Envelope{Type: TypePing, Timestamp: time.Now().UTC().Format(time.RFC3339)})
		}
	}
}

func (c *Channel) stopHeartbeatLocked() {
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

// send writes an envelope if the channel is open; otherwise it is a silent
// no-op. Nothing is queued for later.
func (c *Channel) send(env Envelope) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateConnected && conn != nil
	c.mu.Unlock()
	if !open {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.WriteJSON(env)
}

// UpdateOrderStatus asks the backend to transition an order. No-op unless
// connected.
func (c *Channel) UpdateOrderStatus(orderID string, status tracking.Status, notes string) {
	c.send(Envelope{
		Type:      TypeOrderStatusUpdate,
		Data:      mustRaw(StatusChangeRequest{OrderID: orderID, Status: status, Notes: notes}),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// UpdateTableStatus asks the backend to change a table's state. No-op
// unless connected.
func (c *Channel) UpdateTableStatus(tableID, status string) {
	c.send(Envelope{
		Type:      TypeTableStatusUpdate,
		Data:      mustRaw(TableStatusUpdate{TableID: tableID, Status: status}),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RequestVenueStatus asks for a venue_status reply. No-op unless connected.
func (c *Channel) RequestVenueStatus() {
	c.send(Envelope{Type: TypeGetVenueStatus})
}

// RequestNotifications asks for pending notifications. No-op unless
// connected.
func (c *Channel) RequestNotifications() {
	c.send(Envelope{Type: TypeGetNotifications})
}

// Disconnect is the deliberate teardown: no reconnect fires after it.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.noRetry = true
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	if conn == nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = conn.Close()

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
}

func (c *Channel) dispatch(env Envelope) {
	switch env.Type {
	case TypePong:
		// No pong-deadline tracking: a dead connection is only noticed
		// through the transport's own close error.

	case TypeOrderStatusUpdated:
		var u tracking.LiveOrderUpdate
		if json.Unmarshal(env.Data, &u) == nil {
			c.events.orderStatus.emit(u)
		}

	case TypeOrderCreated, TypeNewOrderNotification:
		var t tracking.OrderTracking
		if json.Unmarshal(env.Data, &t) == nil {
			c.events.orderCreated.emit(t)
		}

	case TypeTableStatusUpdated:
		var t TableStatusUpdate
		if json.Unmarshal(env.Data, &t) == nil {
			c.events.tableStatus.emit(t)
		}

	case TypeMenuItemUpdated:
		var m MenuItemUpdate
		if json.Unmarshal(env.Data, &m) == nil {
			c.events.menuItem.emit(m)
		}

	case TypeSystemNotification:
		var n Notification
		if len(env.Data) == 0 || json.Unmarshal(env.Data, &n) != nil {
			n = Notification{Body: env.Message}
		}
		c.events.notifications.emit(n)

	case TypeOrderReadyNotification:
		body := env.Message
		if body == "" {
			body = "Your order is ready"
		}
		c.events.notifications.emit(Notification{Title: "Order ready", Body: body})

	case TypeVenueStatus:
		c.events.venueStatus.emit(env.Data)

	case TypeNotifications:
		var ns []Notification
		if json.Unmarshal(env.Data, &ns) == nil {
			for _, n := range ns {
				c.events.notifications.emit(n)
			}
		}

	case TypeError:
		c.events.errs.emit(errors.New(env.Message))

	default:
		// unknown types are dropped
	}
}
