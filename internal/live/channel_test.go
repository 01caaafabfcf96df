package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestChannelDispatchAndIdempotentConnect(t *testing.T) {
	var dials int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dials, 1)
		if r.URL.Path != "/ws/venue/v1" || r.URL.Query().Get("token") != "tok" {
			t.Errorf("unexpected target: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		data, _ := json.Marshal(tracking.LiveOrderUpdate{OrderID: "9a1f", Status: tracking.StatusReady})
		_ = ws.WriteJSON(Envelope{Type: "bogus_type"}) // must be dropped
		_ = ws.WriteJSON(Envelope{Type: TypeOrderStatusUpdated, Data: data})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch := NewChannel(Config{BaseURL: wsURL(srv)})
	got := make(chan tracking.LiveOrderUpdate, 1)
	ch.Events().OnOrderStatus(func(u tracking.LiveOrderUpdate) { got <- u })

	if err := ch.ConnectVenue(context.Background(), "v1", "tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	select {
	case u := <-got:
		if u.OrderID != "9a1f" || u.Status != tracking.StatusReady {
			t.Errorf("update = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no order status update received")
	}

	if err := ch.ConnectVenue(context.Background(), "v1", "tok"); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Errorf("dials = %d, want 1 (connect must be idempotent)", n)
	}
}

func TestChannelHeartbeat(t *testing.T) {
	pings := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			var env Envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}
			if env.Type == TypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
				_ = ws.WriteJSON(Envelope{Type: TypePong})
			}
		}
	}))
	defer srv.Close()

	ch := NewChannel(Config{BaseURL: wsURL(srv), HeartbeatInterval: 20 * time.Millisecond})
	if err := ch.ConnectVenue(context.Background(), "v1", ""); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping seen")
	}
}

func TestDisconnectSendsNormalClosure(t *testing.T) {
	var dials int32
	codes := make(chan int, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dials, 1)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					codes <- ce.Code
				}
				return
			}
		}
	}))
	defer srv.Close()

	ch := NewChannel(Config{BaseURL: wsURL(srv), ReconnectBase: 10 * time.Millisecond})
	if err := ch.ConnectUser(context.Background(), "u7", "tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ch.Disconnect()

	select {
	case code := <-codes:
		if code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d, want 1000", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a close frame")
	}

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Errorf("dials = %d after deliberate disconnect, want 1", n)
	}
	if ch.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", ch.State())
	}
}

func TestDisconnectDuringDialDropsSocket(t *testing.T) {
	dialStarted := make(chan struct{})
	release := make(chan struct{})
	readErr := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(dialStarted)
		<-release
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = ws.ReadMessage()
		readErr <- err
	}))
	defer srv.Close()

	// short heartbeat: an adopted socket would ping the server well inside
	// the read window
	ch := NewChannel(Config{BaseURL: wsURL(srv), HeartbeatInterval: 20 * time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- ch.ConnectVenue(context.Background(), "v1", "tok") }()

	<-dialStarted
	ch.Disconnect()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("connect: %v", err)
	}
	select {
	case err := <-readErr:
		if err == nil {
			t.Fatal("server received a frame: connection survived a Disconnect issued mid-dial")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server read never finished")
	}
	if s := ch.State(); s != StateDisconnected {
		t.Errorf("state = %d, want disconnected", s)
	}
}

func TestReconnectAfterAbnormalClose(t *testing.T) {
	var dials int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&dials, 1)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n <= 3 {
			_ = ws.Close() // no close frame: abnormal from the client's side
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch := NewChannel(Config{
		BaseURL:              wsURL(srv),
		ReconnectBase:        20 * time.Millisecond,
		MaxReconnectAttempts: 5,
	})
	errs := make(chan error, 16)
	ch.Events().OnError(func(err error) { errs <- err })

	if err := ch.ConnectVenue(context.Background(), "v1", ""); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	deadline := time.After(3 * time.Second)
	for atomic.LoadInt32(&dials) < 4 {
		select {
		case <-deadline:
			t.Fatalf("dials = %d, want 4 (1 original + 3 reconnects)", atomic.LoadInt32(&dials))
		case <-time.After(10 * time.Millisecond):
		}
	}

	for {
		select {
		case err := <-errs:
			if errors.Is(err, ErrReconnectExhausted) {
				t.Fatal("channel exhausted its retries; it should still be retry-eligible")
			}
		default:
			return
		}
	}
}

func TestReconnectExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := wsURL(srv)
	srv.Close()

	ch := NewChannel(Config{
		BaseURL:              target,
		ReconnectBase:        5 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})
	errs := make(chan error, 16)
	ch.Events().OnError(func(err error) { errs <- err })

	if err := ch.ConnectVenue(context.Background(), "v1", ""); err == nil {
		t.Fatal("dial to a dead server should fail")
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case err := <-errs:
			if errors.Is(err, ErrReconnectExhausted) {
				return
			}
		case <-deadline:
			t.Fatal("never saw the terminal reconnect error")
		}
	}
}

func TestOutboundIsNoOpWhenDisconnected(t *testing.T) {
	ch := NewChannel(Config{BaseURL: "ws://127.0.0.1:0"})
	ch.UpdateOrderStatus("o1", tracking.StatusReady, "")
	ch.UpdateTableStatus("t1", "occupied")
	ch.RequestVenueStatus()
	ch.RequestNotifications()
	if ch.State() != StateDisconnected {
		t.Errorf("state = %v", ch.State())
	}
}

func TestOrderReadyAliasBecomesNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.WriteJSON(Envelope{Type: TypeOrderReadyNotification, Message: "ORD-1001 is ready"})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch := NewChannel(Config{BaseURL: wsURL(srv)})
	got := make(chan Notification, 1)
	ch.Events().OnNotification(func(n Notification) { got <- n })

	if err := ch.ConnectVenue(context.Background(), "v1", ""); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer ch.Disconnect()

	select {
	case n := <-got:
		if n.Title != "Order ready" || n.Body != "ORD-1001 is ready" {
			t.Errorf("notification = %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}
}
