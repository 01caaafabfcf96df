package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/venueops/go-order-tracking/internal/kafka"
	"github.com/venueops/go-order-tracking/internal/live"
	"github.com/venueops/go-order-tracking/internal/redisx"
	"github.com/venueops/go-order-tracking/internal/tracking"
)

// SnapshotSource is what the handlers need from the repository.
type SnapshotSource interface {
	GetTracking(ctx context.Context, idOrNumber string) (*tracking.OrderTracking, error)
	Transition(ctx context.Context, orderID string, to tracking.Status, changedBy, notes string) (*tracking.LiveOrderUpdate, string, string, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Handler struct {
	Source   SnapshotSource
	Redis    *redis.Client // optional snapshot cache
	Hub      *Hub
	Producer Publisher // optional event fan-out to the broker
	Token    string    // required ws token when non-empty
	Service  string

	Upgrader websocket.Upgrader
}

func (h *Handler) Register(r *chi.Mux) {
	r.Get("/orders/public/{idOrNumber}/status", h.getStatus)
	r.Get("/ws/venue/{venueID}", h.wsVenue)
	r.Get("/ws/user/{userID}", h.wsUser)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	idOrNumber := chi.URLParam(r, "idOrNumber")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyTrackingSnapshot, idOrNumber)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(s))
			return
		}
	}

	t, err := h.Source.GetTracking(ctx, idOrNumber)
	if errors.Is(err, tracking.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	b, _ := json.Marshal(t)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLSnapshotCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (h *Handler) wsVenue(w http.ResponseWriter, r *http.Request) {
	h.upgrade(w, r, chi.URLParam(r, "venueID"), "")
}

func (h *Handler) wsUser(w http.ResponseWriter, r *http.Request) {
	h.upgrade(w, r, "", chi.URLParam(r, "userID"))
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request, venueID, userID string) {
	if h.Token != "" && r.URL.Query().Get("token") != h.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already wrote the response
	}
	c := &wsConn{id: uuid.NewString(), ws: ws, venueID: venueID, userID: userID}
	h.Hub.add(c)
	// The request context carries the router's timeout; the connection
	// outlives it once hijacked.
	h.serve(context.Background(), c)
}

// serve is the per-connection read loop. Unknown inbound types are dropped,
// matching the client side.
func (h *Handler) serve(ctx context.Context, c *wsConn) {
	defer func() {
		h.Hub.remove(c)
		_ = c.ws.Close()
	}()
	for {
		var env live.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			return
		}
		switch env.Type {
		case live.TypePing:
			_ = c.write(live.Envelope{Type: live.TypePong, Timestamp: nowStamp()})

		case live.TypeOrderStatusUpdate:
			h.handleStatusUpdate(ctx, c, env)

		case live.TypeTableStatusUpdate:
			var t live.TableStatusUpdate
			if json.Unmarshal(env.Data, &t) != nil || c.venueID == "" {
				continue
			}
			h.Hub.BroadcastVenue(c.venueID, live.Envelope{
				Type: live.TypeTableStatusUpdated, Data: env.Data, Timestamp: nowStamp(),
			})

		case live.TypeGetVenueStatus:
			status, _ := json.Marshal(map[string]any{
				"venue_id":    c.venueID,
				"connections": h.Hub.VenueConnCount(c.venueID),
				"server_time": nowStamp(),
			})
			_ = c.write(live.Envelope{Type: live.TypeVenueStatus, Data: status, Timestamp: nowStamp()})

		case live.TypeGetNotifications:
			// No server-side notification backlog yet; reply empty so the
			// client settles instead of waiting.
			_ = c.write(live.Envelope{Type: live.TypeNotifications, Data: json.RawMessage(`[]`), Timestamp: nowStamp()})

		default:
			// dropped
		}
	}
}

func (h *Handler) handleStatusUpdate(ctx context.Context, c *wsConn, env live.Envelope) {
	var req live.StatusChangeRequest
	if json.Unmarshal(env.Data, &req) != nil {
		return
	}
	update, venueID, orderNumber, err := h.Source.Transition(ctx, req.OrderID, req.Status, req.ChangedBy, req.Notes)
	if err != nil {
		_ = c.write(live.Envelope{Type: live.TypeError, Message: err.Error(), Timestamp: nowStamp()})
		return
	}

	// Readers cache under whichever alias they queried by, so both the
	// canonical id and the order number have to go.
	if h.Redis != nil {
		h.Redis.Del(ctx,
			fmt.Sprintf(redisx.KeyTrackingSnapshot, update.OrderID),
			fmt.Sprintf(redisx.KeyTrackingSnapshot, orderNumber),
		)
	}

	data, _ := json.Marshal(update)
	h.Hub.BroadcastVenue(venueID, live.Envelope{
		Type: live.TypeOrderStatusUpdated, Data: data, Timestamp: nowStamp(),
	})

	if h.Producer != nil {
		ev := Envelope{
			EventID:       uuid.NewString(),
			EventType:     EventOrderStatusChanged,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			CorrelationID: update.OrderID,
			Payload:       kafkax.MustMarshal(OrderStatusChangedPayload{VenueID: venueID, Update: *update}),
		}
		h.Producer.Publish(PartitionKey(update.OrderID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderStatusChanged)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
	log.Printf("order %s -> %s (by %s)", update.OrderID, update.Status, req.ChangedBy)
}

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339) }
