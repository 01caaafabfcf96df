package live

import (
	"encoding/json"
	"time"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

// Envelope is the wire frame in both directions on the push channel.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Inbound envelope types.
const (
	TypeOrderCreated       = "order_created"
	TypeOrderStatusUpdated = "order_status_updated"
	TypeTableStatusUpdated = "table_status_updated"
	TypeMenuItemUpdated    = "menu_item_updated"
	TypeSystemNotification = "system_notification"
	TypeVenueStatus        = "venue_status"
	TypeNotifications      = "notifications"
	TypeError              = "error"
	TypePong               = "pong"

	// Aliases the backend still emits: the first carries order_created
	// data, the second becomes a synthesized system notification.
	TypeNewOrderNotification   = "new_order_notification"
	TypeOrderReadyNotification = "order_ready_notification"
)

// Outbound envelope types.
const (
	TypePing              = "ping"
	TypeOrderStatusUpdate = "order_status_update"
	TypeTableStatusUpdate = "table_status_update"
	TypeGetVenueStatus    = "get_venue_status"
	TypeGetNotifications  = "get_notifications"
)

type TableStatusUpdate struct {
	TableID string `json:"table_id"`
	Status  string `json:"status"`
}

type MenuItemUpdate struct {
	MenuItemID string `json:"menu_item_id"`
	Available  bool   `json:"available"`
	Name       string `json:"name,omitempty"`
}

type Notification struct {
	Title  string    `json:"title,omitempty"`
	Body   string    `json:"body"`
	Level  string    `json:"level,omitempty"`
	SentAt time.Time `json:"sent_at,omitempty"`
}

type StatusChangeRequest struct {
	OrderID   string          `json:"order_id"`
	Status    tracking.Status `json:"status"`
	ChangedBy string          `json:"changed_by,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

func mustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
