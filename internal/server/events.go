package server

import (
	"encoding/json"
	"time"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

const (
	TopicOrderEvents = "venue.order.events"
)

// Envelope is the broker-side event frame. Not to be confused with the
// websocket live.Envelope: this one carries provenance for replay/dedup.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	Order tracking.OrderTracking `json:"order"`
}

type OrderStatusChangedPayload struct {
	VenueID string                   `json:"venue_id"`
	Update  tracking.LiveOrderUpdate `json:"update"`
}

// PartitionKey keeps all events of one order on one partition, preserving
// their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
