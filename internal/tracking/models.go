package tracking

import "time"

// OrderTracking is the customer-facing snapshot of one order, as served by
// GET /orders/public/{idOrNumber}/status. The server owns every field; the
// client only patches Status and EstimatedReadyAt from live deltas.
type OrderTracking struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"order_number"`
	VenueID          string          `json:"venue_id"`
	TableID          string          `json:"table_id,omitempty"`
	TableNumber      string          `json:"table_number,omitempty"`
	Customer         Customer        `json:"customer"`
	Status           Status          `json:"status"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Items            []OrderItem     `json:"items"`
	Pricing          Pricing         `json:"pricing"`
	Timeline         []TimelineEvent `json:"timeline"`
	PlacedAt         time.Time       `json:"placed_at"`
	EstimatedReadyAt *time.Time      `json:"estimated_ready_at,omitempty"`
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// OrderItem is immutable once the order is placed.
type OrderItem struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Veg        bool    `json:"is_veg"`
	Category   string  `json:"category,omitempty"`
}

// Pricing is displayed as returned; the client never recomputes the total.
type Pricing struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
	DeliveryFee float64 `json:"delivery_fee"`
	TotalAmount float64 `json:"total_amount"`
}

// TimelineEvent is one server-authoritative status-change record. At most
// one entry has IsCurrent set; everything before it is IsCompleted.
type TimelineEvent struct {
	Status           Status    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Message          string    `json:"message,omitempty"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
	ActualMinutes    int       `json:"actual_minutes,omitempty"`
	IsCurrent        bool      `json:"is_current"`
	IsCompleted      bool      `json:"is_completed"`
}

// LiveOrderUpdate is the minimal push delta used to patch a previously
// fetched snapshot in place. It never replaces one.
type LiveOrderUpdate struct {
	OrderID          string     `json:"order_id"`
	Status           Status     `json:"status"`
	EstimatedReadyAt *time.Time `json:"estimated_ready_at,omitempty"`
	Message          string     `json:"message,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// Apply patches the snapshot with a live delta. Timeline entries are
// server-authoritative, so none are invented here.
func (t *OrderTracking) Apply(u LiveOrderUpdate) {
	if u.OrderID != "" && u.OrderID != t.ID && u.OrderID != t.OrderNumber {
		return
	}
	if u.Status != "" {
		t.Status = u.Status
	}
	if u.EstimatedReadyAt != nil {
		t.EstimatedReadyAt = u.EstimatedReadyAt
	}
}
