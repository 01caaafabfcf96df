package server

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/venueops/go-order-tracking/internal/live"
)

// Hub is the registry of open push connections, keyed by venue and by
// user. Writes to one socket are serialized per connection; a failed write
// drops the connection from the registry.
type Hub struct {
	mu     sync.RWMutex
	venues map[string]map[*wsConn]struct{}
	users  map[string]map[*wsConn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		venues: make(map[string]map[*wsConn]struct{}),
		users:  make(map[string]map[*wsConn]struct{}),
	}
}

type wsConn struct {
	id      string
	ws      *websocket.Conn
	venueID string // empty for user connections
	userID  string // empty for venue connections

	writeMu sync.Mutex
}

func (c *wsConn) write(env live.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

func (h *Hub) add(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.venueID != "" {
		if h.venues[c.venueID] == nil {
			h.venues[c.venueID] = make(map[*wsConn]struct{})
		}
		h.venues[c.venueID][c] = struct{}{}
	}
	if c.userID != "" {
		if h.users[c.userID] == nil {
			h.users[c.userID] = make(map[*wsConn]struct{})
		}
		h.users[c.userID][c] = struct{}{}
	}
}

func (h *Hub) remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.venues[c.venueID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.venues, c.venueID)
		}
	}
	if set := h.users[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
}

func (h *Hub) snapshotVenue(venueID string) []*wsConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*wsConn, 0, len(h.venues[venueID]))
	for c := range h.venues[venueID] {
		out = append(out, c)
	}
	return out
}

func (h *Hub) snapshotUser(userID string) []*wsConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*wsConn, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		out = append(out, c)
	}
	return out
}

// BroadcastVenue pushes one envelope to every connection watching the
// venue.
func (h *Hub) BroadcastVenue(venueID string, env live.Envelope) {
	for _, c := range h.snapshotVenue(venueID) {
		if err := c.write(env); err != nil {
			h.remove(c)
			_ = c.ws.Close()
		}
	}
}

// BroadcastUser pushes one envelope to every connection of the user.
func (h *Hub) BroadcastUser(userID string, env live.Envelope) {
	for _, c := range h.snapshotUser(userID) {
		if err := c.write(env); err != nil {
			h.remove(c)
			_ = c.ws.Close()
		}
	}
}

// VenueConnCount reports the open connections for a venue, served as part
// of get_venue_status replies.
func (h *Hub) VenueConnCount(venueID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.venues[venueID])
}
