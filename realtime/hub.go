package realtime

import (
	"sync"
	"sync/atomic"
)

// AdminRoom receives a reduced copy of every delivery's tracking updates.
const AdminRoom = "admin-aggregate"

// DeliveryRoom returns the room name scoped to a single delivery.
func DeliveryRoom(deliveryID string) string {
	return "delivery:" + deliveryID
}

// Hub is the in-memory room registry shared by all connections. It keeps the
// room mapping and the reverse client mapping so join, leave and leave-all are
// all O(1) map operations under one lock. Rooms are created lazily on first
// join and vanish when their last member leaves; nothing here is durable.
type Hub struct {
	mu       sync.RWMutex
	byRoom   map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}

	updatesSent    atomic.Int64
	updatesDropped atomic.Int64
}

type HubStats struct {
	ConnectedClients int   `json:"connected_clients"`
	Rooms            int   `json:"rooms"`
	UpdatesSent      int64 `json:"updates_sent"`
	UpdatesDropped   int64 `json:"updates_dropped"`
}

func NewHub() *Hub {
	return &Hub{
		byRoom:   make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
	}
}

// Register adds a connected client with no room memberships.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.byClient[c] == nil {
		h.byClient[c] = make(map[string]struct{})
	}
}

// Unregister removes the client from every room it joined and forgets it.
// Safe to call for an unknown client, so processing a disconnect twice is a
// no-op rather than an error.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.byClient[c] {
		h.removeFromRoom(c, room)
	}
	delete(h.byClient, c)
}

// Join adds the client to a room. Repeated joins are no-ops.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.byRoom[room] == nil {
		h.byRoom[room] = make(map[*Client]struct{})
	}
	h.byRoom[room][c] = struct{}{}

	if h.byClient[c] == nil {
		h.byClient[c] = make(map[string]struct{})
	}
	h.byClient[c][room] = struct{}{}
}

// Leave removes the client from a room. Leaving a room the client is not a
// member of is a no-op.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(c, room)
	delete(h.byClient[c], room)
}

// caller must hold h.mu
func (h *Hub) removeFromRoom(c *Client, room string) {
	members, ok := h.byRoom[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.byRoom, room)
	}
}

// Members returns a snapshot of the current member ids of a room.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.byRoom[room]
	ids := make([]string, 0, len(members))
	for c := range members {
		ids = append(ids, c.id)
	}
	return ids
}

// Rooms returns the room names the client currently belongs to.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.byClient[c]))
	for room := range h.byClient[c] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Broadcast pushes a message to every current member of a room. Delivery is
// best effort per member: a client whose send buffer is full misses the
// message instead of blocking the caller or the other members.
func (h *Hub) Broadcast(room string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.byRoom[room] {
		select {
		case c.send <- message:
			h.updatesSent.Add(1)
		default:
			h.updatesDropped.Add(1)
		}
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HubStats{
		ConnectedClients: len(h.byClient),
		Rooms:            len(h.byRoom),
		UpdatesSent:      h.updatesSent.Load(),
		UpdatesDropped:   h.updatesDropped.Load(),
	}
}
