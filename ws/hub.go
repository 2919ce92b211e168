package ws

import (
	"context"
	"encoding/json"
	"sync"

	"tambola/events"

	log "github.com/sirupsen/logrus"
)

// Message is the wire envelope for everything pushed to clients
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub routes game events to connected clients. Clients in a room receive
// that room's events; lobby-wide events go to everyone; points changes go
// only to the affected user.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	byUser  map[string]map[*Client]bool
	clients map[*Client]bool
}

// NewHub creates a hub and subscribes it to the event bus
func NewHub(bus *events.Bus) *Hub {
	h := &Hub{
		rooms:   make(map[string]map[*Client]bool),
		byUser:  make(map[string]map[*Client]bool),
		clients: make(map[*Client]bool),
	}
	bus.SubscribeAll(h.handleEvent)
	return h
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	if c.roomID != "" {
		if h.rooms[c.roomID] == nil {
			h.rooms[c.roomID] = make(map[*Client]bool)
		}
		h.rooms[c.roomID][c] = true
	}
	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = make(map[*Client]bool)
	}
	h.byUser[c.userID][c] = true

	log.WithFields(log.Fields{
		"userID": c.userID,
		"roomID": c.roomID,
	}).Debug("Websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if set := h.rooms[c.roomID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	if set := h.byUser[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	close(c.send)
}

// handleEvent bridges the event bus into websocket deliveries
func (h *Hub) handleEvent(ctx context.Context, event events.Event) {
	payload, err := json.Marshal(Message{Type: string(event.Type()), Data: event})
	if err != nil {
		log.WithError(err).Error("Failed to marshal event")
		return
	}

	if pc, ok := event.(events.PointsChangedEvent); ok {
		h.sendToUser(pc.UserID, payload)
		return
	}

	if room := event.Room(); room != "" {
		h.broadcastToRoom(room, payload)
		return
	}
	h.broadcastAll(payload)
}

func (h *Hub) broadcastToRoom(roomID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.trySend(payload)
	}
}

func (h *Hub) broadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.trySend(payload)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		c.trySend(payload)
	}
}

// RoomClientCount reports connected clients for a room
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
