package ws

import (
	"encoding/json"
	"errors"
	"net/http"

	"tambola/models"
	"tambola/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated requests into hub-managed connections
type Handler struct {
	hub   *Hub
	rooms service.RoomService
	games service.GameService
}

// NewHandler creates a websocket handler
func NewHandler(hub *Hub, rooms service.RoomService, games service.GameService) *Handler {
	return &Handler{hub: hub, rooms: rooms, games: games}
}

// syncState is the snapshot sent on connect so a reconnecting client
// converges without replaying missed events
type syncState struct {
	Room    *models.Room     `json:"room,omitempty"`
	Tickets []*models.Ticket `json:"tickets,omitempty"`
	Winners []*models.Winner `json:"winners,omitempty"`
}

// ServeLobby handles lobby connections, which receive room list updates
func (h *Handler) ServeLobby(c *gin.Context) {
	h.serve(c, "")
}

// ServeRoom handles in-room connections
func (h *Handler) ServeRoom(c *gin.Context) {
	h.serve(c, c.Param("roomID"))
}

func (h *Handler) serve(c *gin.Context, roomID string) {
	user := c.MustGet("user").(*models.User)

	var snapshot *syncState
	if roomID != "" {
		room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
			}
			return
		}
		tickets, err := h.games.GetTickets(c.Request.Context(), roomID, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tickets"})
			return
		}
		// Free rooms hand each joining player a starter ticket
		if len(tickets) == 0 && room.TicketPrice == 0 && room.Status == models.RoomWaiting && room.HasPlayer(user.ID) {
			granted, err := h.games.BuyTickets(c.Request.Context(), roomID, user.ID, 1)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"room_id": roomID,
					"user_id": user.ID,
				}).Warn("Failed to grant starter ticket")
			} else {
				tickets = granted
			}
		}
		winners, err := h.games.GetWinners(c.Request.Context(), roomID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load winners"})
			return
		}
		snapshot = &syncState{Room: room, Tickets: tickets, Winners: winners}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: user.ID,
		roomID: roomID,
	}
	h.hub.register(client)

	if snapshot != nil {
		if payload, err := json.Marshal(Message{Type: "sync", Data: snapshot}); err == nil {
			client.trySend(payload)
		}
	}

	go client.writePump()
	go client.readPump()
}
