package api

import (
	"net/http"

	"tambola/auth"
	"tambola/config"
	"tambola/game"
	"tambola/models"
	"tambola/service"

	"github.com/gin-gonic/gin"
)

// RoomController handles room lifecycle requests
type RoomController struct {
	rooms service.RoomService
}

// NewRoomController creates a room controller
func NewRoomController(rooms service.RoomService) *RoomController {
	return &RoomController{rooms: rooms}
}

type createRoomRequest struct {
	Name          string          `json:"name" binding:"required"`
	RoomType      models.RoomType `json:"room_type"`
	Password      string          `json:"password"`
	TicketPrice   float64         `json:"ticket_price"`
	MinPlayers    int             `json:"min_players"`
	MaxPlayers    int             `json:"max_players"`
	AutoCall      bool            `json:"auto_call"`
	PrizePercents string          `json:"prize_percents"` // csv in precedence order, optional
}

type joinRoomRequest struct {
	Password string `json:"password"`
}

// Create opens a new room hosted by the caller
func (ctl *RoomController) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var percents game.PrizePercents
	if req.PrizePercents != "" {
		parsed, err := config.ParsePercents(req.PrizePercents)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		percents = parsed
	}

	room, err := ctl.rooms.CreateRoom(c.Request.Context(), service.CreateRoomParams{
		HostID:        auth.CurrentUser(c).ID,
		Name:          req.Name,
		RoomType:      req.RoomType,
		Password:      req.Password,
		TicketPrice:   req.TicketPrice,
		MinPlayers:    req.MinPlayers,
		MaxPlayers:    req.MaxPlayers,
		AutoCall:      req.AutoCall,
		PrizePercents: percents,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

// List returns joinable rooms; ?include_completed=true adds finished games
func (ctl *RoomController) List(c *gin.Context) {
	includeCompleted := c.Query("include_completed") == "true"

	rooms, err := ctl.rooms.ListRooms(c.Request.Context(), includeCompleted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Get returns one room
func (ctl *RoomController) Get(c *gin.Context) {
	room, err := ctl.rooms.GetRoom(c.Request.Context(), c.Param("roomID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Join adds the caller to the room roster
func (ctl *RoomController) Join(c *gin.Context) {
	var req joinRoomRequest
	// body is optional for public rooms
	_ = c.ShouldBindJSON(&req)

	room, err := ctl.rooms.JoinRoom(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Delete tears down an unstarted room, refunding ticket holders
func (ctl *RoomController) Delete(c *gin.Context) {
	err := ctl.rooms.DeleteRoom(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
