package api

import (
	"net/http"

	"tambola/auth"
	"tambola/game"
	"tambola/service"

	"github.com/gin-gonic/gin"
)

// GameController handles in-game actions
type GameController struct {
	games service.GameService
}

// NewGameController creates a game controller
func NewGameController(games service.GameService) *GameController {
	return &GameController{games: games}
}

type buyTicketsRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type callNumberRequest struct {
	Number int `json:"number"`
}

type claimRequest struct {
	TicketID  string `json:"ticket_id" binding:"required"`
	PrizeType string `json:"prize_type" binding:"required"`
}

// BuyTickets sells tickets to the caller
func (ctl *GameController) BuyTickets(c *gin.Context) {
	var req buyTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := ctl.games.BuyTickets(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tickets": tickets})
}

// MyTickets returns the caller's tickets in the room
func (ctl *GameController) MyTickets(c *gin.Context) {
	tickets, err := ctl.games.GetTickets(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// Start begins the game (host only)
func (ctl *GameController) Start(c *gin.Context) {
	room, err := ctl.games.StartGame(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// CallNumber calls the next number, random or explicit (host only)
func (ctl *GameController) CallNumber(c *gin.Context) {
	var req callNumberRequest
	_ = c.ShouldBindJSON(&req) // body is optional, zero number means random draw

	result, err := ctl.games.CallNumber(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID, req.Number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Claim adjudicates an explicit prize claim
func (ctl *GameController) Claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	winner, err := ctl.games.ClaimPrize(c.Request.Context(), c.Param("roomID"), auth.CurrentUser(c).ID, req.TicketID, game.PrizeType(req.PrizeType))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

// Winners lists the room's prize claims
func (ctl *GameController) Winners(c *gin.Context) {
	winners, err := ctl.games.GetWinners(c.Request.Context(), c.Param("roomID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

// Leaderboard returns the room's standings
func (ctl *GameController) Leaderboard(c *gin.Context) {
	entries, err := ctl.games.GetLeaderboard(c.Request.Context(), c.Param("roomID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
