package api

import (
	"net/http"

	"tambola/auth"
	"tambola/ws"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router needs
type Controllers struct {
	Auth   *AuthController
	Rooms  *RoomController
	Games  *GameController
	Wallet *WalletController
	WS     *ws.Handler
}

// SetupRoutes wires all endpoints onto the engine
func SetupRoutes(r *gin.Engine, mw *auth.Middleware, ctl Controllers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/auth/signup", ctl.Auth.Signup)
	api.POST("/auth/login", ctl.Auth.Login)

	authed := api.Group("")
	authed.Use(mw.Handler())

	authed.GET("/auth/profile", ctl.Auth.Profile)

	authed.GET("/rooms", ctl.Rooms.List)
	authed.POST("/rooms", ctl.Rooms.Create)
	authed.GET("/rooms/:roomID", ctl.Rooms.Get)
	authed.POST("/rooms/:roomID/join", ctl.Rooms.Join)
	authed.DELETE("/rooms/:roomID", ctl.Rooms.Delete)

	authed.POST("/rooms/:roomID/tickets", ctl.Games.BuyTickets)
	authed.GET("/rooms/:roomID/tickets", ctl.Games.MyTickets)
	authed.POST("/rooms/:roomID/start", ctl.Games.Start)
	authed.POST("/rooms/:roomID/call", ctl.Games.CallNumber)
	authed.POST("/rooms/:roomID/claim", ctl.Games.Claim)
	authed.GET("/rooms/:roomID/winners", ctl.Games.Winners)
	authed.GET("/rooms/:roomID/leaderboard", ctl.Games.Leaderboard)

	authed.GET("/wallet/balance", ctl.Wallet.Balance)
	authed.POST("/wallet/topup", ctl.Wallet.TopUp)
	authed.GET("/wallet/transactions", ctl.Wallet.Transactions)

	// websocket endpoints authenticate via ?token=
	authed.GET("/ws/lobby", ctl.WS.ServeLobby)
	authed.GET("/ws/rooms/:roomID", ctl.WS.ServeRoom)
}
