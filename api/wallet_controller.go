package api

import (
	"net/http"
	"strconv"

	"tambola/auth"
	"tambola/config"
	"tambola/service"

	"github.com/gin-gonic/gin"
)

// WalletController exposes the points balance and its audit trail
type WalletController struct {
	ledger service.LedgerService
}

// NewWalletController creates a wallet controller
func NewWalletController(ledger service.LedgerService) *WalletController {
	return &WalletController{ledger: ledger}
}

type topUpRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// Balance returns the caller's current points
func (ctl *WalletController) Balance(c *gin.Context) {
	balance, err := ctl.ledger.GetBalance(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// TopUp credits points to the caller's account. Disabled in production,
// where points only enter through the welcome bonus and prize payouts.
func (ctl *WalletController) TopUp(c *gin.Context) {
	if config.Get().Environment == "production" {
		c.JSON(http.StatusForbidden, gin.H{"error": "top up is disabled"})
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := ctl.ledger.Credit(c.Request.Context(), auth.CurrentUser(c).ID, req.Amount, "wallet top up", nil, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Transactions returns the caller's recent ledger entries
func (ctl *WalletController) Transactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	txns, err := ctl.ledger.GetHistory(c.Request.Context(), auth.CurrentUser(c).ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
