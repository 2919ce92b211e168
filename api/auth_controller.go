package api

import (
	"net/http"

	"tambola/auth"
	"tambola/service"

	"github.com/gin-gonic/gin"
)

// AuthController handles signup, login and profile
type AuthController struct {
	users  service.UserService
	issuer *auth.TokenIssuer
}

// NewAuthController creates an auth controller
func NewAuthController(users service.UserService, issuer *auth.TokenIssuer) *AuthController {
	return &AuthController{users: users, issuer: issuer}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup registers an account and returns a session token
func (ctl *AuthController) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctl.users.Register(c.Request.Context(), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ctl.issuer.Issue(user.ID, user.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login verifies credentials and returns a session token
func (ctl *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctl.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := ctl.issuer.Issue(user.ID, user.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Profile returns the authenticated account
func (ctl *AuthController) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, auth.CurrentUser(c))
}
