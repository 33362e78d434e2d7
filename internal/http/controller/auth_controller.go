package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/auth"
)

// Authenticator issues admin sessions.
type Authenticator interface {
	Login(password string) (token string, expiresAt time.Time, err error)
}

// AuthController handles the admin login.
type AuthController struct {
	auth Authenticator
}

// NewAuthController creates a new AuthController.
func NewAuthController(a Authenticator) *AuthController {
	return &AuthController{auth: a}
}

// LoginRequest represents the request body for the admin login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login handles the HTTP POST request that exchanges the admin password for a session token.
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	token, expiresAt, err := ac.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			slog.Warn("admin login rejected", slog.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
