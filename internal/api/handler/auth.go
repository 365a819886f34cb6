package handler

import (
	"errors"
	"net/http"

	"brewhaus/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges staff email+password for a bearer token. Failures come
// back as one inline alert; the view never learns whether the email exists.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	token, err := h.Auth.SignIn(req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, auth.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sign-in is temporarily unavailable"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// bearerToken pulls the token from the Authorization header, falling back to
// the query string for WebSocket upgrades initiated by browsers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return c.Query("token")
}
