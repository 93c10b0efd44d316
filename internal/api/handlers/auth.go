package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playgauntlet/backend/internal/auth"
	"github.com/playgauntlet/backend/internal/config"
)

type devTokenRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// DevToken mints a signed websocket token for local development. Not routed
// in production; real deployments get tokens from the identity service.
func DevToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req devTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}

		token, err := auth.Sign(cfg.JWTSecret, req.UserID, req.DisplayName, 24*time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
