package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playgauntlet/backend/internal/match"
)

// GetMatchState returns the shared view of a match. A cache-cold process
// recovers the runtime from persistence on the way.
func GetMatchState(registry *match.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		rt, err := registry.Get(ctx, matchID)
		if err != nil {
			if errors.Is(err, match.ErrMatchNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match unavailable"})
			return
		}

		c.JSON(http.StatusOK, rt.StateView(""))
	}
}
