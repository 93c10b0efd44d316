package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playgauntlet/backend/internal/match"
)

var startTime = time.Now()

const version = "1.2.0"

// HealthCheck returns server health status
func HealthCheck(registry *match.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"service":        "gauntlet-api",
			"version":        version,
			"uptime":         time.Since(startTime).String(),
			"active_matches": registry.ActiveCount(),
		})
	}
}
