package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playgauntlet/backend/internal/api/handlers"
	"github.com/playgauntlet/backend/internal/config"
	"github.com/playgauntlet/backend/internal/match"
	"github.com/playgauntlet/backend/internal/middleware"
	"github.com/playgauntlet/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, registry *match.Registry, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	// CRITICAL: No-cache middleware MUST be first in development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			// Aggressive no-cache for development
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (also available at /api/v1/health)
		v1.GET("/health", handlers.HealthCheck(registry))

		// Dev-only token minting for local clients
		if cfg.Environment != "production" {
			v1.POST("/auth/dev-token", handlers.DevToken(cfg))
		}

		// Match endpoints
		v1.GET("/match/:id", handlers.GetMatchState(registry))
		v1.GET("/ws", ws.HandleMatchWebSocket(cfg))
	}
}
