package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playgauntlet/backend/internal/api"
	"github.com/playgauntlet/backend/internal/config"
	"github.com/playgauntlet/backend/internal/database"
	"github.com/playgauntlet/backend/internal/match"
	"github.com/playgauntlet/backend/internal/migrations"
	"github.com/playgauntlet/backend/internal/redis"
	"github.com/playgauntlet/backend/internal/store"
	"github.com/playgauntlet/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Wire the durable store and the match registry
	st := store.New(db, rdb)
	registry := match.NewRegistry(st, cfg)

	// Evict terminal match runtimes that have gone quiet
	registry.StartEvictionWorker(context.Background())

	// Wire Redis and start the match event subscriber in the WS layer
	ws.SetRedisClient(rdb)
	ws.SetRegistry(registry)
	ws.StartEventSubscriber(context.Background())

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, registry, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Gauntlet server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
