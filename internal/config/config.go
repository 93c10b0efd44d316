package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Match settings
	MaxPlayers        int
	CacheTTLSeconds   int
	SnapshotEvery     int
	EvictAfterMinutes int
	EvictPollSeconds  int

	// Blackjack settings
	MinBet    int64
	MaxBet    int64
	MaxSpots  int
	MaxRounds int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/gauntlet?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match settings
		MaxPlayers:        getEnvInt("MAX_PLAYERS", 6),
		CacheTTLSeconds:   getEnvInt("MATCH_CACHE_TTL_SECONDS", 3600),
		SnapshotEvery:     getEnvInt("SNAPSHOT_EVERY_EVENTS", 20),
		EvictAfterMinutes: getEnvInt("EVICT_AFTER_MINUTES", 30),
		EvictPollSeconds:  getEnvInt("EVICT_POLL_SECONDS", 60),

		// Blackjack settings
		MinBet:    int64(getEnvInt("BLACKJACK_MIN_BET", 10)),
		MaxBet:    int64(getEnvInt("BLACKJACK_MAX_BET", 500)),
		MaxSpots:  getEnvInt("BLACKJACK_MAX_SPOTS", 3),
		MaxRounds: getEnvInt("BLACKJACK_MAX_ROUNDS", 5),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
