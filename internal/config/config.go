package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the server.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string // optional; empty disables the message cache
	JWTSecret   string

	// SendQueueSize is the per-connection outbound queue depth. A subscriber
	// that falls this far behind starts losing events (counted as delivery
	// failures).
	SendQueueSize int
}

// Load reads configuration from the environment, with a .env file loaded
// first when present (development convenience).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "3001"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret"),
		SendQueueSize: getEnvInt("SEND_QUEUE_SIZE", 64),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "postgres://" + getEnv("POSTGRES_USER", "postgres") + ":" +
			getEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			getEnv("POSTGRES_HOST", "localhost") + ":" +
			getEnv("POSTGRES_PORT", "5432") + "/" +
			getEnv("POSTGRES_DB", "messengerdb") + "?sslmode=disable"
	}

	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret" {
		panic("JWT_SECRET is required in production")
	}

	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
