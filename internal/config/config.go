package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	DBUrl  string
	AppEnv string

	// RedisURL switches the connection registry to the Redis pub/sub
	// variant when set, so fan-out reaches clients on other processes.
	RedisURL string

	// MaxSessionsPerUser is the session policy. At the default of 1 a
	// fresh login replaces the user's previous session row.
	MaxSessionsPerUser int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		Port:               getEnv("PORT", "5000"),
		DBUrl:              getEnv("DB_URL", ""),
		AppEnv:             normalizeEnv(getEnv("APP_ENV", "production")),
		RedisURL:           getEnv("REDIS_URL", ""),
		MaxSessionsPerUser: getEnvInt("MAX_SESSIONS_PER_USER", 1),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
