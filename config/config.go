package config

import (
	"os"
	"strings"
)

// Config holds all configuration for the SmartBus API service
type Config struct {
	// Database. When DatabaseURL is set the service runs on Postgres,
	// otherwise it falls back to the SQLite file at DatabasePath.
	DatabaseURL  string
	DatabasePath string

	// HTTP
	Port        string
	CORSOrigins []string

	// Observability
	MetricsEnabled bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabasePath:   getEnv("SQLITE_DATABASE", "./data/smartbus.db"),
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
