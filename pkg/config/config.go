package config

import (
	"os"
)

// Config holds application configuration.
type Config struct {
	Port        string
	DBPath      string
	RedisAddr   string // empty means in-memory quote cache
	LogLevel    string
	OverdueCron string
}

// NewConfig loads configuration from environment variables.
func NewConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DBPath:      getEnv("DB_PATH", "loanengine.db"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		OverdueCron: getEnv("OVERDUE_CRON", "0 6 * * *"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
