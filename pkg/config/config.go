package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	AppEnv          string
	BaseURL         string
	ShortCodeLength int
	MaxCodeAttempts int
	StoreTimeout    time.Duration

	JWTSecret        string
	AuthServiceURL   string
	AuthClientID     string
	AuthClientSecret string
	AuthTokenURL     string

	LogFile   string
	SentryDSN string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:          getEnv("APP_ENV", "local"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		ShortCodeLength: getEnvInt("SHORT_CODE_LENGTH", 7),
		MaxCodeAttempts: getEnvInt("MAX_CODE_ATTEMPTS", 10),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 5*time.Second),

		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		AuthServiceURL:   getEnv("AUTH_SERVICE_URL", ""),
		AuthClientID:     getEnv("AUTH_CLIENT_ID", ""),
		AuthClientSecret: getEnv("AUTH_CLIENT_SECRET", ""),
		AuthTokenURL:     getEnv("AUTH_TOKEN_URL", ""),

		LogFile:   getEnv("LOG_FILE", ""),
		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
