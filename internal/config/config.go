package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	LogLevel    string
	ResetDB     bool

	CatalogBaseURL       string
	CatalogTimeout       time.Duration
	CatalogMaxRetries    int
	CatalogBanlistFormat string
	CardCacheTTL         time.Duration
	BanlistCacheTTL      time.Duration
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/ygodeck?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ResetDB:     getEnvBool("RESET_DB", false),

		CatalogBaseURL:       getEnv("CATALOG_BASE_URL", "https://db.ygoprodeck.com/api/v7"),
		CatalogTimeout:       getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		CatalogMaxRetries:    getEnvInt("CATALOG_MAX_RETRIES", 1),
		CatalogBanlistFormat: getEnv("CATALOG_BANLIST_FORMAT", "tcg"),
		CardCacheTTL:         getEnvDuration("CARD_CACHE_TTL", 2*time.Minute),
		BanlistCacheTTL:      getEnvDuration("BANLIST_CACHE_TTL", time.Hour),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
