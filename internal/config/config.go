package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr     string
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string
	ServiceName  string
	Env          string
	LogLevel     string

	// Peer endpoints are handed to each client at construction.
	InventoryBaseURL string
	CatalogBaseURL   string
	UpstreamTimeout  time.Duration

	JWTSecret string
	CacheTTL  time.Duration

	ReleaseRetryGroup   string
	ReleaseRetryWorkers int
}

func Load() Config {
	return Config{
		HTTPAddr:            getenv("HTTP_ADDR", ":8081"),
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		KafkaBrokers:        splitCSV(os.Getenv("KAFKA_BROKERS")),
		ServiceName:         getenv("SERVICE_NAME", "order-api"),
		Env:                 getenv("ENV", "dev"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		InventoryBaseURL:    strings.TrimRight(getenv("INVENTORY_BASE_URL", "http://inventory-service:8082"), "/"),
		CatalogBaseURL:      strings.TrimRight(getenv("CATALOG_BASE_URL", "http://product-service:8080"), "/"),
		UpstreamTimeout:     getduration("UPSTREAM_TIMEOUT", 5*time.Second),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CacheTTL:            getduration("CACHE_TTL", 5*time.Minute),
		ReleaseRetryGroup:   getenv("RELEASE_RETRY_GROUP", "inventory-release-retry"),
		ReleaseRetryWorkers: getint("RELEASE_RETRY_WORKERS", 4),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	i, err := strconv.Atoi(os.Getenv(k))
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
