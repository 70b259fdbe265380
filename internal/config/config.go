package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	MinPollInterval = 30 * time.Second
	MaxPollInterval = 30 * time.Minute
)

// Config carries the environment-driven settings for the API process.
type Config struct {
	DatabaseURL string
	ListenAddr  string

	GraphBaseURL    string
	GraphTimezone   string
	GraphToken      string // initial delegated access token; refreshed via the proxy
	ProxyBaseURL    string // internal proxy root for qbo/unifi/graph-upload endpoints
	LucidBaseURL    string
	LucidAPIKey     string
	SharePointRoot  string
	UnifiController string
	ConfirmPollEach time.Duration
	ConfirmTimeout  time.Duration

	RateLimitPerSec int
	RateLimitBurst  int
	MaxBodyBytes    int64
}

// Load reads configuration from the environment, with .env fallback.
func Load() *Config {
	_ = godotenv.Load()

	poll := time.Duration(getEnvInt("CONFIRM_POLL_INTERVAL_SEC", 120)) * time.Second
	if poll < MinPollInterval {
		poll = MinPollInterval
	} else if poll > MaxPollInterval {
		poll = MaxPollInterval
	}

	return &Config{
		DatabaseURL:     getEnv("FIELDOPS_PG_DSN", ""),
		ListenAddr:      getEnv("FIELDOPS_LISTEN_ADDR", ":8080"),
		GraphBaseURL:    getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		GraphTimezone:   getEnv("GRAPH_TIMEZONE", "Pacific Standard Time"),
		GraphToken:      getEnv("GRAPH_ACCESS_TOKEN", ""),
		ProxyBaseURL:    getEnv("PROXY_BASE_URL", "http://localhost:3000"),
		LucidBaseURL:    getEnv("LUCID_BASE_URL", "https://api.lucid.co"),
		LucidAPIKey:     getEnv("LUCID_API_KEY", ""),
		SharePointRoot:  getEnv("SHAREPOINT_ROOT_URL", ""),
		UnifiController: getEnv("UNIFI_CONTROLLER_URL", ""),
		ConfirmPollEach: poll,
		ConfirmTimeout:  time.Duration(getEnvInt("CONFIRM_TIMEOUT_HOURS", 72)) * time.Hour,
		RateLimitPerSec: getEnvInt("RATE_LIMIT_PER_SEC", 20),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 40),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
