package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	errInvalidPort       = errors.New("config: invalid PORT number")
	errInvalidCacheTTL   = errors.New("config: CACHE_TTL must be positive")
	errInvalidCacheSize  = errors.New("config: CACHE_MAX_ENTRIES must be 1-100000")
	errInvalidRateLimit  = errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	errInvalidPollPeriod = errors.New("config: STATUS_POLL_INTERVAL must be positive")
	errInvalidStrategy   = errors.New("config: PAGESPEED_STRATEGY must be mobile or desktop")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	// DevMode exposes detailed statistics such as popular URLs.
	DevMode bool

	PageSpeedAPIKey string
	// PageSpeedEndpoint overrides the API base URL; empty uses the public API.
	PageSpeedEndpoint string
	PageSpeedStrategy string

	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	CacheTTL           time.Duration
	CacheMaxEntries    int
	StatusPollInterval time.Duration

	// RedisURL selects the shared Redis cache when set.
	RedisURL    string
	RedisPrefix string

	RateLimitRPS   float64
	RateLimitBurst float64

	DataDir       string
	HistoryDB     string
	PublicBaseURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	dataDir := getEnv("DATA_DIR", "data")

	cfg := Config{
		Port:     getEnv("PORT", "8082"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		DevMode:  os.Getenv("DEV_MODE") == "true",

		PageSpeedAPIKey:   os.Getenv("PAGESPEED_API_KEY"),
		PageSpeedEndpoint: os.Getenv("PAGESPEED_ENDPOINT"),
		PageSpeedStrategy: getEnv("PAGESPEED_STRATEGY", "mobile"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),

		CacheTTL:           getEnvAsDuration("CACHE_TTL", time.Hour),
		CacheMaxEntries:    getEnvAsInt("CACHE_MAX_ENTRIES", 1000),
		StatusPollInterval: getEnvAsDuration("STATUS_POLL_INTERVAL", 5*time.Second),

		RedisURL:    os.Getenv("REDIS_URL"),
		RedisPrefix: getEnv("REDIS_PREFIX", "seo:analysis:"),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getEnvAsFloat("RATE_LIMIT_BURST", 5),

		DataDir:       dataDir,
		HistoryDB:     getEnv("HISTORY_DB", filepath.Join(dataDir, "history.db")),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8082"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidCacheTTL, c.CacheTTL)
	}
	if c.CacheMaxEntries < 1 || c.CacheMaxEntries > 100000 {
		return fmt.Errorf("%w: got %d", errInvalidCacheSize, c.CacheMaxEntries)
	}
	if c.StatusPollInterval <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidPollPeriod, c.StatusPollInterval)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errInvalidRateLimit
	}
	if c.PageSpeedStrategy != "mobile" && c.PageSpeedStrategy != "desktop" {
		return fmt.Errorf("%w: %q", errInvalidStrategy, c.PageSpeedStrategy)
	}
	return nil
}

// HasLLM reports whether any remediation provider is configured.
func (c Config) HasLLM() bool {
	return c.OpenAIAPIKey != "" || c.AnthropicAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsFloat(key string, fallback float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}
