package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Cache backend constants
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Session settings
	SessionSecret string // signs the JWT session cookie
	SessionMaxAge time.Duration
	// StateSecret signs the short-lived cookie session used for OAuth state.
	StateSecret string

	// CLI auth settings
	CLIAuthCodeExpiration time.Duration // device code TTL (default: 10 minutes)
	APITokenExpiration    time.Duration // bearer token lifetime (default: 90 days)

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Config limits
	MaxConfigsPerUser int

	// Rate limiting
	EnableRateLimit     bool
	RateLimitStore      string // "memory" or "redis"
	CLIStartRateLimit   int    // requests per minute
	CLIApproveRateLimit int
	CLIPollRateLimit    int
	AuthRateLimit       int
	ConfigRateLimit     int
	SearchRateLimit     int

	// Redis (rate limit store and search cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Search cache
	SearchCacheType        string // "memory" or "redis"
	HomebrewIndexCacheTTL  time.Duration
	NpmSearchCacheTTL      time.Duration
	RegistryRequestTimeout time.Duration
	RegistryMaxRetries     int

	// Metrics
	MetricsEnabled bool
	MetricsToken   string

	// Background reaper for expired codes/tokens
	ReaperInterval time.Duration

	// OAuth settings
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string

	// OAuth HTTP client
	OAuthTimeout time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "openboot.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvDuration("SESSION_MAX_AGE", 720*time.Hour), // 30 days
		StateSecret:   getEnv("STATE_SECRET", "state-secret-change-in-production"),

		CLIAuthCodeExpiration: getEnvDuration("CLI_AUTH_CODE_EXPIRATION", 10*time.Minute),
		APITokenExpiration:    getEnvDuration("API_TOKEN_EXPIRATION", 90*24*time.Hour),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		MaxConfigsPerUser: getEnvInt("MAX_CONFIGS_PER_USER", 20),

		EnableRateLimit:     getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:      getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		CLIStartRateLimit:   getEnvInt("CLI_START_RATE_LIMIT", 5),
		CLIApproveRateLimit: getEnvInt("CLI_APPROVE_RATE_LIMIT", 10),
		CLIPollRateLimit:    getEnvInt("CLI_POLL_RATE_LIMIT", 20),
		AuthRateLimit:       getEnvInt("AUTH_RATE_LIMIT", 10),
		ConfigRateLimit:     getEnvInt("CONFIG_RATE_LIMIT", 30),
		SearchRateLimit:     getEnvInt("SEARCH_RATE_LIMIT", 30),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SearchCacheType:        getEnv("SEARCH_CACHE_TYPE", CacheTypeMemory),
		HomebrewIndexCacheTTL:  getEnvDuration("HOMEBREW_INDEX_CACHE_TTL", time.Hour),
		NpmSearchCacheTTL:      getEnvDuration("NPM_SEARCH_CACHE_TTL", 5*time.Minute),
		RegistryRequestTimeout: getEnvDuration("REGISTRY_REQUEST_TIMEOUT", 15*time.Second),
		RegistryMaxRetries:     getEnvInt("REGISTRY_MAX_RETRIES", 3),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		ReaperInterval: getEnvDuration("REAPER_INTERVAL", time.Hour),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		OAuthTimeout: getEnvDuration("OAUTH_TIMEOUT", 15*time.Second),
	}
}

// Validate checks production invariants that must not ship with defaults.
func (c *Config) Validate() error {
	if c.IsProduction {
		if strings.Contains(c.SessionSecret, "change-in-production") {
			return fmt.Errorf("SESSION_SECRET must be set in production")
		}
		if strings.Contains(c.StateSecret, "change-in-production") {
			return fmt.Errorf("STATE_SECRET must be set in production")
		}
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported DATABASE_DRIVER: %s", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
	}
	if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
		return fmt.Errorf("unsupported RATE_LIMIT_STORE: %s", c.RateLimitStore)
	}
	if c.SearchCacheType != CacheTypeMemory && c.SearchCacheType != CacheTypeRedis {
		return fmt.Errorf("unsupported SEARCH_CACHE_TYPE: %s", c.SearchCacheType)
	}
	if c.CLIAuthCodeExpiration <= 0 {
		return fmt.Errorf("CLI_AUTH_CODE_EXPIRATION must be positive")
	}
	if c.APITokenExpiration <= 0 {
		return fmt.Errorf("API_TOKEN_EXPIRATION must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
