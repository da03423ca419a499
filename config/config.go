package config

import (
	"os"
	"strconv"
	"time"

	apperrors "marketscrape/listingworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Scrape target
	BaseURL  string
	MaxPages int

	// Fetcher configuration
	FetchTimeout     time.Duration
	FetchMaxAttempts int

	// Politeness delay between page fetches
	DelayMin time.Duration
	DelayMax time.Duration

	// Pagination query parameter name
	PageParam string

	// Redis configuration (listing feed)
	RedisAddr      string
	RedisDB        int
	RedisStream    string
	RedisStreamMax int

	// Memcache configuration (fetch block markers)
	MemcacheAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	maxPages, _ := strconv.Atoi(getEnv("MAX_PAGES", "5"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "10"))
	fetchAttempts, _ := strconv.Atoi(getEnv("FETCH_MAX_ATTEMPTS", "3"))
	delayMin, _ := strconv.Atoi(getEnv("DELAY_MIN_MS", "1500"))
	delayMax, _ := strconv.Atoi(getEnv("DELAY_MAX_MS", "3500"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamMax, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAXLEN", "500"))

	return &Config{
		BaseURL:          getEnv("BASE_URL", ""),
		MaxPages:         maxPages,
		FetchTimeout:     time.Duration(fetchTimeout) * time.Second,
		FetchMaxAttempts: fetchAttempts,
		DelayMin:         time.Duration(delayMin) * time.Millisecond,
		DelayMax:         time.Duration(delayMax) * time.Millisecond,
		PageParam:        getEnv("PAGE_PARAM", "_pgn"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          redisDB,
		RedisStream:      getEnv("REDIS_STREAM", "listings"),
		RedisStreamMax:   redisStreamMax,
		MemcacheAddr:     getEnv("MEMCACHE_ADDR", "localhost:11211"),
		Environment:      getEnv("ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return apperrors.NewConfiguration("BASE_URL is required", nil)
	}
	if c.FetchMaxAttempts < 1 {
		return apperrors.NewConfiguration("FETCH_MAX_ATTEMPTS must be at least 1", nil)
	}
	if c.DelayMax < c.DelayMin {
		return apperrors.NewConfiguration("DELAY_MAX_MS must not be below DELAY_MIN_MS", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
