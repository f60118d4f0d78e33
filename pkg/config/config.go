package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven configuration for the application.
// Strategy parameters (weights, thresholds, windows) live in the strategy
// YAML, not here; this covers infrastructure and external endpoints only.
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External providers
	Prices PriceProviderConfig
	News   NewsProviderConfig
	Deep   DeepAnalysisConfig

	// Ledger
	Ledger LedgerConfig

	// API server
	APIPort string

	// Logging
	LogLevel  string
	LogFormat string

	// Scheduler
	RebalanceCron string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PriceProviderConfig holds the price data provider configuration.
type PriceProviderConfig struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	DataDir        string // local CSV directory used when BaseURL is empty
}

// NewsProviderConfig holds the news provider configuration.
type NewsProviderConfig struct {
	BaseURL        string
	RequestsPerSec float64
	DataDir        string
}

// DeepAnalysisConfig holds the gated deep-analysis (LLM classifier) endpoint.
type DeepAnalysisConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Enabled  bool
	Timeout  time.Duration
	CacheTTL time.Duration
}

// LedgerConfig selects the ledger backend.
type LedgerConfig struct {
	Backend string // "file" or "postgres"
	Path    string // JSONL path for the file backend
}

// Load reads configuration from environment variables. Only this function
// calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Prices: PriceProviderConfig{
			BaseURL:        getEnv("PRICE_BASE_URL", ""),
			APIKey:         getEnv("PRICE_API_KEY", ""),
			RequestsPerSec: getEnvAsFloat("PRICE_RPS", 2.0),
			DataDir:        getEnv("PRICE_DATA_DIR", "data/prices"),
		},

		News: NewsProviderConfig{
			BaseURL:        getEnv("NEWS_BASE_URL", ""),
			RequestsPerSec: getEnvAsFloat("NEWS_RPS", 1.0),
			DataDir:        getEnv("NEWS_DATA_DIR", "data/news"),
		},

		Deep: DeepAnalysisConfig{
			Endpoint: getEnv("DEEP_ANALYSIS_ENDPOINT", ""),
			APIKey:   getEnv("DEEP_ANALYSIS_API_KEY", ""),
			Model:    getEnv("DEEP_ANALYSIS_MODEL", "news-classifier-v1"),
			Enabled:  getEnvAsBool("DEEP_ANALYSIS_ENABLED", false),
			Timeout:  getEnvAsDuration("DEEP_ANALYSIS_TIMEOUT", "20s"),
			CacheTTL: getEnvAsDuration("DEEP_ANALYSIS_CACHE_TTL", "72h"),
		},

		Ledger: LedgerConfig{
			Backend: getEnv("LEDGER_BACKEND", "file"),
			Path:    getEnv("LEDGER_PATH", "data/ledger.jsonl"),
		},

		APIPort: getEnv("API_PORT", "8098"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Friday 16:10 local by default, after the weekly close
		RebalanceCron: getEnv("REBALANCE_CRON", "0 10 16 * * FRI"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration values.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Ledger.Backend {
	case "file":
		if c.Ledger.Path == "" {
			return fmt.Errorf("LEDGER_PATH is required for the file ledger backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger backend")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be one of: file, postgres")
	}

	if c.Deep.Enabled && c.Deep.Endpoint == "" {
		return fmt.Errorf("DEEP_ANALYSIS_ENDPOINT is required when deep analysis is enabled")
	}

	return nil
}

// loadEnvFile tries to load .env from a few likely locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
