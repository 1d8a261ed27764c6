// Package config provides configuration management for the faucet intake service.
// It loads configuration once at startup from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends for claim records
const (
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Faucet    FaucetConfig
	Store     StoreConfig
	Queue     QueueConfig
	Twitter   TwitterConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// FaucetConfig holds claim policy settings
type FaucetConfig struct {
	ProjectHandle string // Handle a claim tweet must mention, without "@"
	DefaultColor  uint64 // Color used by the tweet path when the request omits one
}

// StoreConfig selects and configures the claim record store
type StoreConfig struct {
	Backend  string
	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
	RecordPrefix   string
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
	MigrationsPath string
}

// URL returns the connection URL used by golang-migrate
func (c PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

// QueueConfig holds disbursement queue configuration.
// The queue lives on the Redis instance from StoreConfig.Redis.
type QueueConfig struct {
	Name string
}

// TwitterConfig holds social read API configuration
type TwitterConfig struct {
	BaseURL           string
	BearerToken       string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// RateLimitConfig holds per-client HTTP throttling configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	IdleTTL           time.Duration
	TrustedProxies    []string // IPs or CIDRs of proxies that set X-Forwarded-For
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional, environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Faucet: FaucetConfig{
			ProjectHandle: strings.TrimPrefix(getEnv("FAUCET_PROJECT_HANDLE", "leapdao"), "@"),
			DefaultColor:  getEnvAsUint("FAUCET_DEFAULT_COLOR", 0),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendRedis)),
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
				RecordPrefix:   getEnv("REDIS_RECORD_PREFIX", "faucet:claim:"),
			},
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "faucet"),
				User:           getEnv("POSTGRES_USER", "faucet"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
				MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
			},
		},
		Queue: QueueConfig{
			Name: getEnv("QUEUE_NAME", "faucet:disbursements"),
		},
		Twitter: TwitterConfig{
			BaseURL:           getEnv("TWITTER_API_URL", "https://api.twitter.com"),
			BearerToken:       getEnv("TWITTER_BEARER_TOKEN", ""),
			Timeout:           getEnvAsDuration("TWITTER_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvAsFloat("TWITTER_REQUESTS_PER_SECOND", 1),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_SECOND", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
			IdleTTL:           getEnvAsDuration("RATE_LIMIT_IDLE_TTL", 10*time.Minute),
			TrustedProxies:    getEnvAsList("RATE_LIMIT_TRUSTED_PROXIES"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks settings that have no safe fallback
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendRedis, StoreBackendPostgres:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (must be %q or %q)", c.Store.Backend, StoreBackendRedis, StoreBackendPostgres)
	}

	if strings.TrimSpace(c.Queue.Name) == "" {
		return fmt.Errorf("QUEUE_NAME must not be empty")
	}

	if c.Faucet.ProjectHandle == "" {
		return fmt.Errorf("FAUCET_PROJECT_HANDLE must not be empty")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsUint gets an environment variable as an unsigned integer with a default value
func getEnvAsUint(key string, defaultValue uint64) uint64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated environment variable, dropping empty items
func getEnvAsList(key string) []string {
	var values []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	return values
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
