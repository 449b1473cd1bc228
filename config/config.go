package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Redis configuration
	RedisURL string

	// Betting configuration
	MinBet          int64
	MaxBet          *int64 // nil = unbounded
	StartingBalance int64

	// Market configuration
	MaxOpenMarkets        *int // nil = unbounded
	AutoCloseGraceMinutes int

	// Transaction runner configuration
	TxMaxAttempts int

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty = disabled

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp", "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
				return
			}
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})

	return instance
}

func load() (*Config, error) {
	config := &Config{
		RedisURL: getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		MinBet:          1,
		StartingBalance: 1000,

		AutoCloseGraceMinutes: 5,
		TxMaxAttempts:         3,

		NATSServers: os.Getenv("NATS_SERVERS"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "subbets-engine"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 30000,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if v := os.Getenv("MIN_BET"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid MIN_BET: %q", v)
		}
		config.MinBet = parsed
	}
	if v := os.Getenv("MAX_BET"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < config.MinBet {
			return nil, fmt.Errorf("invalid MAX_BET: %q", v)
		}
		config.MaxBet = &parsed
	}
	if v := os.Getenv("STARTING_BALANCE"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid STARTING_BALANCE: %q", v)
		}
		config.StartingBalance = parsed
	}
	if v := os.Getenv("MAX_OPEN_MARKETS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid MAX_OPEN_MARKETS: %q", v)
		}
		config.MaxOpenMarkets = &parsed
	}
	if v := os.Getenv("AUTO_CLOSE_GRACE_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			config.AutoCloseGraceMinutes = parsed
		}
	}
	if v := os.Getenv("TX_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 {
			config.TxMaxAttempts = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		MinBet:                10,
		StartingBalance:       1000,
		AutoCloseGraceMinutes: 5,
		TxMaxAttempts:         3,
		OTelExporterType:      "none",
	}
}
