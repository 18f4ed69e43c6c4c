// Package config loads ledger configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the application configuration.
type Config struct {
	Store    StoreConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
	HTTPAddr string
	Debug    bool
}

// StoreConfig selects and locates the LedgerStore.
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
}

// KafkaConfig configures event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	Compression string
}

// Enabled reports whether events should be published.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// LedgerConfig holds ledger behaviour settings.
type LedgerConfig struct {
	Currency      string
	RetryAttempts int
	ChartFile     string
}

// Load loads configuration from environment variables.
// It loads .env from the current directory if present, or the given path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	attempts, err := parseIntEnv("LEDGER_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnvOrDefault("LEDGER_STORE", StoreMemory)),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			SQLitePath:  getEnvOrDefault("LEDGER_SQLITE_PATH", "./data/ledger.db"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			TopicPrefix: getEnvOrDefault("KAFKA_TOPIC_PREFIX", "ledger."),
			Compression: getEnvOrDefault("KAFKA_COMPRESSION", "none"),
		},
		Ledger: LedgerConfig{
			Currency:      strings.ToUpper(getEnvOrDefault("LEDGER_CURRENCY", money.DefaultCurrency)),
			RetryAttempts: attempts,
			ChartFile:     os.Getenv("LEDGER_CHART_FILE"),
		},
		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		Debug:    os.Getenv("DEBUG") == "true",
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres store")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			problems = append(problems, "LEDGER_SQLITE_PATH is required for the sqlite store")
		}
	default:
		problems = append(problems, fmt.Sprintf("LEDGER_STORE must be memory, postgres or sqlite, got %q", c.Store.Backend))
	}

	if c.Ledger.RetryAttempts < 1 {
		problems = append(problems, "LEDGER_RETRY_ATTEMPTS must be at least 1")
	}
	if len(c.Ledger.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("LEDGER_CURRENCY must be a three-letter code, got %q", c.Ledger.Currency))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s\nPlease check your .env file or environment variables", strings.Join(problems, "; "))
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
