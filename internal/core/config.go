package core

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"icmm/internal/llm"
	"icmm/pkg/schema"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// apiKeyVars are checked in order for the model backend credential.
var apiKeyVars = []string{"OPENROUTER_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Config holds the application configuration.
type Config struct {
	LogLevel string // debug, info, warn, error

	APIKey       string // Required for recommendations
	LLMBaseURL   string
	DefaultModel string
	LLMTimeout   time.Duration
	Retry        llm.RetryPolicy

	ModelFile string // empty uses the embedded questionnaire

	StoreDriver string // memory, sqlite, postgres, file
	DataDir     string
	DatabaseURL string
	Collection  string

	RedisAddr string // empty disables the recommendation cache
	RedisTTL  time.Duration

	HTTPAddr    string
	BucketWidth int
	RecentLimit int
}

// LoadEnvFile loads variables from the given .env files (default ".env") without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return &ConfigError{Message: fmt.Sprintf("load %s", path), Err: err}
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		logLevel = "debug"
	}

	cfg := &Config{
		LogLevel:     logLevel,
		LLMBaseURL:   getEnvOrDefault("LLM_BASE_URL", llm.DefaultBaseURL),
		DefaultModel: getEnvOrDefault("DEFAULT_MODEL", llm.DefaultModelID),
		ModelFile:    os.Getenv("MODEL_FILE"),
		StoreDriver:  getEnvOrDefault("STORE_DRIVER", StoreMemory),
		DataDir:      getEnvOrDefault("DATA_DIR", "./data"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Collection:   getEnvOrDefault("COLLECTION", schema.DefaultCollectionName),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		HTTPAddr:     getEnvOrDefault("HTTP_ADDR", ":8080"),
	}

	for _, key := range apiKeyVars {
		if v := os.Getenv(key); v != "" {
			cfg.APIKey = v
			break
		}
	}

	retry := llm.DefaultRetryPolicy()
	var err error
	if cfg.LLMTimeout, err = getEnvDuration("LLM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if retry.InitialDelay, err = getEnvDuration("RETRY_INITIAL_DELAY", retry.InitialDelay); err != nil {
		return nil, err
	}
	if retry.MaxDelay, err = getEnvDuration("RETRY_MAX_DELAY", retry.MaxDelay); err != nil {
		return nil, err
	}
	if retry.MaxRetries, err = getEnvInt("RETRY_MAX_RETRIES", retry.MaxRetries); err != nil {
		return nil, err
	}
	cfg.Retry = retry

	if cfg.RedisTTL, err = getEnvDuration("REDIS_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BucketWidth, err = getEnvInt("BUCKET_WIDTH", schema.DefaultScoreBucketSize); err != nil {
		return nil, err
	}
	if cfg.RecentLimit, err = getEnvInt("RECENT_LIMIT", schema.DefaultRecentLimit); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{
			Key:     apiKeyVars[0],
			Message: "required (GEMINI_API_KEY and GOOGLE_API_KEY are also accepted)",
			Err:     errors.New("missing API key"),
		}
	}

	drivers := []string{StoreMemory, StoreSQLite, StorePostgres, StoreFile}
	if !slices.Contains(drivers, c.StoreDriver) {
		return &ConfigError{Key: "STORE_DRIVER", Message: fmt.Sprintf("unknown driver %q, want one of %v", c.StoreDriver, drivers)}
	}
	if c.StoreDriver == StorePostgres && c.DatabaseURL == "" {
		return &ConfigError{Key: "DATABASE_URL", Message: "required for the postgres store"}
	}
	if c.BucketWidth <= 0 {
		return &ConfigError{Key: "BUCKET_WIDTH", Message: "must be positive"}
	}
	if c.RecentLimit <= 0 {
		return &ConfigError{Key: "RECENT_LIMIT", Message: "must be positive"}
	}
	if c.Retry.MaxRetries < 0 {
		return &ConfigError{Key: "RETRY_MAX_RETRIES", Message: "cannot be negative"}
	}
	if c.Retry.InitialDelay > c.Retry.MaxDelay {
		return &ConfigError{Key: "RETRY_INITIAL_DELAY", Message: "cannot exceed RETRY_MAX_DELAY"}
	}
	return nil
}

// LLMConfig returns the model client configuration.
func (c *Config) LLMConfig() *llm.Config {
	return &llm.Config{
		APIKey:       c.APIKey,
		BaseURL:      c.LLMBaseURL,
		DefaultModel: c.DefaultModel,
		Timeout:      c.LLMTimeout,
		Retry:        c.Retry,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigError{Key: key, Message: fmt.Sprintf("invalid duration %q", value), Err: err}
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Key: key, Message: fmt.Sprintf("invalid integer %q", value), Err: err}
	}
	return n, nil
}
