package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	LLM      LLMConfig
	RefData  RefDataConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// PipelineConfig holds the parse-pipeline knobs.
type PipelineConfig struct {
	EscalationThreshold    float32
	RetryBudget            int
	FuzzyMatchThreshold    float64
	SubtotalToleranceCents int64
}

// LLMConfig holds the generative-extractor configuration.
type LLMConfig struct {
	Provider    string // "openai", "gemini", or "" to disable escalation
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// RefDataConfig points at the versioned reference data directory.
// When Dir is empty the embedded defaults are used.
type RefDataConfig struct {
	Dir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Pipeline: PipelineConfig{
			EscalationThreshold:    getEnvAsFloat32("ESCALATION_THRESHOLD", 0.70),
			RetryBudget:            getEnvAsInt("LLM_RETRY_BUDGET", 2),
			FuzzyMatchThreshold:    getEnvAsFloat64("FUZZY_MATCH_THRESHOLD", 0.72),
			SubtotalToleranceCents: int64(getEnvAsInt("SUBTOTAL_TOLERANCE_CENTS", 5)),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", ""),
			Model:       getEnv("LLM_MODEL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		RefData: RefDataConfig{
			Dir: getEnv("REFDATA_DIR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.LLM.Provider != "" && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required when LLM_PROVIDER is set", ErrInvalidInput)
	}
	if c.Pipeline.RetryBudget < 0 {
		return NewAppError("CONFIG_ERROR", "LLM_RETRY_BUDGET must be >= 0", ErrInvalidInput)
	}
	return nil
}
