package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store   StoreConfig
	Paths   PathsConfig
	Reader  ReaderConfig
	Staging StagingConfig
}

// StoreConfig holds contract-store configuration.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	QueryTimeout    time.Duration
}

// PathsConfig holds the filesystem roots the pipeline works against.
type PathsConfig struct {
	InputDir      string
	ContractsRoot string
	OutputRoot    string
}

// ReaderConfig holds document-reader configuration.
type ReaderConfig struct {
	Pdftotext string
}

// StagingConfig holds ZIP-intake configuration.
type StagingConfig struct {
	DownloadDir       string
	PdfRoot           string
	FixedDate         string
	OnePdfPerZip      bool
	ExcludedPdfStarts []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:             getEnv("STORE_DSN", ""),
			MaxConns:        getEnvAsInt32("STORE_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("STORE_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("STORE_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("STORE_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("STORE_DIAL_TIMEOUT", 3*time.Second),
			QueryTimeout:    getEnvAsDuration("STORE_QUERY_TIMEOUT", 30*time.Second),
		},
		Paths: PathsConfig{
			InputDir:      getEnv("INPUT_DIR", ""),
			ContractsRoot: getEnv("CONTRACTS_ROOT", ""),
			OutputRoot:    getEnv("OUTPUT_ROOT", ""),
		},
		Reader: ReaderConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
		},
		Staging: StagingConfig{
			DownloadDir:       getEnv("DOWNLOAD_DIR", ""),
			PdfRoot:           getEnv("PDF_ROOT", ""),
			FixedDate:         getEnv("FIXED_DATE", ""),
			OnePdfPerZip:      getEnvAsBool("ONE_PDF_PER_ZIP", true),
			ExcludedPdfStarts: getEnvAsList("EXCLUDED_PDF_STARTS"),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Paths.InputDir == "" {
		return NewAppError("CONFIG_ERROR", "INPUT_DIR is required", ErrInvalidInput)
	}
	if c.Paths.OutputRoot == "" {
		return NewAppError("CONFIG_ERROR", "OUTPUT_ROOT is required", ErrInvalidInput)
	}
	return nil
}
