// Package config loads salesql settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	// Paths
	Input     string
	Database  string
	Queries   string
	ReportDir string

	// Pipeline settings
	Table          string
	TopLimit       int
	Currency       string
	Encoding       string
	Recommendation string

	// Export
	ExportFormat      string
	ExportCompression string

	// Logging
	LogLevel  string
	LogFormat string
}

// Default values.
const (
	DefaultInput     = "data.csv"
	DefaultDatabase  = "ecommerce.db"
	DefaultQueries   = "queries.sql"
	DefaultReportDir = "."
	DefaultTable     = "sales"
	DefaultTopLimit  = 5
	DefaultCurrency  = "£"
	DefaultEncoding  = "latin1"
)

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	topLimit, err := getEnvAsInt("SALESQL_TOP", DefaultTopLimit)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Input:             getEnv("SALESQL_INPUT", DefaultInput),
		Database:          getEnv("SALESQL_DB", DefaultDatabase),
		Queries:           getEnv("SALESQL_QUERIES", DefaultQueries),
		ReportDir:         getEnv("SALESQL_OUT", DefaultReportDir),
		Table:             getEnv("SALESQL_TABLE", DefaultTable),
		TopLimit:          topLimit,
		Currency:          getEnv("SALESQL_CURRENCY", DefaultCurrency),
		Encoding:          getEnv("SALESQL_ENCODING", DefaultEncoding),
		Recommendation:    getEnv("SALESQL_RECOMMENDATION", ""),
		ExportFormat:      getEnv("SALESQL_EXPORT_FORMAT", "none"),
		ExportCompression: getEnv("SALESQL_EXPORT_COMPRESSION", "none"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads the given files, or ./.env when none are given.
// A missing default .env is not an error.
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("input path is required")
	}
	if strings.TrimSpace(c.Table) == "" {
		return errors.New("table name is required")
	}
	if c.TopLimit <= 0 {
		return errors.New("top limit must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q: want json or console", c.LogFormat)
	}
	return nil
}

// NewLogger builds a zap logger. format is "json" for production output or
// "console" for human-readable development output.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zcfg zap.Config
	switch format {
	case "json":
		zcfg = zap.NewProductionConfig()
	case "console", "":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	// Logs go to stderr so the console report on stdout stays clean.
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, valueStr)
	}
	return value, nil
}
