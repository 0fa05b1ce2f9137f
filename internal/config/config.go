package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"recon/internal/logger"
)

const defaultIgnorePattern = `^Page \d+( of \d+)?$`

type Config struct {
	// Extraction
	TargetAccount      string   `yaml:"target_account"`
	LayoutRowTolerance float64  `yaml:"layout_row_tolerance"`
	LayoutIgnore       []string `yaml:"layout_ignore_patterns"`

	// Reconciliation
	ReconcileTolerance string `yaml:"reconcile_tolerance"`

	// Store
	DatabaseDriver string `yaml:"database_driver"` // sqlite or postgres
	DatabaseDSN    string `yaml:"database_dsn"`

	// Batch processing
	BatchWorkers int `yaml:"batch_workers"`

	// Google Cloud Configuration
	GoogleCloudProject    string `yaml:"google_cloud_project"`
	GoogleCloudLocation   string `yaml:"google_cloud_location"`
	DocumentAIProcessorID string `yaml:"document_ai_processor_id"`

	// Google Sheets Configuration
	GoogleSheetURL       string `yaml:"google_sheet_url"`
	GoogleSheetWorksheet string `yaml:"google_sheet_worksheet"`

	// Logging Configuration
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

// Load reads the environment, then overlays the YAML file named by path or,
// when path is empty, by RECON_CONFIG.
func Load(path string) (*Config, error) {
	config := &Config{
		TargetAccount:         getEnv("TARGET_ACCOUNT", "1105"),
		LayoutRowTolerance:    getEnvFloat("LAYOUT_ROW_TOLERANCE", 3),
		LayoutIgnore:          splitPatterns(getEnv("LAYOUT_IGNORE_PATTERNS", defaultIgnorePattern)),
		ReconcileTolerance:    getEnv("RECONCILE_TOLERANCE", "0.01"),
		DatabaseDriver:        getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:           getEnv("DATABASE_DSN", "recon.db"),
		BatchWorkers:          getEnvInt("BATCH_WORKERS", 12),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Discrepancies"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if path == "" {
		path = os.Getenv("RECON_CONFIG")
	}
	if path != "" {
		if err := config.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// overlay replaces every field the YAML file sets and leaves the rest alone.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.TargetAccount) == "" {
		return fmt.Errorf("TARGET_ACCOUNT is required")
	}
	tol, err := decimal.NewFromString(c.ReconcileTolerance)
	if err != nil {
		return fmt.Errorf("RECONCILE_TOLERANCE %q is not a number: %w", c.ReconcileTolerance, err)
	}
	if tol.IsNegative() {
		return fmt.Errorf("RECONCILE_TOLERANCE must not be negative")
	}
	if c.LayoutRowTolerance < 0 {
		return fmt.Errorf("LAYOUT_ROW_TOLERANCE must not be negative")
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	for _, p := range c.LayoutIgnore {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("LAYOUT_IGNORE_PATTERNS entry %q: %w", p, err)
		}
	}
	return nil
}

// Tolerance returns the reconciliation tolerance. Only valid after Load.
func (c *Config) Tolerance() decimal.Decimal {
	return decimal.RequireFromString(c.ReconcileTolerance)
}

// IgnorePatterns compiles the layout ignore patterns. Only valid after Load.
func (c *Config) IgnorePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(c.LayoutIgnore))
	for _, p := range c.LayoutIgnore {
		patterns = append(patterns, regexp.MustCompile(p))
	}
	return patterns
}

// RequireDocumentAI checks the settings needed by the Document AI backend.
func (c *Config) RequireDocumentAI() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return defaultValue
}

// Patterns are separated by ";;" since regular expressions use most other separators.
func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";;") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
