package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
)

// SolutionType is one of the two deployment topologies from spec §6.
type SolutionType string

const (
	SolutionStandaloneWorkspaces SolutionType = "StandaloneWorkspaces"
	SolutionPortfolio            SolutionType = "Portfolio"
)

// Config holds all engine configuration, read once at process start.
type Config struct {
	// Target (Smartsheet)
	SmartsheetAPIToken string

	// Source (Project Online OAuth + OData)
	TenantID          string
	ClientID          string
	ProjectOnlineURL  string
	UseDeviceCodeFlow bool

	// Token cache
	TokenCacheDir string

	// PMO Standards / template adoption
	PMOStandardsWorkspaceID int64
	TemplateWorkspaceID     int64
	SolutionType            SolutionType

	// Logging
	LogLevel string

	// Batching / retry
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration

	// Dry run
	DryRun bool

	// Concurrency
	MaxConcurrentProjects int
	SourceRateLimitPerMin int

	// Local state store (SPEC_FULL.md §4.1) — persists resumable run/project
	// state on top of, not instead of, target-side idempotence.
	DatabaseURL    string
	RunMigrations  bool
	MigrationsPath string

	// ResumeRunID, if set, reuses a prior run's ID instead of generating a
	// new one, so CompletedSourceProjectIDs can find and skip projects that
	// already reached the Done stage on the earlier attempt.
	ResumeRunID string

	// Progress/cancellation transport, generalized from the teacher's NATS
	// queue.Manager usage.
	NATSURL string

	// Formula Fields Report output path (spec §6).
	FormulaFieldsReportPath string
}

// Load reads configuration from environment variables, validating required
// fields exactly as the teacher's config.Load does.
func Load() (*Config, error) {
	cfg := &Config{
		SmartsheetAPIToken: getEnv("SMARTSHEET_API_TOKEN", ""),

		TenantID:          getEnv("TENANT_ID", ""),
		ClientID:          getEnv("CLIENT_ID", ""),
		ProjectOnlineURL:  getEnv("PROJECT_ONLINE_URL", ""),
		UseDeviceCodeFlow: getEnvAsBool("USE_DEVICE_CODE_FLOW", false),

		TokenCacheDir: getEnv("TOKEN_CACHE_DIR", defaultTokenCacheDir()),

		PMOStandardsWorkspaceID: getEnvAsInt64("PMO_STANDARDS_WORKSPACE_ID", 0),
		TemplateWorkspaceID:     getEnvAsInt64("TEMPLATE_WORKSPACE_ID", 0),
		SolutionType:            SolutionType(getEnv("SOLUTION_TYPE", string(SolutionStandaloneWorkspaces))),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		BatchSize:  getEnvAsInt("BATCH_SIZE", 100),
		MaxRetries: getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay: getEnvAsDuration("RETRY_DELAY", 1000*time.Millisecond),

		DryRun: getEnvAsBool("DRY_RUN", false),

		MaxConcurrentProjects: getEnvAsInt("MAX_CONCURRENT_PROJECTS", 3),
		SourceRateLimitPerMin: getEnvAsInt("SOURCE_RATE_LIMIT_PER_MIN", 300),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RunMigrations:  getEnvAsBool("RUN_MIGRATIONS", true),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/store/migrations"),
		ResumeRunID:    getEnv("RESUME_RUN_ID", ""),
		NATSURL:        getEnv("NATS_URL", ""),

		FormulaFieldsReportPath: getEnv("FORMULA_FIELDS_REPORT_PATH", "formula_fields_report.csv"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required configuration, mirroring the teacher's
// Config.Validate but against this engine's required set (spec §6).
func (c *Config) Validate() error {
	if len(c.SmartsheetAPIToken) != 26 {
		return migerr.Configuration("SMARTSHEET_API_TOKEN must be a 26-character alphanumeric token", nil)
	}
	if c.TenantID == "" {
		return migerr.Configuration("TENANT_ID is required", nil)
	}
	if c.ClientID == "" {
		return migerr.Configuration("CLIENT_ID is required", nil)
	}
	if c.ProjectOnlineURL == "" {
		return migerr.Configuration("PROJECT_ONLINE_URL is required", nil)
	}
	u, err := url.Parse(c.ProjectOnlineURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return migerr.Configuration(fmt.Sprintf("PROJECT_ONLINE_URL %q is not a valid absolute URL", c.ProjectOnlineURL), err)
	}
	switch c.SolutionType {
	case SolutionStandaloneWorkspaces, SolutionPortfolio:
	default:
		return migerr.Configuration(fmt.Sprintf("SOLUTION_TYPE %q must be one of StandaloneWorkspaces|Portfolio", c.SolutionType), nil)
	}
	return nil
}

// TenantRoot returns the scheme+host of ProjectOnlineURL, used to derive the
// device-code OAuth scopes (spec §4.1).
func (c *Config) TenantRoot() string {
	u, err := url.Parse(c.ProjectOnlineURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func defaultTokenCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cache/pmo-migrator"
	}
	return filepath.Join(home, ".cache", "pmo-migrator")
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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
