package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/crashguard/internal/debug/handlers"
)

// Default returns the configuration used for anything a file leaves out.
func Default() *AppConfig {
	return &AppConfig{
		Server:      ServerConfig{Port: 8080},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		Environment: EnvDevelopment,
		ErrorHandling: ErrorHandlingConfig{
			Config:        handlers.DefaultConfig(),
			Handlers:      []string{"metrics", "report", "log", "api"},
			ReportTimeout: handlers.DefaultReportTimeout,
		},
		Reports: ReportsConfig{
			Backend:   BackendMemory,
			Limit:     1000,
			TTL:       7 * 24 * time.Hour,
			Retention: 30 * 24 * time.Hour,
		},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.ErrorHandling.ReportTimeout <= 0 {
		cfg.ErrorHandling.ReportTimeout = handlers.DefaultReportTimeout
	}
	cfg.ErrorHandling.Production = cfg.Production()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a fixed set of choices.
func (c *AppConfig) Validate() error {
	if !slices.Contains([]string{EnvDevelopment, EnvProduction}, c.Environment) {
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if len(c.ErrorHandling.Handlers) == 0 {
		return fmt.Errorf("error_handling.handlers must name at least one handler")
	}

	switch c.Reports.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("reports backend %q needs redis.url", c.Reports.Backend)
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("reports backend %q needs database.url", c.Reports.Backend)
		}
	default:
		return fmt.Errorf("invalid reports backend %q", c.Reports.Backend)
	}
	return nil
}
