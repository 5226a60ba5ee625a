package config

import (
	"time"

	"github.com/vietddude/crashguard/internal/debug/handlers"
	redisclient "github.com/vietddude/crashguard/internal/infra/redis"
	"github.com/vietddude/crashguard/internal/infra/storage/postgres"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Report backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Environment   string              `yaml:"environment"`
	ErrorHandling ErrorHandlingConfig `yaml:"error_handling"`
	Reports       ReportsConfig       `yaml:"reports"`
	Redis         redisclient.Config  `yaml:"redis"`
	Database      postgres.Config     `yaml:"database"`
}

// Production reports whether the service runs in production.
func (c *AppConfig) Production() bool {
	return c.Environment == EnvProduction
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ErrorHandlingConfig controls the failure handler chain.
type ErrorHandlingConfig struct {
	handlers.Config `yaml:",inline"`

	// Handlers are registry names, run in order.
	Handlers      []string      `yaml:"handlers"`
	ReportTimeout time.Duration `yaml:"report_timeout"`
}

// ReportsConfig selects where the failure journal lives.
type ReportsConfig struct {
	Backend   string        `yaml:"backend"` // memory, redis, postgres
	Limit     int           `yaml:"limit"`
	TTL       time.Duration `yaml:"ttl"`       // redis only
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}
