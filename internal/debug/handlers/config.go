package handlers

import (
	"net/http"
	"slices"

	"github.com/vietddude/crashguard/internal/debug/fault"
)

// Config controls which failures the built-in handlers act on.
type Config struct {
	// LogErrors turns LogErrorHandler on.
	LogErrors bool `yaml:"log_errors"`
	// IgnoreStatusCodes lists HTTP statuses that are not logged.
	IgnoreStatusCodes []int `yaml:"ignore_status_codes"`
	// IgnoreErrorCodes lists severities that are not logged.
	IgnoreErrorCodes []fault.Severity `yaml:"ignore_error_codes"`
	// Production hides failure details from API responses.
	Production bool `yaml:"-"`
}

// DefaultConfig logs everything except 404s.
func DefaultConfig() Config {
	return Config{
		LogErrors:         true,
		IgnoreStatusCodes: []int{http.StatusNotFound},
	}
}

func (c Config) ignoresStatus(status int) bool {
	return slices.Contains(c.IgnoreStatusCodes, status)
}

func (c Config) ignoresSeverity(sev fault.Severity) bool {
	return slices.Contains(c.IgnoreErrorCodes, sev)
}
