package server

import (
	"context"
	"sort"
)

// SystemStatus represents the overall health state of the service or a
// dependency.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusCritical SystemStatus = "critical"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// DependencyHealth is the outcome of one HealthCheck.
type DependencyHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full service health report.
type HealthReport struct {
	SystemStatus SystemStatus       `json:"system_status"`
	Dependencies []DependencyHealth `json:"dependencies"`
}

func checkHealth(ctx context.Context, checks map[string]HealthCheck) HealthReport {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := HealthReport{SystemStatus: StatusHealthy, Dependencies: []DependencyHealth{}}
	for _, name := range names {
		dep := DependencyHealth{Name: name, Status: StatusHealthy}
		if err := checks[name](ctx); err != nil {
			dep.Status = StatusCritical
			dep.Error = err.Error()
			// Worst case wins
			report.SystemStatus = StatusCritical
		}
		report.Dependencies = append(report.Dependencies, dep)
	}
	return report
}
