package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/crashguard/internal/core/domain"
)

var (
	// ErrReportNotFound is returned when a report doesn't exist
	ErrReportNotFound = errors.New("report not found")
)

// ReportRepository handles failure report storage operations
type ReportRepository interface {
	// Add stores a report. The report must have an ID.
	Add(ctx context.Context, report *domain.FailureReport) error

	// Get retrieves a report by ID
	Get(ctx context.Context, id string) (*domain.FailureReport, error)

	// Recent returns up to limit reports, newest first
	Recent(ctx context.Context, limit int) ([]*domain.FailureReport, error)

	// Count returns the number of stored reports
	Count(ctx context.Context) (int, error)

	// DeleteOlderThan removes reports created before the given time and
	// returns how many were removed
	DeleteOlderThan(ctx context.Context, before time.Time) (int, error)
}
