package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vietddude/crashguard/internal/core/domain"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig fits inside the report handler's timeout.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    50 * time.Millisecond,
	MaxDelay:        500 * time.Millisecond,
	BackoffMultiple: 2.0,
}

// RetryingRepository retries Add with exponential backoff. Adds must be
// idempotent per report ID. Reads are passed through.
type RetryingRepository struct {
	ReportRepository
	config RetryConfig
}

// WithRetry wraps repo so writes survive short outages.
func WithRetry(repo ReportRepository, config RetryConfig) *RetryingRepository {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &RetryingRepository{ReportRepository: repo, config: config}
}

func (r *RetryingRepository) Add(ctx context.Context, report *domain.FailureReport) error {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		err := r.ReportRepository.Add(ctx, report)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		delay := calculateBackoff(attempt, r.config)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
