package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/crashguard/internal/infra/storage"
)

// Pruner deletes old failure reports based on a retention policy.
type Pruner struct {
	retention time.Duration
	repo      storage.ReportRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.ReportRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		now:       time.Now,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check every 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) int {
	threshold := p.now().Add(-p.retention)

	removed, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune failure reports", "before", threshold, "error", err)
		return 0
	}
	if removed > 0 {
		slog.Info("Pruned failure reports", "removed", removed, "before", threshold)
	}
	return removed
}
