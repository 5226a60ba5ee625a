package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/crashguard/internal/core/domain"
	"github.com/vietddude/crashguard/internal/infra/storage"
)

// DefaultLimit caps how many reports a ReportRepo keeps.
const DefaultLimit = 1000

// ReportRepo keeps the most recent reports in memory.
type ReportRepo struct {
	mu      sync.RWMutex
	limit   int
	order   []string
	reports map[string]*domain.FailureReport
}

// NewReportRepo creates a repository holding at most limit reports. The
// oldest report is evicted when a new one would exceed it.
func NewReportRepo(limit int) *ReportRepo {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &ReportRepo{
		limit:   limit,
		reports: make(map[string]*domain.FailureReport),
	}
}

func (r *ReportRepo) Add(ctx context.Context, report *domain.FailureReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *report
	if _, exists := r.reports[report.ID]; !exists {
		r.order = append(r.order, report.ID)
	}
	r.reports[report.ID] = &cp

	for len(r.order) > r.limit {
		delete(r.reports, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *ReportRepo) Get(ctx context.Context, id string) (*domain.FailureReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	cp := *report
	return &cp, nil
}

func (r *ReportRepo) Recent(ctx context.Context, limit int) ([]*domain.FailureReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	out := make([]*domain.FailureReport, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.reports[r.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ReportRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

func (r *ReportRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0]
	removed := 0
	for _, id := range r.order {
		if r.reports[id].CreatedAt.Before(before) {
			delete(r.reports, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed, nil
}

var _ storage.ReportRepository = (*ReportRepo)(nil)
