package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/crashguard/internal/core/domain"
	"github.com/vietddude/crashguard/internal/infra/storage"
)

// ReportRepo implements storage.ReportRepository using PostgreSQL.
type ReportRepo struct {
	db *DB
}

// NewReportRepo creates a new PostgreSQL report repository.
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

type reportRow struct {
	ID         string         `db:"id"`
	Kind       string         `db:"kind"`
	Message    string         `db:"message"`
	File       string         `db:"file"`
	Line       int            `db:"line"`
	StatusCode int            `db:"status_code"`
	Severity   string         `db:"severity"`
	Causes     pq.StringArray `db:"causes"`
	Trace      string         `db:"trace"`
	Origin     string         `db:"origin"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (row reportRow) toDomain() *domain.FailureReport {
	return &domain.FailureReport{
		ID:         row.ID,
		Kind:       row.Kind,
		Message:    row.Message,
		File:       row.File,
		Line:       row.Line,
		StatusCode: row.StatusCode,
		Severity:   row.Severity,
		Causes:     []string(row.Causes),
		Trace:      row.Trace,
		Origin:     domain.Origin(row.Origin),
		CreatedAt:  row.CreatedAt,
	}
}

const selectReport = `
	SELECT id, kind, message, file, line, status_code, severity, causes, trace, origin, created_at
	FROM failure_reports
`

// Add inserts a report.
func (r *ReportRepo) Add(ctx context.Context, report *domain.FailureReport) error {
	query := `
		INSERT INTO failure_reports (id, kind, message, file, line, status_code, severity, causes, trace, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	origin := report.Origin
	if origin == "" {
		origin = domain.OriginException
	}
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.Kind,
		report.Message,
		report.File,
		report.Line,
		report.StatusCode,
		report.Severity,
		pq.StringArray(report.Causes),
		report.Trace,
		string(origin),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add report: %w", err)
	}
	return nil
}

// Get retrieves a report by ID.
func (r *ReportRepo) Get(ctx context.Context, id string) (*domain.FailureReport, error) {
	var row reportRow
	err := r.db.GetContext(ctx, &row, selectReport+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return row.toDomain(), nil
}

// Recent returns up to limit reports, newest first.
func (r *ReportRepo) Recent(ctx context.Context, limit int) ([]*domain.FailureReport, error) {
	var rows []reportRow
	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &rows, selectReport+` ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, selectReport+` ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]*domain.FailureReport, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toDomain())
	}
	return reports, nil
}

// Count returns the number of stored reports.
func (r *ReportRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM failure_reports`); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes reports created before the given time.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM failure_reports WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted reports: %w", err)
	}
	return int(n), nil
}

var _ storage.ReportRepository = (*ReportRepo)(nil)
