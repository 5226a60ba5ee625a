package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/crashguard/internal/core/domain"
	"github.com/vietddude/crashguard/internal/debug/fault"
	"github.com/vietddude/crashguard/internal/debug/inspection"
	"github.com/vietddude/crashguard/internal/infra/storage"
	"github.com/vietddude/crashguard/internal/metrics"
)

// DefaultReportTimeout bounds a single report write.
const DefaultReportTimeout = 2 * time.Second

// ReportErrorHandler journals failures to a report repository. Storage
// problems are logged and never stop the chain.
type ReportErrorHandler struct {
	Base
	repo    storage.ReportRepository
	backend string
	timeout time.Duration
	now     func() time.Time
}

// NewReportErrorHandler creates a handler writing to repo. backend labels the
// write metrics.
func NewReportErrorHandler(cfg Config, repo storage.ReportRepository, backend string, timeout time.Duration) *ReportErrorHandler {
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	return &ReportErrorHandler{
		Base:    NewBase(cfg),
		repo:    repo,
		backend: backend,
		timeout: timeout,
		now:     time.Now,
	}
}

func (h *ReportErrorHandler) Valid() bool {
	_, err := h.Inspector()
	return err == nil && h.repo != nil
}

func (h *ReportErrorHandler) Handle() (Status, error) {
	in, err := h.Inspector()
	if err != nil {
		return StatusContinue, err
	}

	report := h.build(in)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.repo.Add(ctx, report); err != nil {
		metrics.ReportsStored.WithLabelValues(h.backend, "error").Inc()
		slog.Error("Failed to store failure report", "id", report.ID, "backend", h.backend, "error", err)
		return StatusContinue, nil
	}
	metrics.ReportsStored.WithLabelValues(h.backend, "ok").Inc()
	return StatusContinue, nil
}

func (h *ReportErrorHandler) build(in *inspection.Inspector) *domain.FailureReport {
	status, _ := in.StatusCode()

	var causes []string
	for prev := in.Previous(); prev != nil; prev = prev.Previous() {
		causes = append(causes, "["+prev.Name()+"] "+prev.Message())
	}

	return &domain.FailureReport{
		ID:         uuid.NewString(),
		Kind:       in.Name(),
		Message:    in.Message(),
		File:       fault.CleanPath(in.File()),
		Line:       in.Line(),
		StatusCode: status,
		Severity:   in.Severity().String(),
		Causes:     causes,
		Trace:      renderFrames(in.Frames(), h.format),
		Origin:     originOf(in.Failure()),
		CreatedAt:  h.now().UTC(),
	}
}

func originOf(err error) domain.Origin {
	return domain.Origin(fault.Origin(err))
}
