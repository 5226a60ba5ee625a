package handlers

import (
	"strconv"

	"github.com/vietddude/crashguard/internal/metrics"
)

// MetricsErrorHandler counts failures by kind, severity and status.
type MetricsErrorHandler struct {
	Base
}

func NewMetricsErrorHandler(cfg Config) *MetricsErrorHandler {
	return &MetricsErrorHandler{Base: NewBase(cfg)}
}

func (h *MetricsErrorHandler) Valid() bool {
	_, err := h.Inspector()
	return err == nil
}

func (h *MetricsErrorHandler) Handle() (Status, error) {
	in, err := h.Inspector()
	if err != nil {
		return StatusContinue, err
	}

	status := "invalid"
	if code, err := in.StatusCode(); err == nil {
		status = strconv.Itoa(code)
	}
	metrics.FailuresTotal.WithLabelValues(in.Name(), in.Severity().String(), status).Inc()
	return StatusContinue, nil
}
