package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/crashguard/internal/core/domain"
	"github.com/vietddude/crashguard/internal/debug/handlers"
	"github.com/vietddude/crashguard/internal/debug/hook"
	"github.com/vietddude/crashguard/internal/infra/storage/memory"
)

// ============================================================================
// Stubs
// ============================================================================

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) Log(level handlers.LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, string(level)+": "+message)
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type fixture struct {
	server  *Server
	logger  *recordingLogger
	reports *memory.ReportRepo
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()

	logger := &recordingLogger{}
	reports := memory.NewReportRepo(10)
	registry := handlers.NewDefaultRegistry(handlers.Dependencies{
		Config:        handlers.Config{LogErrors: true, IgnoreStatusCodes: []int{http.StatusNotFound}, Production: cfg.Production},
		Logger:        logger,
		Reports:       reports,
		ReportBackend: "memory",
		ReportTimeout: time.Second,
	})
	if cfg.Handlers == nil {
		cfg.Handlers = []string{"report", "log", "api"}
	}

	parent := hook.NewProcess(hook.WithExitFunc(func(int) {
		t.Error("a request must never exit the process")
	}))
	opts = append([]Option{WithReports(reports)}, opts...)
	srv, err := New(cfg, parent, registry, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{server: srv, logger: logger, reports: reports}
}

func (f *fixture) get(path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) handlers.APIPayload {
	t.Helper()
	var payload handlers.APIPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return payload
}

// ============================================================================
// Tests
// ============================================================================

func TestNew_RejectsUnknownHandler(t *testing.T) {
	_, err := New(Config{Handlers: []string{"log", "pager"}}, nil, handlers.NewDefaultRegistry(handlers.Dependencies{}))
	if !errors.Is(err, handlers.ErrInvalidHandler) {
		t.Fatalf("err = %v", err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Config{}, WithHealthCheck("store", func(context.Context) error { return nil }))

	rec := f.get("/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.SystemStatus != StatusHealthy || len(report.Dependencies) != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestHealth_Critical(t *testing.T) {
	f := newFixture(t, Config{},
		WithHealthCheck("a", func(context.Context) error { return nil }),
		WithHealthCheck("b", func(context.Context) error { return errors.New("connection refused") }),
	)

	rec := f.get("/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d", rec.Code)
	}
	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.SystemStatus != StatusCritical {
		t.Errorf("status = %s", report.SystemStatus)
	}
	if report.Dependencies[0].Name != "a" || report.Dependencies[1].Error != "connection refused" {
		t.Errorf("dependencies = %+v", report.Dependencies)
	}
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, Config{})
	f.get("/healthz")

	rec := f.get("/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "crashguard_http_requests_total") {
		t.Error("request counter not exported")
	}
}

func TestFail_Panic(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/debug/fail?kind=panic", "Accept", "application/json")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	payload := decodePayload(t, rec)
	if payload.Code != http.StatusInternalServerError || payload.Message != "forced failure" {
		t.Errorf("payload = %+v", payload)
	}
	if !strings.HasPrefix(payload.Title, "panic(") {
		t.Errorf("title = %s", payload.Title)
	}
	if len(payload.Frames) == 0 {
		t.Error("payload should carry frames")
	}

	if f.logger.count() != 1 {
		t.Errorf("log entries = %d", f.logger.count())
	}
	if n, _ := f.reports.Count(context.Background()); n != 1 {
		t.Errorf("stored reports = %d", n)
	}
}

func TestFail_NotFoundIsNotLogged(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/debug/fail?kind=notfound")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
	if decodePayload(t, rec).Code != http.StatusNotFound {
		t.Error("payload code should follow the failure")
	}
	if f.logger.count() != 0 {
		t.Errorf("404s are ignored by the log handler, got %d entries", f.logger.count())
	}
}

func TestFail_TriggeredWarning(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/debug/fail?kind=error")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	payload := decodePayload(t, rec)
	if payload.Title != "*fault.TriggeredError" || payload.Message != "forced warning" {
		t.Errorf("payload = %+v", payload)
	}

	reports, err := f.reports.Recent(context.Background(), 1)
	if err != nil || len(reports) != 1 {
		t.Fatalf("reports = %v, %v", reports, err)
	}
	if reports[0].Origin != domain.OriginError {
		t.Errorf("origin = %s", reports[0].Origin)
	}
}

func TestFail_DeprecationHandledInPlace(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/debug/fail?kind=deprecated")
	payload := decodePayload(t, rec)
	if payload.Message != "forced deprecation" {
		t.Errorf("payload = %+v", payload)
	}

	reports, _ := f.reports.Recent(context.Background(), 1)
	if len(reports) != 1 || reports[0].Origin != domain.OriginError {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestFail_HTMLClientGetsStatusOnly(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/debug/fail?kind=panic", "Accept", "text/html")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q", rec.Body.String())
	}
	if f.logger.count() != 1 {
		t.Errorf("log entries = %d", f.logger.count())
	}
}

func TestFail_UnknownKind(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/debug/fail?kind=meteor")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
	if f.logger.count() != 0 {
		t.Error("bad input is not a failure")
	}
}

func TestFail_HiddenInProduction(t *testing.T) {
	f := newFixture(t, Config{Production: true})

	if rec := f.get("/debug/fail?kind=panic"); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestReports(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = f.reports.Add(ctx, &domain.FailureReport{ID: id, Message: "m-" + id, CreatedAt: time.Now()})
	}

	rec := f.get("/reports?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var got []domain.FailureReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("reports = %+v", got)
	}

	if rec := f.get("/reports?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit code = %d", rec.Code)
	}
}

func TestRequestScopesAreIndependent(t *testing.T) {
	f := newFixture(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := f.get("/debug/fail?kind=panic"); rec.Code != http.StatusInternalServerError {
				t.Errorf("code = %d", rec.Code)
			}
		}()
	}
	wg.Wait()

	if f.logger.count() != 8 {
		t.Errorf("log entries = %d", f.logger.count())
	}
	if rec := f.get("/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz after failures = %d", rec.Code)
	}
}
