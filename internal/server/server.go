// Package server is the HTTP surface of crashguard. Every request runs
// inside its own Debug, so a failing route is answered by the configured
// handler chain instead of taking the process down.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/crashguard/internal/debug"
	"github.com/vietddude/crashguard/internal/debug/fault"
	"github.com/vietddude/crashguard/internal/debug/handlers"
	"github.com/vietddude/crashguard/internal/debug/hook"
	"github.com/vietddude/crashguard/internal/debug/output"
	"github.com/vietddude/crashguard/internal/infra/storage"
	"github.com/vietddude/crashguard/internal/metrics"
	"github.com/vietddude/crashguard/internal/transport/httpx"
)

const (
	defaultReportsLimit = 20
	maxReportsLimit     = 500
)

// Config holds the server settings.
type Config struct {
	Port int
	// Handlers are registry names, run in order for every failing request.
	Handlers []string
	// Production hides the failure routes.
	Production bool
}

// Server provides the HTTP endpoints.
type Server struct {
	runtime  hook.Runtime
	registry *handlers.Registry
	handlers []string
	reports  storage.ReportRepository
	checks   map[string]HealthCheck
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithReports serves the given journal at /reports.
func WithReports(repo storage.ReportRepository) Option {
	return func(s *Server) { s.reports = repo }
}

// WithHealthCheck adds a dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// New creates a server. Request scopes inherit the error-reporting mask of
// parent. Every handler name must be known to registry.
func New(cfg Config, parent hook.Runtime, registry *handlers.Registry, opts ...Option) (*Server, error) {
	for _, name := range cfg.Handlers {
		if _, ok := registry.Lookup(name); !ok {
			return nil, fmt.Errorf("%w: %q is not registered", handlers.ErrInvalidHandler, name)
		}
	}

	mux := http.NewServeMux()
	s := &Server{
		runtime:  parent,
		registry: registry,
		handlers: cfg.Handlers,
		checks:   make(map[string]HealthCheck),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.Handle("/healthz", s.guard("/healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", s.guard("/metrics", promhttp.Handler()))
	if s.reports != nil {
		mux.Handle("/reports", s.guard("/reports", http.HandlerFunc(s.handleReports)))
	}
	if !cfg.Production {
		mux.Handle("/debug/fail", s.guard("/debug/fail", http.HandlerFunc(s.handleFail)))
	}

	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server. It returns nil after Stop.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// guard runs next inside a request scope with its own Debug registered.
func (s *Server) guard(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := httpx.NewStatusWriter(w)
		defer func() {
			code := sw.Status()
			if code == 0 {
				code = http.StatusOK
			}
			metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
		}()

		scope := hook.NewRequestScope(s.runtime)
		out := output.New(sw)
		d := debug.New(scope,
			debug.WithRequest(httpx.NewRequest(r)),
			debug.WithResponse(httpx.NewResponse(sw, out)),
			debug.WithOutput(out),
			debug.WithRegistry(s.registry),
			debug.WithReserve(debug.NewReserve()),
		)
		for _, name := range s.handlers {
			if err := d.Append(name); err != nil {
				slog.Error("Failed to build failure handler", "handler", name, "error", err)
				http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		d.Register()

		defer scope.Close()
		defer scope.Recover()

		next.ServeHTTP(sw, r.WithContext(hook.ContextWithScope(r.Context(), scope)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := checkHealth(r.Context(), s.checks)

	w.Header().Set("Content-Type", "application/json")
	if report.SystemStatus == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxReportsLimit)
	}

	reports, err := s.reports.Recent(r.Context(), limit)
	if err != nil {
		panic(fmt.Errorf("failed to list reports: %w", err))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reports)
}

var errForcedFailure = errors.New("forced failure")

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	switch kind {
	case "panic":
		panic(errForcedFailure)
	case "notfound":
		panic(fault.WithStatus(fmt.Errorf("%w: nothing here", errForcedFailure), http.StatusNotFound))
	case "error":
		scope, ok := hook.ScopeFrom(r.Context())
		if !ok {
			panic(errForcedFailure)
		}
		scope.Trigger(fault.SeverityUserWarning, "forced warning")
	case "deprecated":
		scope, ok := hook.ScopeFrom(r.Context())
		if !ok {
			panic(errForcedFailure)
		}
		scope.Trigger(fault.SeverityUserDeprecated, "forced deprecation")
		if _, exited := scope.Exited(); exited {
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", kind))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"kind": kind, "status": "handled"})
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
