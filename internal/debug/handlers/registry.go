package handlers

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/crashguard/internal/infra/storage"
)

// ErrInvalidHandler is returned for anything that does not resolve to a
// Handler.
var ErrInvalidHandler = errors.New("invalid handler")

// Factory builds a fresh handler.
type Factory func() Handler

// Registry resolves handler names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds name to f, replacing any earlier binding.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory bound to name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies are what the built-in handlers are constructed with.
type Dependencies struct {
	Config        Config
	Logger        Logger
	Reports       storage.ReportRepository
	ReportBackend string
	ReportTimeout time.Duration
}

// NewDefaultRegistry registers the built-in handlers under "log", "api",
// "metrics" and, when a report repository is given, "report".
func NewDefaultRegistry(deps Dependencies) *Registry {
	r := NewRegistry()
	r.Register("log", func() Handler { return NewLogErrorHandler(deps.Config, deps.Logger) })
	r.Register("api", func() Handler { return NewApiResponseErrorHandler(deps.Config) })
	r.Register("metrics", func() Handler { return NewMetricsErrorHandler(deps.Config) })
	if deps.Reports != nil {
		r.Register("report", func() Handler {
			return NewReportErrorHandler(deps.Config, deps.Reports, deps.ReportBackend, deps.ReportTimeout)
		})
	}
	return r
}
