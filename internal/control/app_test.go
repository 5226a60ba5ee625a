package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/crashguard/internal/core/config"
	"github.com/vietddude/crashguard/internal/debug/fault"
	"github.com/vietddude/crashguard/internal/debug/handlers"
	"github.com/vietddude/crashguard/internal/debug/hook"
)

func testConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Server.Port = 0 // Random port
	cfg.ErrorHandling.Handlers = []string{"metrics", "report", "api"}
	return cfg
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := testConfig()
	cfg.Reports.Backend = ""

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	if store.Backend != config.BackendMemory || store.Check != nil {
		t.Errorf("store = %+v", store)
	}
}

func TestOpenStore_Unknown(t *testing.T) {
	cfg := testConfig()
	cfg.Reports.Backend = "s3"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("expected an error")
	}
}

func TestNewApp_UnknownHandler(t *testing.T) {
	cfg := testConfig()
	cfg.ErrorHandling.Handlers = []string{"log", "pager"}

	_, err := NewApp(context.Background(), cfg, hook.NewProcess(hook.WithExitFunc(func(int) {})))
	if !errors.Is(err, handlers.ErrInvalidHandler) {
		t.Fatalf("err = %v", err)
	}
}

func TestApp_ProcessFailuresAreJournaled(t *testing.T) {
	exitCode := -1
	proc := hook.NewProcess(hook.WithExitFunc(func(code int) { exitCode = code }))

	app, err := NewApp(context.Background(), testConfig(), proc)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	func() {
		defer proc.Recover()
		panic(fault.WithExitCode(errors.New("worker crashed"), 7))
	}()

	n, err := app.store.Reports.Count(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("stored reports = %d, %v", n, err)
	}
	if exitCode != -1 {
		t.Errorf("no handler terminates outside a request, exit = %d", exitCode)
	}
}

func TestApp_Lifecycle(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), hook.NewProcess(hook.WithExitFunc(func(int) {})))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	rec := httptest.NewRecorder()
	app.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
