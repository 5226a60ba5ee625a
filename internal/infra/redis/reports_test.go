package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/crashguard/internal/core/domain"
	"github.com/vietddude/crashguard/internal/infra/storage"
)

func newLiveRepo(t *testing.T, limit int) *ReportRepo {
	t.Helper()
	url := os.Getenv("CRASHGUARD_REDIS_URL")
	if url == "" {
		t.Skip("CRASHGUARD_REDIS_URL not set")
	}
	client, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	namespace := "crashguard-test-" + uuid.NewString()
	repo := NewReportRepo(client, namespace, time.Minute, limit)
	t.Cleanup(func() {
		_ = client.rdb.Del(context.Background(), repo.indexKey()).Err()
	})
	return repo
}

func TestReportRepo_Live(t *testing.T) {
	repo := newLiveRepo(t, 2)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		err := repo.Add(ctx, &domain.FailureReport{
			ID:        id,
			Kind:      "*errors.errorString",
			Message:   "boom " + id,
			Causes:    []string{"root"},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	count, err := repo.Count(ctx)
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}

	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "b" {
		t.Fatalf("recent = %+v", recent)
	}
	if len(recent[0].Causes) != 1 {
		t.Errorf("causes lost: %+v", recent[0])
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, storage.ErrReportNotFound) {
		t.Errorf("missing report: %v", err)
	}

	removed, err := repo.DeleteOlderThan(ctx, base.Add(2*time.Second))
	if err != nil || removed != 1 {
		t.Fatalf("removed = %d, %v", removed, err)
	}
	if _, err := repo.Get(ctx, "b"); !errors.Is(err, storage.ErrReportNotFound) {
		t.Errorf("pruned report still readable: %v", err)
	}
}
