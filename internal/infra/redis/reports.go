package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/crashguard/internal/core/domain"
	"github.com/vietddude/crashguard/internal/infra/storage"
)

const (
	defaultNamespace = "crashguard"
	defaultTTL       = 7 * 24 * time.Hour
	defaultLimit     = 1000
)

// ReportRepo implements storage.ReportRepository using Redis. Report bodies
// are stored under their own keys with a TTL; a sorted set scored by creation
// time indexes them and is trimmed to limit entries.
type ReportRepo struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
	limit     int
}

// NewReportRepo creates a new Redis-backed report repository.
func NewReportRepo(client *Client, namespace string, ttl time.Duration, limit int) *ReportRepo {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &ReportRepo{
		rdb:       client.rdb,
		namespace: namespace,
		ttl:       ttl,
		limit:     limit,
	}
}

// Key helpers
func (r *ReportRepo) indexKey() string {
	return fmt.Sprintf("%s:reports", r.namespace)
}

func (r *ReportRepo) reportKey(id string) string {
	return fmt.Sprintf("%s:report:%s", r.namespace, id)
}

// Add stores a report and trims the index to the configured limit.
func (r *ReportRepo) Add(ctx context.Context, report *domain.FailureReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.reportKey(report.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(report.CreatedAt.UnixNano()),
		Member: report.ID,
	})
	// Keep only the newest entries
	pipe.ZRemRangeByRank(ctx, r.indexKey(), 0, int64(-r.limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add report: %w", err)
	}
	return nil
}

// Get retrieves a report by ID.
func (r *ReportRepo) Get(ctx context.Context, id string) (*domain.FailureReport, error) {
	data, err := r.rdb.Get(ctx, r.reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report domain.FailureReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// Recent returns up to limit reports, newest first. Index entries whose body
// has expired are removed on the way.
func (r *ReportRepo) Recent(ctx context.Context, limit int) ([]*domain.FailureReport, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.rdb.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	reports := make([]*domain.FailureReport, 0, len(ids))
	for _, id := range ids {
		report, err := r.Get(ctx, id)
		if errors.Is(err, storage.ErrReportNotFound) {
			// Data expired but ID still indexed, remove it
			r.rdb.ZRem(ctx, r.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Count returns the number of indexed reports.
func (r *ReportRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

// DeleteOlderThan drops index entries and bodies created before the given
// time. Bodies normally expire on their own through the TTL.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	upper := fmt.Sprintf("(%d", before.UnixNano())
	ids, err := r.rdb.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.reportKey(id))
		members = append(members, id)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, r.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	return len(ids), nil
}

var _ storage.ReportRepository = (*ReportRepo)(nil)
