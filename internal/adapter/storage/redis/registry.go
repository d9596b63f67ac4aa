package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gfredis "github.com/gofiber/storage/redis/v3"
	redigo "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
)

const (
	runKeyPrefix    = "run:"
	latestReportKey = "report:latest"
	runTTL          = 24 * time.Hour
	reportTTL       = 24 * time.Hour
)

type runRegistry struct {
	client redigo.UniversalClient
	cache  *gfredis.Storage
	log    *zap.Logger
}

// NewRunRegistry creates a Redis adapter that tracks recent comparison runs
// and caches the latest full report for dashboards
func NewRunRegistry(client redigo.UniversalClient, cache *gfredis.Storage, log *zap.Logger) port.RunRegistry {
	return &runRegistry{
		client: client,
		cache:  cache,
		log:    log,
	}
}

// RegisterRun keeps the summary visible for 24 hours
func (r *runRegistry) RegisterRun(ctx context.Context, summary *domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s%s", runKeyPrefix, summary.RunID)
	return r.client.Set(ctx, key, data, runTTL).Err()
}

func (r *runRegistry) GetRecentRuns(ctx context.Context) ([]*domain.RunSummary, error) {
	keys, err := r.client.Keys(ctx, runKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	var summaries []*domain.RunSummary
	for _, key := range keys {
		val, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue // Skip expired/deleted keys race condition
		}

		var summary domain.RunSummary
		if err := json.Unmarshal([]byte(val), &summary); err == nil {
			summaries = append(summaries, &summary)
		}
	}
	return summaries, nil
}

// CacheReport stores the most recent full report as a single blob
func (r *runRegistry) CacheReport(ctx context.Context, report *domain.ComparisonReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.cache.Set(latestReportKey, data, reportTTL)
}

func (r *runRegistry) LatestReport(ctx context.Context) (*domain.ComparisonReport, error) {
	data, err := r.cache.Get(latestReportKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var report domain.ComparisonReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
