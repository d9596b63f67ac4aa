package port

import (
	"context"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

// ResultRepository defines how comparison runs are persisted
type ResultRepository interface {
	SaveReport(ctx context.Context, report *domain.ComparisonReport) error
	SaveRunResult(ctx context.Context, runID string, result *domain.RunResult) error
	GetReport(ctx context.Context, runID string) (*domain.ComparisonReport, error)
	ListRecentReports(ctx context.Context, limit int) ([]*domain.ComparisonReport, error)
}

// RunRegistry defines how finished runs are announced to dashboards (Redis)
type RunRegistry interface {
	RegisterRun(ctx context.Context, summary *domain.RunSummary) error
	GetRecentRuns(ctx context.Context) ([]*domain.RunSummary, error)
	CacheReport(ctx context.Context, report *domain.ComparisonReport) error
	LatestReport(ctx context.Context) (*domain.ComparisonReport, error)
}

// QueueService defines how run requests are dispatched to workers
type QueueService interface {
	PublishRunRequest(ctx context.Context, req *domain.RunRequest) error
	PublishReport(ctx context.Context, report *domain.ComparisonReport) error
	ConsumeRunRequests(ctx context.Context, handler func(req *domain.RunRequest) error) error
}

// TelemetryService defines how we fetch live host metrics (Prometheus)
type TelemetryService interface {
	GetHostMetrics(ctx context.Context) (float64, float64, error) // Returns CPU, Mem usage
}

// MetricsPublisher defines how run outcomes are exposed to scrapers
type MetricsPublisher interface {
	ObserveReport(report *domain.ComparisonReport)
}
