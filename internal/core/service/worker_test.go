package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

type stubMetricsPublisher struct {
	observed []*domain.ComparisonReport
}

func (s *stubMetricsPublisher) ObserveReport(report *domain.ComparisonReport) {
	s.observed = append(s.observed, report)
}

func TestWorker_ProcessesQueuedRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := NewComparisonService(comparisonTestConfig(), nil, nil, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewComparisonService() error = %v", err)
	}

	queue := &stubQueue{
		requests: []*domain.RunRequest{
			{RunID: "run-1", Seed: 1, SubmittedAt: time.Now()},
			{RunID: "run-2", Seed: 2, TaskCount: 3, SubmittedAt: time.Now()},
		},
	}
	metrics := &stubMetricsPublisher{}

	worker := NewWorkerService("worker-test", runner, queue, metrics, zap.NewNop())
	if err := worker.StartWorker(ctx); err != nil {
		t.Fatalf("StartWorker() error = %v", err)
	}

	if len(metrics.observed) != 2 {
		t.Fatalf("observed %d reports, want 2", len(metrics.observed))
	}
	if metrics.observed[0].RunID != "run-1" || metrics.observed[1].RunID != "run-2" {
		t.Errorf("observed run ids = %q, %q, want run-1, run-2",
			metrics.observed[0].RunID, metrics.observed[1].RunID)
	}
	if got := metrics.observed[1].TaskCount; got != 3 {
		t.Errorf("second run TaskCount = %d, want requested 3", got)
	}
}

func TestWorker_PropagatesRequestFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := NewComparisonService(comparisonTestConfig(), nil, nil, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewComparisonService() error = %v", err)
	}

	queue := &stubQueue{
		requests: []*domain.RunRequest{
			{RunID: "run-bad", Algorithms: []string{"Bogus"}, SubmittedAt: time.Now()},
		},
	}

	worker := NewWorkerService("worker-test", runner, queue, nil, zap.NewNop())
	if err := worker.StartWorker(ctx); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("StartWorker() error = %v, want ErrUnknownPolicy", err)
	}
}

func TestWorker_NilMetricsPublisher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := NewComparisonService(comparisonTestConfig(), nil, nil, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewComparisonService() error = %v", err)
	}

	queue := &stubQueue{
		requests: []*domain.RunRequest{{RunID: "run-1", Seed: 1, SubmittedAt: time.Now()}},
	}

	worker := NewWorkerService("worker-test", runner, queue, nil, zap.NewNop())
	if err := worker.StartWorker(ctx); err != nil {
		t.Errorf("StartWorker() error = %v with nil metrics publisher", err)
	}
}
