package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
)

type workerService struct {
	workerID  string
	runner    *comparisonService
	queue     port.QueueService
	metrics   port.MetricsPublisher
	log       *zap.Logger
	processed atomic.Int64
}

// NewWorkerService builds a worker that executes comparison runs requested
// over the queue. The metrics publisher may be nil.
func NewWorkerService(
	workerID string,
	runner *comparisonService,
	queue port.QueueService,
	metrics port.MetricsPublisher,
	log *zap.Logger,
) *workerService {
	return &workerService{
		workerID: workerID,
		runner:   runner,
		queue:    queue,
		metrics:  metrics,
		log:      log,
	}
}

// StartWorker begins consuming run requests until the context ends.
func (w *workerService) StartWorker(ctx context.Context) error {
	w.log.Info("Starting simulation worker", zap.String("id", w.workerID))

	go w.statusLoop(ctx)

	if err := w.queue.ConsumeRunRequests(ctx, w.processRequest(ctx)); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	return nil
}

func (w *workerService) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.log.Debug("Worker alive",
				zap.String("id", w.workerID),
				zap.Int64("runs_processed", w.processed.Load()))
		}
	}
}

func (w *workerService) processRequest(ctx context.Context) func(req *domain.RunRequest) error {
	return func(req *domain.RunRequest) error {
		w.log.Info("Processing run request",
			zap.String("run_id", req.RunID),
			zap.Int64("seed", req.Seed),
			zap.Duration("queued_for", time.Since(req.SubmittedAt)))

		report, err := w.runner.Execute(ctx, req)
		if err != nil {
			w.log.Error("Run request failed", zap.String("run_id", req.RunID), zap.Error(err))
			return err
		}

		w.processed.Add(1)
		if w.metrics != nil {
			w.metrics.ObserveReport(report)
		}

		w.log.Info("Run request completed",
			zap.String("run_id", report.RunID),
			zap.String("best_by_energy", report.Comparison.BestByEnergy))
		return nil
	}
}
