package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
)

// ComparisonConfig drives a full comparison run: batch shape, policy set,
// time budget and energy constants.
type ComparisonConfig struct {
	TaskCount  int
	Algorithms []string
	Generator  GeneratorConfig
	Simulator  SimulatorConfig
	Energy     EnergyModel
}

// Validate rejects configs no run could satisfy.
func (c ComparisonConfig) Validate() error {
	if c.TaskCount <= 0 {
		return fmt.Errorf("task count must be positive, got %d", c.TaskCount)
	}
	if len(c.Algorithms) == 0 {
		return fmt.Errorf("algorithm list is empty")
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	return c.Simulator.Validate()
}

type comparisonService struct {
	cfg       ComparisonConfig
	repo      port.ResultRepository
	registry  port.RunRegistry
	queue     port.QueueService
	telemetry port.TelemetryService
	log       *zap.Logger
}

// NewComparisonService wires the comparison pipeline. Every port except the
// logger may be nil; absent collaborators are skipped, the run itself always
// completes locally.
func NewComparisonService(
	cfg ComparisonConfig,
	repo port.ResultRepository,
	registry port.RunRegistry,
	queue port.QueueService,
	telemetry port.TelemetryService,
	log *zap.Logger,
) (*comparisonService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid comparison config: %w", err)
	}
	return &comparisonService{
		cfg:       cfg,
		repo:      repo,
		registry:  registry,
		queue:     queue,
		telemetry: telemetry,
		log:       log,
	}, nil
}

// Run executes a comparison with the configured batch shape and a fresh
// run ID.
func (s *comparisonService) Run(ctx context.Context, seed int64) (*domain.ComparisonReport, error) {
	return s.Execute(ctx, &domain.RunRequest{
		RunID:       NewRunID(),
		Seed:        seed,
		SubmittedAt: time.Now(),
	})
}

// Execute runs the full pipeline for one request: generate an identical
// batch per policy, run every policy, rank, then fan results out to the
// configured collaborators. Collaborator failures are logged and skipped;
// the report is still returned.
func (s *comparisonService) Execute(ctx context.Context, req *domain.RunRequest) (*domain.ComparisonReport, error) {
	taskCount := req.TaskCount
	if taskCount <= 0 {
		taskCount = s.cfg.TaskCount
	}
	algorithms := req.Algorithms
	if len(algorithms) == 0 {
		algorithms = s.cfg.Algorithms
	}
	simCfg := s.cfg.Simulator
	if req.SimulationTime > 0 {
		simCfg.SimulationTime = req.SimulationTime
	}

	startedAt := time.Now()
	s.log.Info("Starting comparison run",
		zap.String("run_id", req.RunID),
		zap.Int64("seed", req.Seed),
		zap.Int("task_count", taskCount),
		zap.Strings("algorithms", algorithms))

	s.sampleHostTelemetry(ctx)

	generator, err := NewBatchGenerator(s.cfg.Generator, req.Seed)
	if err != nil {
		return nil, err
	}
	batch, err := generator.Generate(taskCount)
	if err != nil {
		return nil, fmt.Errorf("generate batch: %w", err)
	}

	model := s.cfg.Energy
	simulator, err := NewSimulator(simCfg, &model, s.log)
	if err != nil {
		return nil, err
	}

	results, err := simulator.RunAll(ctx, algorithms, batch)
	if err != nil {
		return nil, fmt.Errorf("run policies: %w", err)
	}

	records := make(map[string]domain.MetricsRecord, len(results))
	for name, res := range results {
		records[name] = res.Record
	}

	report := &domain.ComparisonReport{
		RunID:      req.RunID,
		Seed:       req.Seed,
		TaskCount:  taskCount,
		Order:      algorithms,
		Results:    records,
		Comparison: Rank(algorithms, records),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}

	s.log.Info("Comparison run complete",
		zap.String("run_id", report.RunID),
		zap.String("best_by_energy", report.Comparison.BestByEnergy),
		zap.String("best_by_co2", report.Comparison.BestByCO2),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	s.persistReport(ctx, report, results)
	s.registerRun(ctx, report)
	s.publishReport(ctx, report)

	return report, nil
}

func (s *comparisonService) sampleHostTelemetry(ctx context.Context) {
	if s.telemetry == nil {
		return
	}
	cpu, mem, err := s.telemetry.GetHostMetrics(ctx)
	if err != nil {
		s.log.Warn("Host telemetry unavailable", zap.Error(err))
		return
	}
	s.log.Info("Host telemetry sample",
		zap.Float64("cpu_usage", cpu),
		zap.Float64("memory_usage", mem))
}

func (s *comparisonService) persistReport(ctx context.Context, report *domain.ComparisonReport, results map[string]*domain.RunResult) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveReport(ctx, report); err != nil {
		s.log.Warn("Failed to persist report", zap.String("run_id", report.RunID), zap.Error(err))
		return
	}
	for _, name := range report.Order {
		if err := s.repo.SaveRunResult(ctx, report.RunID, results[name]); err != nil {
			s.log.Warn("Failed to persist run result",
				zap.String("run_id", report.RunID),
				zap.String("algorithm", name),
				zap.Error(err))
		}
	}
}

func (s *comparisonService) registerRun(ctx context.Context, report *domain.ComparisonReport) {
	if s.registry == nil {
		return
	}
	summary := &domain.RunSummary{
		RunID:        report.RunID,
		Seed:         report.Seed,
		TaskCount:    report.TaskCount,
		BestByEnergy: report.Comparison.BestByEnergy,
		BestByCO2:    report.Comparison.BestByCO2,
		FinishedAt:   report.FinishedAt,
	}
	if err := s.registry.RegisterRun(ctx, summary); err != nil {
		s.log.Warn("Failed to register run", zap.String("run_id", report.RunID), zap.Error(err))
	}
	if err := s.registry.CacheReport(ctx, report); err != nil {
		s.log.Warn("Failed to cache report", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

func (s *comparisonService) publishReport(ctx context.Context, report *domain.ComparisonReport) {
	if s.queue == nil {
		return
	}
	if err := s.queue.PublishReport(ctx, report); err != nil {
		s.log.Warn("Failed to publish report", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// NewRunID yields a unique identifier for a comparison run.
func NewRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}
