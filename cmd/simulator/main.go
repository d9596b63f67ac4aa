package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/config/logger"
	postgresConfig "github.com/joulemark/green-scheduler/config/storage/postgresql"
	redisConfig "github.com/joulemark/green-scheduler/config/storage/redis"
	config "github.com/joulemark/green-scheduler/config/utils"
	"github.com/joulemark/green-scheduler/internal/adapter/monitoring/prometheus"
	"github.com/joulemark/green-scheduler/internal/adapter/queue/rabbitmq"
	"github.com/joulemark/green-scheduler/internal/adapter/storage/postgres"
	redisAdapter "github.com/joulemark/green-scheduler/internal/adapter/storage/redis"
	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
	"github.com/joulemark/green-scheduler/internal/core/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "\n✗ ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCtx, rootCtxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCtxCancel()

	printBanner()

	// Step 1: Config, logger and collaborators
	fmt.Println("Step 1: Initializing simulator...")
	appConfig := config.New()
	log := logger.Build(appConfig.Logger)

	repo, registry, queue, telemetry, cleanup, err := buildCollaborators(rootCtx, appConfig, log)
	if err != nil {
		return err
	}
	defer cleanup()

	cmpCfg := comparisonConfig(appConfig.Simulation)
	svc, err := service.NewComparisonService(cmpCfg, repo, registry, queue, telemetry, log)
	if err != nil {
		return err
	}
	fmt.Println("✓ Simulator initialized")
	fmt.Println()

	seed := appConfig.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("Using batch seed", zap.Int64("seed", seed))

	// Dispatch mode hands the run to a worker instead of running locally
	if appConfig.Queue.Dispatch {
		if queue == nil {
			return fmt.Errorf("dispatch mode requires queue.url to be configured")
		}
		req := &domain.RunRequest{
			RunID:          service.NewRunID(),
			Seed:           seed,
			TaskCount:      appConfig.Simulation.TaskCount,
			Algorithms:     appConfig.Simulation.Algorithms,
			SimulationTime: appConfig.Simulation.SimulationTime,
			SubmittedAt:    time.Now(),
		}
		if err := queue.PublishRunRequest(rootCtx, req); err != nil {
			return err
		}
		fmt.Printf("✓ Run request %s dispatched to workers\n", req.RunID)
		return nil
	}

	// Step 2: Run every policy over the same batch
	fmt.Println("Step 2: Running simulations...")
	started := time.Now()
	report, err := svc.Run(rootCtx, seed)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Simulations completed in %.2f seconds\n", time.Since(started).Seconds())
	fmt.Println()

	// Step 3: Compare policies
	fmt.Println("Step 3: Comparing policies...")
	printReport(report, cmpCfg.Energy)

	// Step 4: Save results
	fmt.Println("\nStep 4: Saving results...")
	resultsFile := appConfig.Simulation.ResultsFile
	if err := saveResults(resultsFile, report); err != nil {
		return err
	}
	fmt.Printf("✓ Results saved to %s\n", resultsFile)

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("✓ SIMULATION COMPLETED SUCCESSFULLY")
	fmt.Println(separator)
	return nil
}

const separator = "============================================================"

func printBanner() {
	fmt.Print(`
╔════════════════════════════════════════════════════════════╗
║            GREEN SCHEDULING POLICY SIMULATOR               ║
║     Compare task schedulers by energy, CO2 and latency     ║
╚════════════════════════════════════════════════════════════╝

`)
}

// buildCollaborators connects the optional backing services. A collaborator
// whose config section is empty is skipped; the run then stays local-only.
func buildCollaborators(ctx context.Context, appConfig *config.AppConfig, log *zap.Logger) (
	port.ResultRepository, port.RunRegistry, port.QueueService, port.TelemetryService, func(), error,
) {
	var (
		repo     port.ResultRepository
		registry port.RunRegistry
		queue    port.QueueService
		cleanups []func()
	)
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if appConfig.DB.Host != "" {
		dbService, err := postgresConfig.New(ctx, appConfig.DB, log.Named("DB"))
		if err != nil {
			return nil, nil, nil, nil, cleanup, fmt.Errorf("init postgres: %w", err)
		}
		cleanups = append(cleanups, dbService.Close)
		if err := dbService.Migrate(); err != nil {
			return nil, nil, nil, nil, cleanup, fmt.Errorf("migrate database: %w", err)
		}
		repo = postgres.NewResultRepository(dbService, log)
		log.Info("Results persistence enabled", zap.String("host", appConfig.DB.Host))
	}

	if appConfig.Redis.Addr != "" {
		redisService, err := redisConfig.New(ctx, appConfig.Redis)
		if err != nil {
			return nil, nil, nil, nil, cleanup, fmt.Errorf("init redis: %w", err)
		}
		cleanups = append(cleanups, func() { redisService.Client.Close() })
		registry = redisAdapter.NewRunRegistry(redisService.Client, redisService.Storage, log)
		log.Info("Run registry enabled", zap.String("addr", appConfig.Redis.Addr))
	}

	if appConfig.Queue.URL != "" {
		q, err := rabbitmq.NewQueueService(appConfig.Queue.URL, log)
		if err != nil {
			return nil, nil, nil, nil, cleanup, fmt.Errorf("init rabbitmq: %w", err)
		}
		queue = q
		log.Info("Queue publishing enabled")
	}

	telemetry := prometheus.NewTelemetryService(
		appConfig.Telemetry.PrometheusURL,
		appConfig.Telemetry.FallbackCPU,
		appConfig.Telemetry.FallbackMem,
		log,
	)

	return repo, registry, queue, telemetry, cleanup, nil
}

func comparisonConfig(sim *config.Simulation) service.ComparisonConfig {
	return service.ComparisonConfig{
		TaskCount:  sim.TaskCount,
		Algorithms: sim.Algorithms,
		Generator: service.GeneratorConfig{
			DurationMin:    sim.TaskDurationMin,
			DurationMax:    sim.TaskDurationMax,
			PriorityLevels: sim.PriorityLevels,
			SimulationTime: sim.SimulationTime,
			MemoryMB:       sim.TaskMemoryMB,
		},
		Simulator: service.SimulatorConfig{
			SimulationTime: sim.SimulationTime,
			Quantum:        time.Duration(sim.TimeQuantumMS) * time.Millisecond,
		},
		Energy: service.EnergyModel{
			BaseWatts:      sim.BasePowerWatts,
			MaxWatts:       sim.MaxPowerWatts,
			EmissionFactor: sim.EmissionFactor,
			CostPerKWh:     sim.CostPerKWh,
		},
	}
}

func printReport(report *domain.ComparisonReport, model service.EnergyModel) {
	fmt.Println()
	fmt.Println(separator)
	fmt.Println("ALGORITHM COMPARISON")
	fmt.Println(separator)

	fmt.Println()
	for _, name := range report.Order {
		rec := report.Results[name]
		fmt.Printf("  %-16s energy=%.6f kWh  co2=%.4f kg  tasks=%d  wait=%.2fs  turnaround=%.2fs\n",
			rec.Algorithm, rec.TotalEnergyKWh, rec.CO2EmissionsKg,
			rec.TasksExecuted, rec.AvgWaitTime, rec.AvgTurnaroundTime)
	}

	fmt.Println("\nEnergy Consumption Ranking:")
	for i, name := range report.Comparison.EnergyRanking {
		fmt.Printf("  %d. %s: %.6f kWh\n", i+1, name, report.Results[name].TotalEnergyKWh)
	}

	fmt.Println("\nCO2 Emissions Ranking:")
	for i, name := range report.Comparison.CO2Ranking {
		fmt.Printf("  %d. %s: %.4f kg\n", i+1, name, report.Results[name].CO2EmissionsKg)
	}

	best := report.Results[report.Comparison.BestByEnergy]
	fmt.Printf("\n✓ Best Energy Policy: %s\n", report.Comparison.BestByEnergy)
	fmt.Printf("✓ Best CO2 Reduction: %s\n", report.Comparison.BestByCO2)
	fmt.Printf("  Estimated grid cost of best run: ₹%.4f\n", model.Cost(best.TotalEnergyKWh))
}

// saveResults writes the flat algorithm → metrics mapping consumed by
// external dashboards.
func saveResults(path string, report *domain.ComparisonReport) error {
	data, err := json.MarshalIndent(report.Results, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
