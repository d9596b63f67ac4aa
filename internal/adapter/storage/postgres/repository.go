package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	storage "github.com/joulemark/green-scheduler/config/storage/postgresql"
	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
)

// ErrReportNotFound is returned when no run exists for the requested ID.
var ErrReportNotFound = errors.New("report not found")

type resultRepository struct {
	db  *storage.DB
	log *zap.Logger
}

// NewResultRepository creates a new postgres repository for comparison runs
func NewResultRepository(db *storage.DB, log *zap.Logger) port.ResultRepository {
	return &resultRepository{
		db:  db,
		log: log,
	}
}

func (r *resultRepository) SaveReport(ctx context.Context, report *domain.ComparisonReport) error {
	query, args, err := r.db.QueryBuilder.Insert("runs").
		Columns("run_id", "seed", "task_count", "algorithms",
			"best_by_energy", "best_by_co2", "energy_ranking", "co2_ranking",
			"started_at", "finished_at").
		Values(report.RunID, report.Seed, report.TaskCount, report.Order,
			report.Comparison.BestByEnergy, report.Comparison.BestByCO2,
			report.Comparison.EnergyRanking, report.Comparison.CO2Ranking,
			report.StartedAt, report.FinishedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to save run", zap.String("run_id", report.RunID), zap.Error(err))
		return err
	}

	insert := r.db.QueryBuilder.Insert("policy_results").
		Columns("run_id", "algorithm", "total_energy_kwh", "tasks_executed",
			"avg_wait_time", "avg_turnaround_time", "co2_emissions_kg")
	for _, name := range report.Order {
		rec := report.Results[name]
		insert = insert.Values(report.RunID, rec.Algorithm, rec.TotalEnergyKWh,
			rec.TasksExecuted, rec.AvgWaitTime, rec.AvgTurnaroundTime, rec.CO2EmissionsKg)
	}
	query, args, err = insert.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to save policy results", zap.String("run_id", report.RunID), zap.Error(err))
		return err
	}
	return nil
}

func (r *resultRepository) SaveRunResult(ctx context.Context, runID string, result *domain.RunResult) error {
	if len(result.Executed) == 0 {
		return nil
	}

	insert := r.db.QueryBuilder.Insert("task_executions").
		Columns("run_id", "algorithm", "task_id", "duration", "priority",
			"arrival_time", "cpu_requirement", "start_time", "end_time")
	for _, task := range result.Executed {
		insert = insert.Values(runID, result.Record.Algorithm, task.ID,
			task.Duration, task.Priority, task.ArrivalTime, task.CPURequirement,
			task.StartTime, task.EndTime)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to save task executions",
			zap.String("run_id", runID),
			zap.String("algorithm", result.Record.Algorithm),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *resultRepository) GetReport(ctx context.Context, runID string) (*domain.ComparisonReport, error) {
	query, args, err := r.db.QueryBuilder.Select("run_id", "seed", "task_count",
		"algorithms", "best_by_energy", "best_by_co2", "energy_ranking",
		"co2_ranking", "started_at", "finished_at").
		From("runs").
		Where("run_id = ?", runID).
		ToSql()
	if err != nil {
		return nil, err
	}

	var report domain.ComparisonReport
	row := r.db.QueryRow(ctx, query, args...)
	if err := row.Scan(&report.RunID, &report.Seed, &report.TaskCount,
		&report.Order, &report.Comparison.BestByEnergy, &report.Comparison.BestByCO2,
		&report.Comparison.EnergyRanking, &report.Comparison.CO2Ranking,
		&report.StartedAt, &report.FinishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	if report.Results, err = r.loadRecords(ctx, report.RunID); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *resultRepository) ListRecentReports(ctx context.Context, limit int) ([]*domain.ComparisonReport, error) {
	query, args, err := r.db.QueryBuilder.Select("run_id").
		From("runs").
		OrderBy("finished_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reports := make([]*domain.ComparisonReport, 0, len(ids))
	for _, id := range ids {
		report, err := r.GetReport(ctx, id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *resultRepository) loadRecords(ctx context.Context, runID string) (map[string]domain.MetricsRecord, error) {
	query, args, err := r.db.QueryBuilder.Select("algorithm", "total_energy_kwh",
		"tasks_executed", "avg_wait_time", "avg_turnaround_time", "co2_emissions_kg").
		From("policy_results").
		Where("run_id = ?", runID).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]domain.MetricsRecord)
	for rows.Next() {
		var rec domain.MetricsRecord
		if err := rows.Scan(&rec.Algorithm, &rec.TotalEnergyKWh, &rec.TasksExecuted,
			&rec.AvgWaitTime, &rec.AvgTurnaroundTime, &rec.CO2EmissionsKg); err != nil {
			return nil, err
		}
		records[rec.Algorithm] = rec
	}
	return records, rows.Err()
}
