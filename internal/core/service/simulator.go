package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

// idleStepSeconds advances the clock when no task is selectable.
const idleStepSeconds = 0.1

// syntheticMemUsage fills the informational memory field of simulated
// readings; the engine models CPU-driven power only.
const syntheticMemUsage = 30.0

// SimulatorConfig bounds a simulation run.
type SimulatorConfig struct {
	SimulationTime float64
	Quantum        time.Duration
}

// Validate rejects configs with no runnable time budget.
func (c SimulatorConfig) Validate() error {
	if c.SimulationTime <= 0 {
		return fmt.Errorf("simulation time must be positive, got %v", c.SimulationTime)
	}
	return nil
}

// Simulator executes policy runs over task batches. Each run operates on its
// own clone of the batch and its own accumulator, so runs never observe each
// other's start/end mutations.
type Simulator struct {
	cfg   SimulatorConfig
	model *EnergyModel
	log   *zap.Logger
}

// NewSimulator builds an engine from a validated config and an energy model.
func NewSimulator(cfg SimulatorConfig, model *EnergyModel, log *zap.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator config: %w", err)
	}
	return &Simulator{cfg: cfg, model: model, log: log}, nil
}

// Run executes one policy over a fresh clone of the batch until the ready
// set drains or the time budget runs out, whichever comes first.
func (s *Simulator) Run(policyName string, batch []*domain.Task) (*domain.RunResult, error) {
	policy, err := NewPolicy(policyName, s.cfg.Quantum)
	if err != nil {
		return nil, err
	}
	return s.run(policy, batch), nil
}

func (s *Simulator) run(policy Policy, batch []*domain.Task) *domain.RunResult {
	queue := domain.NewTaskQueue(domain.CloneBatch(batch)...)
	monitor := NewEnergyMonitor(s.model)
	acc := newMetricsAccumulator(policy.Name(), s.model)

	cursor := 0.0
	for !queue.IsEmpty() && cursor < s.cfg.SimulationTime {
		next := policy.Select(queue.Tasks())
		if next == nil {
			cursor += idleStepSeconds
			continue
		}

		power := s.model.PowerWatts(next.CPURequirement)
		next.MarkExecuted(cursor)
		acc.addExecution(next, power)
		monitor.Record(domain.Reading{
			Time:       cursor,
			CPUUsage:   next.CPURequirement,
			MemUsage:   syntheticMemUsage,
			PowerWatts: power,
		})

		cursor += next.Duration
		queue.Remove(next.ID)
	}

	record := acc.record()
	s.log.Debug("policy run complete",
		zap.String("algorithm", policy.Name()),
		zap.Int("tasks_executed", record.TasksExecuted),
		zap.Int("tasks_unscheduled", queue.Len()),
		zap.Float64("total_energy_kwh", record.TotalEnergyKWh),
		zap.Float64("final_time", cursor))

	return &domain.RunResult{
		Record:   record,
		Executed: acc.executed,
		Readings: monitor.Readings(),
	}
}

// RunAll executes one independent run per policy name over clones of the
// same batch. Runs proceed concurrently; an unknown name fails the whole
// call before any run starts.
func (s *Simulator) RunAll(ctx context.Context, names []string, batch []*domain.Task) (map[string]*domain.RunResult, error) {
	policies := make([]Policy, len(names))
	for i, name := range names {
		p, err := NewPolicy(name, s.cfg.Quantum)
		if err != nil {
			return nil, err
		}
		policies[i] = p
	}

	results := make([]*domain.RunResult, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, policy := range policies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.run(policy, batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.RunResult, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

// Rank orders policies ascending by total energy and by CO2 emissions.
// Ties keep the order of names, so rankings are stable across runs.
func Rank(names []string, records map[string]domain.MetricsRecord) domain.Comparison {
	byEnergy := make([]string, len(names))
	copy(byEnergy, names)
	sort.SliceStable(byEnergy, func(i, j int) bool {
		return records[byEnergy[i]].TotalEnergyKWh < records[byEnergy[j]].TotalEnergyKWh
	})

	byCO2 := make([]string, len(names))
	copy(byCO2, names)
	sort.SliceStable(byCO2, func(i, j int) bool {
		return records[byCO2[i]].CO2EmissionsKg < records[byCO2[j]].CO2EmissionsKg
	})

	cmp := domain.Comparison{
		EnergyRanking: byEnergy,
		CO2Ranking:    byCO2,
	}
	if len(byEnergy) > 0 {
		cmp.BestByEnergy = byEnergy[0]
		cmp.BestByCO2 = byCO2[0]
	}
	return cmp
}

// metricsAccumulator collects per-run totals. Averages are derived when the
// record is built, never stored per step.
type metricsAccumulator struct {
	algorithm       string
	model           *EnergyModel
	totalEnergy     float64
	totalWait       float64
	totalTurnaround float64
	executed        []*domain.Task
}

func newMetricsAccumulator(algorithm string, model *EnergyModel) *metricsAccumulator {
	return &metricsAccumulator{algorithm: algorithm, model: model}
}

func (a *metricsAccumulator) addExecution(task *domain.Task, powerWatts float64) {
	a.executed = append(a.executed, task)
	a.totalEnergy += task.EnergyKWh(powerWatts)
	a.totalWait += task.WaitTime()
	a.totalTurnaround += task.TurnaroundTime()
}

func (a *metricsAccumulator) record() domain.MetricsRecord {
	rec := domain.MetricsRecord{
		Algorithm:      a.algorithm,
		TotalEnergyKWh: a.totalEnergy,
		TasksExecuted:  len(a.executed),
		CO2EmissionsKg: a.model.CO2Kg(a.totalEnergy),
	}
	if n := len(a.executed); n > 0 {
		rec.AvgWaitTime = a.totalWait / float64(n)
		rec.AvgTurnaroundTime = a.totalTurnaround / float64(n)
	}
	return rec
}
