package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

func simulatorUnderTest(t *testing.T, simTime float64) *Simulator {
	t.Helper()

	sim, err := NewSimulator(SimulatorConfig{SimulationTime: simTime}, defaultModel(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	return sim
}

func simpleBatch(durations ...float64) []*domain.Task {
	tasks := make([]*domain.Task, 0, len(durations))
	for i, d := range durations {
		tasks = append(tasks, &domain.Task{
			ID:             string(rune('a'+i)) + "-task",
			Duration:       d,
			Priority:       domain.PriorityMedium,
			ArrivalTime:    0,
			CPURequirement: 50.0,
		})
	}
	return tasks
}

func TestSimulator_RunEnergyMatchesExecutedTasks(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)
	model := defaultModel()

	batch := []*domain.Task{
		{ID: "task-1", Duration: 1.0, Priority: domain.PriorityHigh, ArrivalTime: 0, CPURequirement: 20.0},
		{ID: "task-2", Duration: 2.0, Priority: domain.PriorityMedium, ArrivalTime: 0, CPURequirement: 50.0},
		{ID: "task-3", Duration: 3.0, Priority: domain.PriorityLow, ArrivalTime: 0, CPURequirement: 80.0},
	}

	for _, name := range DefaultAlgorithms() {
		t.Run(name, func(t *testing.T) {
			result, err := sim.Run(name, batch)
			if err != nil {
				t.Fatalf("Run(%q) error = %v", name, err)
			}

			var want float64
			for _, task := range result.Executed {
				want += task.EnergyKWh(model.PowerWatts(task.CPURequirement))
			}
			if got := result.Record.TotalEnergyKWh; math.Abs(got-want) > 1e-15 {
				t.Errorf("TotalEnergyKWh = %v, want sum over executed tasks %v", got, want)
			}
			if got := result.Record.CO2EmissionsKg; math.Abs(got-want*0.73) > 1e-15 {
				t.Errorf("CO2EmissionsKg = %v, want %v", got, want*0.73)
			}
			if result.Record.TasksExecuted != len(result.Executed) {
				t.Errorf("TasksExecuted = %d, want %d", result.Record.TasksExecuted, len(result.Executed))
			}
		})
	}
}

func TestSimulator_SingleTaskEnergy(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)

	// One second at 50% load draws 10 W on the 5..15 W model.
	batch := []*domain.Task{
		{ID: "task-1", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 0, CPURequirement: 50.0},
	}

	result, err := sim.Run(AlgorithmFCFS, batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := 10.0 / 3_600_000.0
	if got := result.Record.TotalEnergyKWh; math.Abs(got-want) > 1e-15 {
		t.Errorf("TotalEnergyKWh = %v, want %v", got, want)
	}
	if got := result.Record.CO2EmissionsKg; math.Abs(got-want*0.73) > 1e-15 {
		t.Errorf("CO2EmissionsKg = %v, want %v", got, want*0.73)
	}
}

func TestSimulator_RunFCFSTimeline(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)

	result, err := sim.Run(AlgorithmFCFS, simpleBatch(1.0, 2.0, 3.0))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := result.Record.TasksExecuted; got != 3 {
		t.Fatalf("TasksExecuted = %d, want 3", got)
	}

	// Back to back: each task starts when its predecessor ends.
	wantStarts := []float64{0.0, 1.0, 3.0}
	for i, task := range result.Executed {
		if !task.Executed() {
			t.Fatalf("executed task %s has no outcome", task.ID)
		}
		if got := *task.StartTime; got != wantStarts[i] {
			t.Errorf("task %s StartTime = %v, want %v", task.ID, got, wantStarts[i])
		}
		if got := *task.EndTime; got != *task.StartTime+task.Duration {
			t.Errorf("task %s EndTime = %v, want start+duration = %v", task.ID, got, *task.StartTime+task.Duration)
		}
	}

	// Waits 0, 1, 3 and turnarounds 1, 3, 6 for zero arrivals.
	if got, want := result.Record.AvgWaitTime, 4.0/3.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("AvgWaitTime = %v, want %v", got, want)
	}
	if got, want := result.Record.AvgTurnaroundTime, 10.0/3.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("AvgTurnaroundTime = %v, want %v", got, want)
	}
}

func TestSimulator_ReadingsFollowExecutions(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)
	model := defaultModel()

	result, err := sim.Run(AlgorithmFCFS, simpleBatch(1.0, 2.0))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Readings) != len(result.Executed) {
		t.Fatalf("got %d readings for %d executions", len(result.Readings), len(result.Executed))
	}
	for i, r := range result.Readings {
		task := result.Executed[i]
		if r.Time != *task.StartTime {
			t.Errorf("reading %d Time = %v, want task start %v", i, r.Time, *task.StartTime)
		}
		if r.CPUUsage != task.CPURequirement {
			t.Errorf("reading %d CPUUsage = %v, want %v", i, r.CPUUsage, task.CPURequirement)
		}
		if want := model.PowerWatts(task.CPURequirement); r.PowerWatts != want {
			t.Errorf("reading %d PowerWatts = %v, want %v", i, r.PowerWatts, want)
		}
	}
}

func TestSimulator_RunEmptyBatch(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)

	result, err := sim.Run(AlgorithmSJF, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	rec := result.Record
	if rec.TasksExecuted != 0 || rec.TotalEnergyKWh != 0 || rec.CO2EmissionsKg != 0 {
		t.Errorf("empty batch record = %+v, want all zero", rec)
	}
	if math.IsNaN(rec.AvgWaitTime) || math.IsNaN(rec.AvgTurnaroundTime) {
		t.Error("empty batch averages are NaN, want 0")
	}
	if rec.AvgWaitTime != 0 || rec.AvgTurnaroundTime != 0 {
		t.Errorf("empty batch averages = %v, %v, want 0, 0", rec.AvgWaitTime, rec.AvgTurnaroundTime)
	}
}

func TestSimulator_TimeBudgetStopsRun(t *testing.T) {
	sim := simulatorUnderTest(t, 5.0)

	// Each execution advances the clock by 2s; the budget admits starts at
	// 0, 2 and 4 only.
	result, err := sim.Run(AlgorithmFCFS, simpleBatch(2.0, 2.0, 2.0, 2.0, 2.0))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := result.Record.TasksExecuted; got != 3 {
		t.Errorf("TasksExecuted = %d, want 3 within a 5s budget", got)
	}
}

func TestSimulator_RunDoesNotMutateBatch(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)
	batch := simpleBatch(1.0, 2.0, 3.0)

	first, err := sim.Run(AlgorithmSJF, batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, task := range batch {
		if task.Executed() {
			t.Fatalf("input task %s was mutated by Run", task.ID)
		}
	}

	second, err := sim.Run(AlgorithmSJF, batch)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if first.Record != second.Record {
		t.Errorf("repeated runs diverged:\n%+v\n%+v", first.Record, second.Record)
	}
}

func TestSimulator_RunUnknownPolicy(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)

	if _, err := sim.Run("LIFO", simpleBatch(1.0)); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Run(LIFO) error = %v, want ErrUnknownPolicy", err)
	}
}

func TestSimulator_RunAll(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)
	batch := simpleBatch(1.0, 2.0, 3.0)
	names := DefaultAlgorithms()

	results, err := sim.RunAll(context.Background(), names, batch)
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	if len(results) != len(names) {
		t.Fatalf("RunAll() returned %d results, want %d", len(results), len(names))
	}
	for _, name := range names {
		res, ok := results[name]
		if !ok {
			t.Fatalf("RunAll() missing result for %q", name)
		}
		if res.Record.Algorithm != name {
			t.Errorf("result for %q labeled %q", name, res.Record.Algorithm)
		}

		// Concurrent runs must match an isolated sequential run.
		solo, err := sim.Run(name, batch)
		if err != nil {
			t.Fatalf("Run(%q) error = %v", name, err)
		}
		if res.Record != solo.Record {
			t.Errorf("RunAll record for %q = %+v, sequential run = %+v", name, res.Record, solo.Record)
		}
	}
}

func TestSimulator_RunAllUnknownPolicyFailsFast(t *testing.T) {
	sim := simulatorUnderTest(t, 60.0)

	results, err := sim.RunAll(context.Background(), []string{AlgorithmFCFS, "Bogus"}, simpleBatch(1.0))
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("RunAll() error = %v, want ErrUnknownPolicy", err)
	}
	if results != nil {
		t.Errorf("RunAll() results = %v, want nil on validation failure", results)
	}
}

func TestNewSimulator_InvalidConfig(t *testing.T) {
	if _, err := NewSimulator(SimulatorConfig{SimulationTime: 0}, defaultModel(), zap.NewNop()); err == nil {
		t.Error("NewSimulator() error = nil for zero time budget")
	}
}

func TestRank(t *testing.T) {
	names := []string{"FCFS", "SJF", "EnergyOptimized"}
	records := map[string]domain.MetricsRecord{
		"FCFS":            {Algorithm: "FCFS", TotalEnergyKWh: 3.0, CO2EmissionsKg: 2.19},
		"SJF":             {Algorithm: "SJF", TotalEnergyKWh: 2.0, CO2EmissionsKg: 1.46},
		"EnergyOptimized": {Algorithm: "EnergyOptimized", TotalEnergyKWh: 1.0, CO2EmissionsKg: 0.73},
	}

	cmp := Rank(names, records)

	wantEnergy := []string{"EnergyOptimized", "SJF", "FCFS"}
	for i, name := range wantEnergy {
		if cmp.EnergyRanking[i] != name {
			t.Errorf("EnergyRanking = %v, want %v", cmp.EnergyRanking, wantEnergy)
			break
		}
	}
	if cmp.BestByEnergy != "EnergyOptimized" {
		t.Errorf("BestByEnergy = %q, want EnergyOptimized", cmp.BestByEnergy)
	}
	if cmp.BestByCO2 != "EnergyOptimized" {
		t.Errorf("BestByCO2 = %q, want EnergyOptimized", cmp.BestByCO2)
	}
}

func TestRank_TiesKeepConfiguredOrder(t *testing.T) {
	names := []string{"FCFS", "RoundRobin", "SJF"}
	records := map[string]domain.MetricsRecord{
		"FCFS":       {TotalEnergyKWh: 1.0, CO2EmissionsKg: 0.73},
		"RoundRobin": {TotalEnergyKWh: 1.0, CO2EmissionsKg: 0.73},
		"SJF":        {TotalEnergyKWh: 1.0, CO2EmissionsKg: 0.73},
	}

	cmp := Rank(names, records)

	for i, name := range names {
		if cmp.EnergyRanking[i] != name {
			t.Errorf("EnergyRanking = %v, want configured order %v on ties", cmp.EnergyRanking, names)
			break
		}
	}
	for i, name := range names {
		if cmp.CO2Ranking[i] != name {
			t.Errorf("CO2Ranking = %v, want configured order %v on ties", cmp.CO2Ranking, names)
			break
		}
	}
}

func TestRank_Empty(t *testing.T) {
	cmp := Rank(nil, nil)

	if cmp.BestByEnergy != "" || cmp.BestByCO2 != "" {
		t.Errorf("Rank(nil) best = %q/%q, want empty", cmp.BestByEnergy, cmp.BestByCO2)
	}
	if len(cmp.EnergyRanking) != 0 || len(cmp.CO2Ranking) != 0 {
		t.Errorf("Rank(nil) rankings = %v/%v, want empty", cmp.EnergyRanking, cmp.CO2Ranking)
	}
}
