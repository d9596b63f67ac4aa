package domain

import "time"

// MetricsRecord aggregates the outcome of one policy run over one task batch.
// Totals accumulate per execution event; the averages are derived when the
// record is built, never stored per step. This is the contract surface toward
// persistence, reporting and visualization.
type MetricsRecord struct {
	Algorithm         string  `json:"algorithm"`
	TotalEnergyKWh    float64 `json:"total_energy_kwh"`
	TasksExecuted     int     `json:"tasks_executed"`
	AvgWaitTime       float64 `json:"avg_wait_time"`
	AvgTurnaroundTime float64 `json:"avg_turnaround_time"`
	CO2EmissionsKg    float64 `json:"co2_emissions_kg"`
}

// Reading is a point-in-time power snapshot appended to a run-local log.
// Time is in seconds: simulation time for engine runs, unix seconds for the
// live monitor. Memory usage is informational.
type Reading struct {
	Time       float64 `json:"time"`
	CPUUsage   float64 `json:"cpu_usage"`
	MemUsage   float64 `json:"memory_usage"`
	PowerWatts float64 `json:"power_watts"`
}

// RunResult is the full outcome of a single policy run: the metrics record
// plus the executed tasks (with finalized start/end times) and the power
// readings taken at each execution event.
type RunResult struct {
	Record   MetricsRecord `json:"record"`
	Executed []*Task       `json:"executed"`
	Readings []Reading     `json:"readings"`
}

// Comparison ranks policies after all per-policy runs complete. Both
// rankings are ascending: position 0 is the best (lowest) value.
type Comparison struct {
	BestByEnergy  string   `json:"best_by_energy"`
	BestByCO2     string   `json:"best_by_co2"`
	EnergyRanking []string `json:"energy_ranking"`
	CO2Ranking    []string `json:"co2_ranking"`
}

// ComparisonReport is the structured result of a full comparison run:
// one MetricsRecord per policy over an identical task batch, plus the
// ranking. Order preserves the configured algorithm list so reports are
// stable across runs.
type ComparisonReport struct {
	RunID      string                   `json:"run_id"`
	Seed       int64                    `json:"seed"`
	TaskCount  int                      `json:"task_count"`
	Order      []string                 `json:"order"`
	Results    map[string]MetricsRecord `json:"results"`
	Comparison Comparison               `json:"comparison"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

// RunSummary is the compact form of a finished comparison run kept in the
// run registry for dashboards and monitors. Entries expire; the registry is
// a recency window, not a system of record.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Seed         int64     `json:"seed"`
	TaskCount    int       `json:"task_count"`
	BestByEnergy string    `json:"best_by_energy"`
	BestByCO2    string    `json:"best_by_co2"`
	FinishedAt   time.Time `json:"finished_at"`
}

// RunRequest asks a worker to execute a comparison run. SimulationTime
// overrides the worker's configured time budget when positive.
type RunRequest struct {
	RunID          string    `json:"run_id"`
	Seed           int64     `json:"seed"`
	TaskCount      int       `json:"task_count"`
	Algorithms     []string  `json:"algorithms"`
	SimulationTime float64   `json:"simulation_time,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
