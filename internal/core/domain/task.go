package domain

import (
	"errors"
	"fmt"
)

// Priority orders tasks for scheduling. Lower values schedule first:
// a HIGH priority task is picked before a MEDIUM one.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return fmt.Sprintf("PRIORITY(%d)", int(p))
	}
}

// Valid reports whether p is one of the three defined levels.
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// ErrInvalidTaskParameters is returned when a task is constructed with
// out-of-range parameters. Values are rejected, never clamped.
var ErrInvalidTaskParameters = errors.New("invalid task parameters")

// Task represents a unit of work to be scheduled. Identity and workload
// attributes are fixed at creation; StartTime and EndTime are the scheduling
// outcome, set exactly once when the simulation engine executes the task.
type Task struct {
	ID                string   `json:"id"`
	Duration          float64  `json:"duration"`           // Execution length in seconds
	Priority          Priority `json:"priority"`           // 1 (High) to 3 (Low)
	ArrivalTime       float64  `json:"arrival_time"`       // Seconds from simulation start
	CPURequirement    float64  `json:"cpu_requirement"`    // CPU percentage needed, 0-100
	MemoryRequirement float64  `json:"memory_requirement"` // Memory in MB, informational only
	StartTime         *float64 `json:"start_time,omitempty"`
	EndTime           *float64 `json:"end_time,omitempty"`
}

// Validate rejects tasks with a non-positive duration, an unknown priority,
// a negative arrival time, or a CPU requirement outside [0, 100].
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTaskParameters)
	}
	if t.Duration <= 0 {
		return fmt.Errorf("%w: task %s has non-positive duration %.3f", ErrInvalidTaskParameters, t.ID, t.Duration)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: task %s has unknown priority %d", ErrInvalidTaskParameters, t.ID, int(t.Priority))
	}
	if t.ArrivalTime < 0 {
		return fmt.Errorf("%w: task %s has negative arrival time %.3f", ErrInvalidTaskParameters, t.ID, t.ArrivalTime)
	}
	if t.CPURequirement < 0 || t.CPURequirement > 100 {
		return fmt.Errorf("%w: task %s has cpu requirement %.1f outside [0, 100]", ErrInvalidTaskParameters, t.ID, t.CPURequirement)
	}
	return nil
}

// MarkExecuted finalizes the scheduling outcome: start at the given time,
// end after the task's duration. Once set the outcome never changes, so a
// second call is a no-op.
func (t *Task) MarkExecuted(startTime float64) {
	if t.StartTime != nil {
		return
	}
	end := startTime + t.Duration
	t.StartTime = &startTime
	t.EndTime = &end
}

// Executed reports whether the task has been run.
func (t *Task) Executed() bool {
	return t.StartTime != nil
}

// WaitTime is how long the task waited between arrival and execution start.
// Zero until the task has been executed.
func (t *Task) WaitTime() float64 {
	if t.StartTime == nil {
		return 0
	}
	return *t.StartTime - t.ArrivalTime
}

// TurnaroundTime is the total time from arrival to completion.
// Zero until the task has been executed.
func (t *Task) TurnaroundTime() float64 {
	if t.EndTime == nil {
		return 0
	}
	return *t.EndTime - t.ArrivalTime
}

// EnergyKWh is the energy this task consumes when run at the given power
// draw: watts times duration, converted from joules to kWh.
func (t *Task) EnergyKWh(powerWatts float64) float64 {
	return powerWatts * t.Duration / 3_600_000.0
}

// Clone returns a deep copy with its own outcome fields, so one policy run
// can never leak start/end times into another.
func (t *Task) Clone() *Task {
	cp := *t
	if t.StartTime != nil {
		v := *t.StartTime
		cp.StartTime = &v
	}
	if t.EndTime != nil {
		v := *t.EndTime
		cp.EndTime = &v
	}
	return &cp
}

// CloneBatch deep-copies a task batch, preserving order.
func CloneBatch(tasks []*Task) []*Task {
	out := make([]*Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
