package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

// ErrUnknownPolicy is returned when a policy name has no registered variant.
var ErrUnknownPolicy = errors.New("unknown scheduling policy")

// Registered policy names.
const (
	AlgorithmFCFS            = "FCFS"
	AlgorithmSJF             = "SJF"
	AlgorithmRoundRobin      = "RoundRobin"
	AlgorithmPriority        = "PriorityBased"
	AlgorithmEnergyOptimized = "EnergyOptimized"
)

// DefaultAlgorithms returns the full variant set in reporting order.
func DefaultAlgorithms() []string {
	return []string{
		AlgorithmFCFS,
		AlgorithmSJF,
		AlgorithmRoundRobin,
		AlgorithmPriority,
		AlgorithmEnergyOptimized,
	}
}

// Policy selects the next task to execute from the ready set. Select returns
// nil iff tasks is empty, never mutates its input, and is deterministic:
// no randomness, no wall clock. Removal is the engine's responsibility.
type Policy interface {
	Name() string
	Select(tasks []*domain.Task) *domain.Task
}

// NewPolicy constructs a policy by registered name. The quantum applies to
// RoundRobin only. Unrecognized names are an error, never a silent fallback.
func NewPolicy(name string, quantum time.Duration) (Policy, error) {
	switch name {
	case AlgorithmFCFS:
		return &fcfsPolicy{}, nil
	case AlgorithmSJF:
		return &sjfPolicy{}, nil
	case AlgorithmRoundRobin:
		return &roundRobinPolicy{quantum: quantum}, nil
	case AlgorithmPriority:
		return &priorityPolicy{}, nil
	case AlgorithmEnergyOptimized:
		return &energyOptimizedPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// minTask scans for the task minimizing less. The scan keeps the earliest
// candidate on ties, so insertion order is the final tie-break.
func minTask(tasks []*domain.Task, less func(a, b *domain.Task) bool) *domain.Task {
	if len(tasks) == 0 {
		return nil
	}
	best := tasks[0]
	for _, t := range tasks[1:] {
		if less(t, best) {
			best = t
		}
	}
	return best
}

// fcfsPolicy serves tasks in insertion order.
type fcfsPolicy struct{}

func (p *fcfsPolicy) Name() string { return AlgorithmFCFS }

func (p *fcfsPolicy) Select(tasks []*domain.Task) *domain.Task {
	if len(tasks) == 0 {
		return nil
	}
	return tasks[0]
}

// sjfPolicy picks the shortest job, ties broken by arrival time.
type sjfPolicy struct{}

func (p *sjfPolicy) Name() string { return AlgorithmSJF }

func (p *sjfPolicy) Select(tasks []*domain.Task) *domain.Task {
	return minTask(tasks, func(a, b *domain.Task) bool {
		if a.Duration != b.Duration {
			return a.Duration < b.Duration
		}
		return a.ArrivalTime < b.ArrivalTime
	})
}

// roundRobinPolicy carries a time quantum but selection does not preempt:
// tasks run to completion, so the baseline behavior matches FCFS.
type roundRobinPolicy struct {
	quantum time.Duration
}

func (p *roundRobinPolicy) Name() string { return AlgorithmRoundRobin }

func (p *roundRobinPolicy) Quantum() time.Duration { return p.quantum }

func (p *roundRobinPolicy) Select(tasks []*domain.Task) *domain.Task {
	if len(tasks) == 0 {
		return nil
	}
	return tasks[0]
}

// priorityPolicy picks the most urgent task. Lower Priority value wins,
// ties broken by arrival time.
type priorityPolicy struct{}

func (p *priorityPolicy) Name() string { return AlgorithmPriority }

func (p *priorityPolicy) Select(tasks []*domain.Task) *domain.Task {
	return minTask(tasks, func(a, b *domain.Task) bool {
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ArrivalTime < b.ArrivalTime
	})
}

// energyOptimizedPolicy picks the greenest task first: lowest CPU requirement,
// then priority, then arrival time.
type energyOptimizedPolicy struct{}

func (p *energyOptimizedPolicy) Name() string { return AlgorithmEnergyOptimized }

func (p *energyOptimizedPolicy) Select(tasks []*domain.Task) *domain.Task {
	return minTask(tasks, func(a, b *domain.Task) bool {
		if a.CPURequirement != b.CPURequirement {
			return a.CPURequirement < b.CPURequirement
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ArrivalTime < b.ArrivalTime
	})
}

// ApplyDVFS scales power down under light load: below 30% usage power drops
// to 60%, below 60% to 80%, at or above 60% it is unchanged. Advisory only;
// the engine's energy accounting never applies it.
func ApplyDVFS(powerWatts, cpuUsage float64) float64 {
	switch {
	case cpuUsage < 30:
		return powerWatts * 0.6
	case cpuUsage < 60:
		return powerWatts * 0.8
	default:
		return powerWatts
	}
}
