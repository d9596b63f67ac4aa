package service

import (
	"errors"
	"testing"
	"time"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

// referenceBatch returns three tasks shaped to separate the variants:
// task-a is long and cheap to defer, task-b is short, urgent and green,
// task-c sits in the middle on every axis.
func referenceBatch() []*domain.Task {
	return []*domain.Task{
		{ID: "task-a", Duration: 2.0, Priority: domain.PriorityLow, ArrivalTime: 0, CPURequirement: 80.0},
		{ID: "task-b", Duration: 1.0, Priority: domain.PriorityHigh, ArrivalTime: 0, CPURequirement: 20.0},
		{ID: "task-c", Duration: 3.0, Priority: domain.PriorityMedium, ArrivalTime: 0, CPURequirement: 50.0},
	}
}

// drain repeatedly selects and removes until the set is empty, returning
// the execution order the policy produced.
func drain(t *testing.T, policy Policy, tasks []*domain.Task) []string {
	t.Helper()

	remaining := make([]*domain.Task, len(tasks))
	copy(remaining, tasks)

	var order []string
	for len(remaining) > 0 {
		next := policy.Select(remaining)
		if next == nil {
			t.Fatalf("%s.Select() = nil with %d tasks remaining", policy.Name(), len(remaining))
		}
		order = append(order, next.ID)
		for i, task := range remaining {
			if task.ID == next.ID {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return order
}

func TestPolicy_ExecutionOrder(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		want      []string
	}{
		{"fcfs keeps insertion order", AlgorithmFCFS, []string{"task-a", "task-b", "task-c"}},
		{"round robin keeps insertion order", AlgorithmRoundRobin, []string{"task-a", "task-b", "task-c"}},
		{"sjf picks shortest first", AlgorithmSJF, []string{"task-b", "task-a", "task-c"}},
		{"priority picks most urgent first", AlgorithmPriority, []string{"task-b", "task-c", "task-a"}},
		{"energy optimized picks lowest cpu first", AlgorithmEnergyOptimized, []string{"task-b", "task-c", "task-a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewPolicy(tt.algorithm, 100*time.Millisecond)
			if err != nil {
				t.Fatalf("NewPolicy(%q) error = %v", tt.algorithm, err)
			}

			got := drain(t, policy, referenceBatch())
			if len(got) != len(tt.want) {
				t.Fatalf("execution order %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("execution order %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestPolicy_TieBreaks(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		tasks     []*domain.Task
		want      string
	}{
		{
			name:      "sjf equal durations break on arrival",
			algorithm: AlgorithmSJF,
			tasks: []*domain.Task{
				{ID: "task-late", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 5.0, CPURequirement: 50},
				{ID: "task-early", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 1.0, CPURequirement: 50},
			},
			want: "task-early",
		},
		{
			name:      "sjf fully tied keeps insertion order",
			algorithm: AlgorithmSJF,
			tasks: []*domain.Task{
				{ID: "task-first", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 2.0, CPURequirement: 50},
				{ID: "task-second", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 2.0, CPURequirement: 50},
			},
			want: "task-first",
		},
		{
			name:      "priority equal levels break on arrival",
			algorithm: AlgorithmPriority,
			tasks: []*domain.Task{
				{ID: "task-late", Duration: 1.0, Priority: domain.PriorityHigh, ArrivalTime: 3.0, CPURequirement: 50},
				{ID: "task-early", Duration: 2.0, Priority: domain.PriorityHigh, ArrivalTime: 0.5, CPURequirement: 50},
			},
			want: "task-early",
		},
		{
			name:      "energy equal cpu breaks on priority",
			algorithm: AlgorithmEnergyOptimized,
			tasks: []*domain.Task{
				{ID: "task-low", Duration: 1.0, Priority: domain.PriorityLow, ArrivalTime: 0, CPURequirement: 40},
				{ID: "task-high", Duration: 1.0, Priority: domain.PriorityHigh, ArrivalTime: 0, CPURequirement: 40},
			},
			want: "task-high",
		},
		{
			name:      "energy equal cpu and priority breaks on arrival",
			algorithm: AlgorithmEnergyOptimized,
			tasks: []*domain.Task{
				{ID: "task-late", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 4.0, CPURequirement: 40},
				{ID: "task-early", Duration: 1.0, Priority: domain.PriorityMedium, ArrivalTime: 1.0, CPURequirement: 40},
			},
			want: "task-early",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewPolicy(tt.algorithm, 0)
			if err != nil {
				t.Fatalf("NewPolicy(%q) error = %v", tt.algorithm, err)
			}

			got := policy.Select(tt.tasks)
			if got == nil || got.ID != tt.want {
				t.Errorf("Select() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestPolicy_SelectIsDeterministic(t *testing.T) {
	for _, name := range DefaultAlgorithms() {
		t.Run(name, func(t *testing.T) {
			policy, err := NewPolicy(name, 50*time.Millisecond)
			if err != nil {
				t.Fatalf("NewPolicy(%q) error = %v", name, err)
			}

			tasks := referenceBatch()
			first := policy.Select(tasks)
			for i := 0; i < 10; i++ {
				if got := policy.Select(tasks); got != first {
					t.Fatalf("Select() call %d returned %v, first call returned %v", i+2, got, first)
				}
			}
		})
	}
}

func TestPolicy_SelectEmpty(t *testing.T) {
	for _, name := range DefaultAlgorithms() {
		t.Run(name, func(t *testing.T) {
			policy, err := NewPolicy(name, 0)
			if err != nil {
				t.Fatalf("NewPolicy(%q) error = %v", name, err)
			}
			if got := policy.Select(nil); got != nil {
				t.Errorf("Select(nil) = %v, want nil", got)
			}
			if got := policy.Select([]*domain.Task{}); got != nil {
				t.Errorf("Select(empty) = %v, want nil", got)
			}
		})
	}
}

func TestPolicy_SelectDoesNotMutate(t *testing.T) {
	policy, err := NewPolicy(AlgorithmSJF, 0)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	tasks := referenceBatch()
	policy.Select(tasks)

	want := []string{"task-a", "task-b", "task-c"}
	for i, task := range tasks {
		if task.ID != want[i] {
			t.Errorf("tasks[%d].ID = %s after Select, want %s", i, task.ID, want[i])
		}
		if task.Executed() {
			t.Errorf("tasks[%d] marked executed by Select", i)
		}
	}
}

func TestNewPolicy_UnknownName(t *testing.T) {
	tests := []string{"", "fcfs", "LIFO", "Fcfs", "SJF "}

	for _, name := range tests {
		t.Run("name "+name, func(t *testing.T) {
			policy, err := NewPolicy(name, 0)
			if !errors.Is(err, ErrUnknownPolicy) {
				t.Errorf("NewPolicy(%q) error = %v, want ErrUnknownPolicy", name, err)
			}
			if policy != nil {
				t.Errorf("NewPolicy(%q) = %v, want nil", name, policy)
			}
		})
	}
}

func TestNewPolicy_Names(t *testing.T) {
	for _, name := range DefaultAlgorithms() {
		policy, err := NewPolicy(name, 0)
		if err != nil {
			t.Fatalf("NewPolicy(%q) error = %v", name, err)
		}
		if got := policy.Name(); got != name {
			t.Errorf("Name() = %q, want %q", got, name)
		}
	}
}

func TestApplyDVFS(t *testing.T) {
	tests := []struct {
		name       string
		powerWatts float64
		cpuUsage   float64
		want       float64
	}{
		{"idle host scales to 60%", 10.0, 0.0, 6.0},
		{"just below low threshold", 10.0, 29.9, 6.0},
		{"at low threshold scales to 80%", 10.0, 30.0, 8.0},
		{"mid band", 10.0, 45.0, 8.0},
		{"just below high threshold", 10.0, 59.9, 8.0},
		{"at high threshold unscaled", 10.0, 60.0, 10.0},
		{"saturated host unscaled", 10.0, 100.0, 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDVFS(tt.powerWatts, tt.cpuUsage)
			if diff := got - tt.want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("ApplyDVFS(%v, %v) = %v, want %v", tt.powerWatts, tt.cpuUsage, got, tt.want)
			}
		})
	}
}
