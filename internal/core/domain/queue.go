package domain

// TaskQueue is the ready set for one simulation run: tasks that have been
// generated but not yet executed, held in insertion order. The queue imposes
// no scheduling order of its own; a policy derives order at selection time.
// Removal is the engine's job, never the policy's.
type TaskQueue struct {
	tasks []*Task
}

// NewTaskQueue builds a queue seeded with the given tasks, preserving order.
func NewTaskQueue(tasks ...*Task) *TaskQueue {
	q := &TaskQueue{tasks: make([]*Task, 0, len(tasks))}
	q.tasks = append(q.tasks, tasks...)
	return q
}

// Add appends a task to the queue.
func (q *TaskQueue) Add(t *Task) {
	q.tasks = append(q.tasks, t)
}

// Remove drops the task with the given ID, keeping the remaining insertion
// order intact. Returns false if no such task is queued.
func (q *TaskQueue) Remove(id string) bool {
	for i, t := range q.tasks {
		if t.ID == id {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// GetByID returns the queued task with the given ID, or nil.
func (q *TaskQueue) GetByID(id string) *Task {
	for _, t := range q.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Tasks exposes the queued tasks in insertion order. Callers must treat the
// slice as read-only; selection policies never mutate it.
func (q *TaskQueue) Tasks() []*Task {
	return q.tasks
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// IsEmpty reports whether no tasks remain.
func (q *TaskQueue) IsEmpty() bool {
	return len(q.tasks) == 0
}
