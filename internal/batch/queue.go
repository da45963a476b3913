package batch

import (
	"context"

	"github.com/google/uuid"
)

// Task is a unit of deferred work queued during an install.
type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Queue collects deferred work for one lifecycle run. It is not safe for
// concurrent use; a run owns its queue.
type Queue struct {
	tasks []Task
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add appends a named task and returns its ID.
func (q *Queue) Add(name string, run func(ctx context.Context) error) string {
	id := uuid.NewString()
	q.tasks = append(q.tasks, Task{ID: id, Name: name, Run: run})
	return id
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.tasks)
}

// Tasks returns a copy of the pending tasks in insertion order.
func (q *Queue) Tasks() []Task {
	out := make([]Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// Drain removes and returns every pending task.
func (q *Queue) Drain() []Task {
	tasks := q.tasks
	q.tasks = nil
	return tasks
}
