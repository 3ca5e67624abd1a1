package appstate

import (
	"context"
	"sync"
)

// Scheduler defers work to the next tick of the UI loop.
type Scheduler interface {
	Schedule(fn func()) Task
}

// Task is a scheduled unit of work.
type Task interface {
	// Cancel prevents the task from running. It reports false when the task
	// already ran or was already cancelled.
	Cancel() bool
}

// TaskQueue is a single-threaded FIFO task queue. Tasks scheduled while a
// tick is running are deferred to the following tick.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  []*queuedTask
	notify chan struct{}
}

type queuedTask struct {
	mu   sync.Mutex
	fn   func()
	done bool
}

func (t *queuedTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.fn = nil
	return true
}

func (t *queuedTask) claim() func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	fn := t.fn
	t.fn = nil
	return fn
}

// NewTaskQueue returns an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{notify: make(chan struct{}, 1)}
}

// Schedule appends fn to the queue.
func (q *TaskQueue) Schedule(fn func()) Task {
	task := &queuedTask{fn: fn}
	if fn == nil {
		task.done = true
		return task
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	notify := q.notifyChan()
	q.mu.Unlock()

	select {
	case notify <- struct{}{}:
	default:
	}
	return task
}

// Len returns the number of queued tasks, including cancelled ones not yet
// drained.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// RunPending runs one tick: every task queued before the call, in order.
// It returns how many tasks actually ran.
func (q *TaskQueue) RunPending() int {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	ran := 0
	for _, task := range batch {
		if fn := task.claim(); fn != nil {
			fn()
			ran++
		}
	}
	return ran
}

// Drain runs ticks until the queue is empty and returns the number of tasks
// run.
func (q *TaskQueue) Drain() int {
	total := 0
	for q.Len() > 0 {
		total += q.RunPending()
	}
	return total
}

// Run pumps the queue until ctx is done. It is meant to be the body of the
// goroutine that owns the UI state.
func (q *TaskQueue) Run(ctx context.Context) error {
	q.mu.Lock()
	notify := q.notifyChan()
	q.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notify:
			q.RunPending()
		}
	}
}

func (q *TaskQueue) notifyChan() chan struct{} {
	if q.notify == nil {
		q.notify = make(chan struct{}, 1)
	}
	return q.notify
}
