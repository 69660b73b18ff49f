package app

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is deferred work. Tasks cannot be withdrawn once scheduled; they
// check whether they are still relevant when run.
type Task interface {
	Run(ctx context.Context)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context)

func (f TaskFunc) Run(ctx context.Context) { f(ctx) }

type scheduledTask struct {
	due  time.Time
	seq  uint64
	task Task
}

// taskQueue orders by due time, then by scheduling order.
type taskQueue []*scheduledTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*scheduledTask)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// TaskManager runs delayed tasks. Due tasks are drained every poll interval
// and run sequentially on the Run goroutine.
type TaskManager struct {
	poll time.Duration
	now  func() time.Time

	mu    sync.Mutex
	queue taskQueue
	seq   uint64
}

func NewTaskManager(poll time.Duration) *TaskManager {
	return &TaskManager{poll: poll, now: time.Now}
}

func (m *TaskManager) Schedule(task Task, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	heap.Push(&m.queue, &scheduledTask{due: m.now().Add(delay), seq: m.seq, task: task})
	log.Debug().Str("module", "app.tasks").Dur("delay", delay).Int("pending", len(m.queue)).Msg("scheduled task")
}

func (m *TaskManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *TaskManager) drainDue() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var due []Task
	for len(m.queue) > 0 && !m.queue[0].due.After(now) {
		due = append(due, heap.Pop(&m.queue).(*scheduledTask).task)
	}
	return due
}

// RunDue runs every task whose due time has passed and reports how many ran.
func (m *TaskManager) RunDue(ctx context.Context) int {
	due := m.drainDue()
	for _, t := range due {
		t.Run(ctx)
	}
	if len(due) > 0 {
		log.Debug().Str("module", "app.tasks").Int("count", len(due)).Msg("ran tasks")
	}
	return len(due)
}

func (m *TaskManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	log.Info().Str("module", "app.tasks").Dur("poll", m.poll).Msg("task manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.tasks").Int("pending", m.Len()).Msg("task manager stopped")
			return nil
		case <-ticker.C:
			m.RunDue(ctx)
		}
	}
}
