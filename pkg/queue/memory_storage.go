package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements the queue repository interfaces for tests and
// local development. All operations are guarded by a single mutex; tasks are
// returned as copies so callers cannot mutate stored state.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	dead  map[uuid.UUID]*DeadTask
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks: make(map[uuid.UUID]*Task),
		dead:  make(map[uuid.UUID]*DeadTask),
	}
}

// CreateTask implements EnqueuerRepository
func (ms *MemoryStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	taskCopy := *task
	ms.tasks[task.ID] = &taskCopy
	return nil
}

// ClaimTask implements WorkerRepository. The oldest due pending task from
// the requested queues wins; expired locks are released in passing so tasks
// claimed by dead workers become available again.
func (ms *MemoryStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	var best *Task
	for _, task := range ms.tasks {
		if task.Status == TaskStatusProcessing && task.LockedUntil != nil && task.LockedUntil.Before(now) {
			task.Status = TaskStatusPending
			task.LockedUntil = nil
			task.LockedBy = nil
		}
		if task.Status != TaskStatusPending {
			continue
		}
		if !slices.Contains(queues, task.Queue) {
			continue
		}
		if task.ScheduledAt.After(now) {
			continue
		}
		if best == nil || task.ScheduledAt.Before(best.ScheduledAt) {
			best = task
		}
	}

	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = TaskStatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID

	taskCopy := *best
	return &taskCopy, nil
}

// CompleteTask implements WorkerRepository
func (ms *MemoryStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil
	return nil
}

// FailTask implements WorkerRepository. Tasks with retries remaining are
// reset to pending with a linear backoff; otherwise they stay failed.
func (ms *MemoryStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}
	if task.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if task.RetryCount >= task.MaxRetries {
		task.Status = TaskStatusFailed
	} else {
		task.Status = TaskStatusPending
		task.ScheduledAt = time.Now().Add(time.Duration(task.RetryCount) * 30 * time.Second)
	}

	return nil
}

// MoveToDead implements WorkerRepository
func (ms *MemoryStorage) MoveToDead(ctx context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}

	entry := &DeadTask{
		ID:         uuid.New(),
		TaskID:     task.ID,
		Queue:      task.Queue,
		TaskName:   task.TaskName,
		Payload:    task.Payload,
		RetryCount: task.RetryCount,
		FailedAt:   time.Now(),
	}
	if task.Error != nil {
		entry.Error = *task.Error
	}

	ms.dead[entry.ID] = entry
	delete(ms.tasks, taskID)
	return nil
}

// Tasks returns a snapshot of all stored tasks, for assertions in tests.
func (ms *MemoryStorage) Tasks() []Task {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]Task, 0, len(ms.tasks))
	for _, task := range ms.tasks {
		out = append(out, *task)
	}
	return out
}

// DeadTasks returns a snapshot of all parked tasks, for assertions in tests.
func (ms *MemoryStorage) DeadTasks() []DeadTask {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]DeadTask, 0, len(ms.dead))
	for _, entry := range ms.dead {
		out = append(out, *entry)
	}
	return out
}
