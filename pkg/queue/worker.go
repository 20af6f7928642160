package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimTask atomically claims the next available task
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	// CompleteTask marks task as completed
	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask marks task as failed and increments retry count
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error

	// MoveToDead parks a task that exhausted all retries
	MoveToDead(ctx context.Context, taskID uuid.UUID) error
}

// Worker pulls tasks from the queue and runs registered handlers.
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pullInterval:       5 * time.Second,
		lockTimeout:        5 * time.Minute,
		maxConcurrentTasks: 1,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       options.queues,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentTasks),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger,
	}, nil
}

// RegisterHandlers registers task handlers keyed by handler name.
func (w *Worker) RegisterHandlers(handlers ...Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			w.handlers[h.Name()] = h
		}
	}
}

// Run processes tasks until the context is canceled, then waits for
// in-flight handlers to finish. It blocks and is intended to be launched
// from an errgroup or a dedicated goroutine.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.RLock()
	handlerCount := len(w.handlers)
	w.mu.RUnlock()
	if handlerCount == 0 {
		return ErrNoHandlers
	}

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))

	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping, waiting for active tasks",
				slog.String("worker_id", w.workerID.String()))
			w.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.pullAndProcess(ctx); err != nil && !errors.Is(err, ErrHandlerNotFound) {
						w.logger.Error("failed to process task",
							slog.String("worker_id", w.workerID.String()),
							slog.String("error", err.Error()))
					}
				}()
			default:
				// All slots busy, skip this tick.
			}
		}
	}
}

func (w *Worker) pullAndProcess(ctx context.Context) error {
	task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues, w.lockTimeout)
	if err != nil {
		// An empty queue is the normal idle case, not an error.
		if errors.Is(err, ErrNoTaskToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim task: %w", err)
	}
	if task == nil {
		return nil
	}

	w.logger.Debug("claimed task",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue))

	return w.processTask(task)
}

func (w *Worker) processTask(task *Task) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.TaskName),
				slog.Any("panic", r))
			_ = w.handleTaskFailure(task, retErr, time.Since(start))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()
	if !ok {
		return w.handleMissingHandler(task)
	}

	// The handler context is detached from the run loop so graceful
	// shutdown lets in-flight tasks complete; the lock timeout bounds it.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := handler.Handle(ctx, task.Payload)
	duration := time.Since(start)

	if err != nil {
		return w.handleTaskFailure(task, err, duration)
	}

	return w.handleTaskSuccess(task, duration)
}

// handleMissingHandler parks unroutable tasks immediately: retries cannot
// help until the missing handler is deployed, and parked tasks can be
// requeued manually afterwards.
func (w *Worker) handleMissingHandler(task *Task) error {
	w.logger.Error("no handler registered for task type",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName))

	if err := w.repo.FailTask(context.Background(), task.ID, "no handler registered for task type: "+task.TaskName); err != nil {
		return fmt.Errorf("failed to mark task %s as failed: %w", task.ID, err)
	}
	if err := w.repo.MoveToDead(context.Background(), task.ID); err != nil {
		return fmt.Errorf("failed to park task %s: %w", task.ID, err)
	}

	return ErrHandlerNotFound
}

func (w *Worker) handleTaskFailure(task *Task, execErr error, duration time.Duration) error {
	w.logger.Error("task failed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.Int("retry_count", int(task.RetryCount)),
		slog.Int("max_retries", int(task.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	// FailTask records the error and either resets the task to pending with
	// backoff or leaves it failed once retries are exhausted.
	if err := w.repo.FailTask(context.Background(), task.ID, execErr.Error()); err != nil {
		return fmt.Errorf("failed to update task %s status to failed: %w", task.ID, err)
	}

	// The claimed copy predates FailTask's increment, hence the +1.
	if task.RetryCount+1 >= task.MaxRetries {
		if err := w.repo.MoveToDead(context.Background(), task.ID); err != nil {
			return fmt.Errorf("failed to park task %s after max retries: %w", task.ID, err)
		}
		w.logger.Warn("task parked after exhausting retries",
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.TaskName))
	}

	return nil
}

func (w *Worker) handleTaskSuccess(task *Task, duration time.Duration) error {
	if err := w.repo.CompleteTask(context.Background(), task.ID); err != nil {
		return fmt.Errorf("failed to mark task %s as completed: %w", task.ID, err)
	}

	w.logger.Info("task completed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue),
		slog.Duration("duration", duration))

	return nil
}
