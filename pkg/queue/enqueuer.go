package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for task creation
type EnqueuerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer hands asynchronous work off to a task storage. Delivery is
// at-least-once: once CreateTask succeeds the task survives process death.
type Enqueuer struct {
	repo         EnqueuerRepository
	defaultQueue string
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultQueue: DefaultQueueName,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:         repo,
		defaultQueue: options.defaultQueue,
	}, nil
}

// Enqueue adds a new task to the queue. The payload is marshaled to JSON
// and the task name defaults to the payload's qualified struct name, which
// is also how the worker routes tasks to handlers.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrPayloadNil
	}

	options := &enqueueOptions{
		queue:      e.defaultQueue,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(options)
	}

	task, err := e.buildTask(payload, options)
	if err != nil {
		return err
	}

	if err := e.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create task %q in queue %q: %w", task.TaskName, task.Queue, err)
	}

	return nil
}

func (e *Enqueuer) buildTask(payload any, options *enqueueOptions) (*Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	taskName := options.taskName
	if taskName == "" {
		taskName = qualifiedStructName(payload)
	}

	scheduledAt := time.Now()
	if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	return &Task{
		ID:          uuid.New(),
		Queue:       options.queue,
		TaskName:    taskName,
		Payload:     payloadBytes,
		Status:      TaskStatusPending,
		RetryCount:  0,
		MaxRetries:  options.maxRetries,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}, nil
}
