package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage implements EnqueuerRepository and WorkerRepository over
// Redis: one list per queue for pending tasks, a hash of claimed tasks and
// a dead list for parked ones. Delivery is at-least-once; handlers must
// tolerate duplicates.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStorage creates a Redis-backed task storage.
func NewRedisStorage(client *redis.Client, keyPrefix string) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrRepositoryNil
	}
	if keyPrefix == "" {
		keyPrefix = "subskit:queue"
	}
	return &RedisStorage{client: client, keyPrefix: keyPrefix}, nil
}

// CreateTask implements EnqueuerRepository by pushing the marshaled task
// onto the queue's list. LPUSH is atomic, so a task is either fully visible
// to consumers or not enqueued at all.
func (rs *RedisStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}
	return rs.push(ctx, task)
}

// ClaimTask pops the next due task off the given queues and records it in
// the claimed hash. Tasks scheduled in the future go back to the head of
// their list untouched.
func (rs *RedisStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	now := time.Now()
	for _, queue := range queues {
		raw, err := rs.client.RPop(ctx, rs.queueKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pop task from queue %q: %w", queue, err)
		}

		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task from queue %q: %w", queue, err)
		}

		if task.ScheduledAt.After(now) {
			if err := rs.client.LPush(ctx, rs.queueKey(queue), raw).Err(); err != nil {
				return nil, fmt.Errorf("failed to requeue delayed task %s: %w", task.ID, err)
			}
			continue
		}

		task.Status = TaskStatusProcessing
		lockedUntil := now.Add(lockDuration)
		task.LockedUntil = &lockedUntil
		task.LockedBy = &workerID
		if err := rs.storeClaimed(ctx, &task); err != nil {
			return nil, err
		}
		return &task, nil
	}
	return nil, ErrNoTaskToClaim
}

// CompleteTask drops the task from the claimed hash.
func (rs *RedisStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	removed, err := rs.client.HDel(ctx, rs.claimedKey(), taskID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	if removed == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// FailTask records the error and either requeues the task with linear
// backoff or leaves it failed in the claimed hash for MoveToDead.
func (rs *RedisStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	task, err := rs.loadClaimed(ctx, taskID)
	if err != nil {
		return err
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if task.RetryCount < task.MaxRetries {
		task.Status = TaskStatusPending
		task.ScheduledAt = time.Now().Add(time.Duration(task.RetryCount) * 30 * time.Second)
		if err := rs.push(ctx, task); err != nil {
			return err
		}
		if err := rs.client.HDel(ctx, rs.claimedKey(), taskID.String()).Err(); err != nil {
			return fmt.Errorf("failed to release failed task %s: %w", taskID, err)
		}
		return nil
	}

	task.Status = TaskStatusFailed
	return rs.storeClaimed(ctx, task)
}

// MoveToDead parks a task on the dead list for manual inspection.
func (rs *RedisStorage) MoveToDead(ctx context.Context, taskID uuid.UUID) error {
	task, err := rs.loadClaimed(ctx, taskID)
	if err != nil {
		return err
	}

	reason := "unknown"
	if task.Error != nil {
		reason = *task.Error
	}
	dead := DeadTask{
		ID:         uuid.New(),
		TaskID:     task.ID,
		Queue:      task.Queue,
		TaskName:   task.TaskName,
		Payload:    task.Payload,
		Error:      reason,
		RetryCount: task.RetryCount,
		FailedAt:   time.Now(),
	}
	raw, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("failed to marshal dead task %s: %w", taskID, err)
	}

	if err := rs.client.LPush(ctx, rs.deadKey(), raw).Err(); err != nil {
		return fmt.Errorf("failed to park task %s: %w", taskID, err)
	}
	if err := rs.client.HDel(ctx, rs.claimedKey(), taskID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove parked task %s: %w", taskID, err)
	}
	return nil
}

func (rs *RedisStorage) push(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %q: %w", task.TaskName, err)
	}
	if err := rs.client.LPush(ctx, rs.queueKey(task.Queue), raw).Err(); err != nil {
		return fmt.Errorf("failed to push task %q to queue %q: %w", task.TaskName, task.Queue, err)
	}
	return nil
}

func (rs *RedisStorage) storeClaimed(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal claimed task %s: %w", task.ID, err)
	}
	if err := rs.client.HSet(ctx, rs.claimedKey(), task.ID.String(), raw).Err(); err != nil {
		return fmt.Errorf("failed to store claimed task %s: %w", task.ID, err)
	}
	return nil
}

func (rs *RedisStorage) loadClaimed(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	raw, err := rs.client.HGet(ctx, rs.claimedKey(), taskID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed task %s: %w", taskID, err)
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claimed task %s: %w", taskID, err)
	}
	return &task, nil
}

func (rs *RedisStorage) queueKey(queue string) string {
	if queue == "" {
		queue = DefaultQueueName
	}
	return rs.keyPrefix + ":" + queue
}

func (rs *RedisStorage) claimedKey() string {
	return rs.keyPrefix + ":claimed"
}

func (rs *RedisStorage) deadKey() string {
	return rs.keyPrefix + ":dead"
}
