package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/queue"
)

type testPayload struct {
	InstallmentIDs []uuid.UUID `json:"installment_ids"`
}

func TestNewEnqueuer(t *testing.T) {
	t.Parallel()

	t.Run("rejects nil repository", func(t *testing.T) {
		t.Parallel()
		_, err := queue.NewEnqueuer(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	})
}

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("rejects nil payload", func(t *testing.T) {
		t.Parallel()
		enq, err := queue.NewEnqueuer(queue.NewMemoryStorage())
		require.NoError(t, err)

		assert.ErrorIs(t, enq.Enqueue(context.Background(), nil), queue.ErrPayloadNil)
	})

	t.Run("stores task with derived name and payload", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		enq, err := queue.NewEnqueuer(storage)
		require.NoError(t, err)

		payload := testPayload{InstallmentIDs: []uuid.UUID{uuid.New()}}
		require.NoError(t, enq.Enqueue(context.Background(), payload))

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, "queue_test.testPayload", tasks[0].TaskName)
		assert.Equal(t, queue.DefaultQueueName, tasks[0].Queue)
		assert.Equal(t, queue.TaskStatusPending, tasks[0].Status)

		var got testPayload
		require.NoError(t, json.Unmarshal(tasks[0].Payload, &got))
		assert.Equal(t, payload.InstallmentIDs, got.InstallmentIDs)
	})

	t.Run("applies queue and delay options", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		enq, err := queue.NewEnqueuer(storage, queue.WithDefaultQueue("subscriptions"))
		require.NoError(t, err)

		before := time.Now()
		require.NoError(t, enq.Enqueue(context.Background(), testPayload{},
			queue.WithQueue("installments"),
			queue.WithDelay(time.Hour),
			queue.WithTaskName("custom"),
		))

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, "installments", tasks[0].Queue)
		assert.Equal(t, "custom", tasks[0].TaskName)
		assert.True(t, tasks[0].ScheduledAt.After(before.Add(59*time.Minute)))
	})
}

func TestMemoryStorage_ClaimLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	workerID := uuid.New()

	t.Run("claim returns ErrNoTaskToClaim on empty queue", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		_, err := storage.ClaimTask(ctx, workerID, []string{queue.DefaultQueueName}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("claim then complete", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		enq, err := queue.NewEnqueuer(storage)
		require.NoError(t, err)
		require.NoError(t, enq.Enqueue(ctx, testPayload{}))

		task, err := storage.ClaimTask(ctx, workerID, []string{queue.DefaultQueueName}, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusProcessing, task.Status)

		// A second claim finds nothing while the first is locked.
		_, err = storage.ClaimTask(ctx, workerID, []string{queue.DefaultQueueName}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)

		require.NoError(t, storage.CompleteTask(ctx, task.ID))
		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TaskStatusCompleted, tasks[0].Status)
	})

	t.Run("failed task is retried then parked", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		enq, err := queue.NewEnqueuer(storage)
		require.NoError(t, err)
		require.NoError(t, enq.Enqueue(ctx, testPayload{}, queue.WithMaxRetries(1)))

		task, err := storage.ClaimTask(ctx, workerID, []string{queue.DefaultQueueName}, time.Minute)
		require.NoError(t, err)

		require.NoError(t, storage.FailTask(ctx, task.ID, "boom"))
		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, queue.TaskStatusFailed, tasks[0].Status)

		require.NoError(t, storage.MoveToDead(ctx, task.ID))
		assert.Empty(t, storage.Tasks())

		dead := storage.DeadTasks()
		require.Len(t, dead, 1)
		assert.Equal(t, task.ID, dead[0].TaskID)
		assert.Equal(t, "boom", dead[0].Error)
	})

	t.Run("delayed task is not claimable before its schedule", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		enq, err := queue.NewEnqueuer(storage)
		require.NoError(t, err)
		require.NoError(t, enq.Enqueue(ctx, testPayload{}, queue.WithDelay(time.Hour)))

		_, err = storage.ClaimTask(ctx, workerID, []string{queue.DefaultQueueName}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})
}
