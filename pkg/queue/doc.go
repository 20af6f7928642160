// Package queue implements the asynchronous hand-off between the
// subscription processor and the installment fulfillment jobs.
//
// The processor enqueues one task per user and shipping address group; a
// Worker claims tasks and routes them to registered handlers by task name.
// Task names default to the payload's qualified struct name, so a payload
// type enqueued on one side is matched by NewTaskHandler over the same type
// on the other.
//
// Two storages are provided: MemoryStorage covers tests and single-process
// deployments, RedisStorage keeps pending tasks on a Redis list per queue
// so the hand-off survives restarts. Delivery is at-least-once in both
// cases; handlers must be idempotent. Tasks that exhaust their retries are
// parked as DeadTask records for manual inspection rather than retried
// forever.
package queue
