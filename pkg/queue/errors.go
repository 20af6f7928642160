package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrNoTaskToClaim is returned by storage when no pending task is due
	ErrNoTaskToClaim = errors.New("no task available to claim")

	// ErrTaskNotFound is returned when the referenced task does not exist
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotProcessing is returned when completing or failing a task
	// that is not currently claimed
	ErrTaskNotProcessing = errors.New("task is not in processing state")
)
