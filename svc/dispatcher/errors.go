package dispatcher

import "errors"

var (
	// ErrStoreNil is returned when the dispatcher is created without a store.
	ErrStoreNil = errors.New("installment store cannot be nil")

	// ErrOrderServiceNil is returned when the dispatcher is created without an order service.
	ErrOrderServiceNil = errors.New("order service cannot be nil")

	// ErrUnknownOutcome is returned when dispatching an unregistered outcome.
	ErrUnknownOutcome = errors.New("unknown outcome")

	// ErrIncompleteVariant is returned when registering a variant missing a hook.
	ErrIncompleteVariant = errors.New("variant requires both mutate and message hooks")
)
