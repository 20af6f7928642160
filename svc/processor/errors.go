package processor

import "errors"

var (
	// ErrStoreNil is returned when the processor is created without a store.
	ErrStoreNil = errors.New("store cannot be nil")

	// ErrEnqueuerNil is returned when the processor is created without an enqueuer.
	ErrEnqueuerNil = errors.New("enqueuer cannot be nil")
)
