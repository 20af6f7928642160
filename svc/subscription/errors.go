package subscription

import "errors"

var (
	// ErrNotActive is returned when a transition requires an active subscription.
	ErrNotActive = errors.New("subscription is not active")

	// ErrAlreadyCanceled is returned when deactivating a canceled subscription.
	ErrAlreadyCanceled = errors.New("subscription is already canceled")

	// ErrUserRequired is returned when a subscription has no owning user.
	ErrUserRequired = errors.New("subscription requires an owning user")

	// ErrSubscribableRequired is returned when a line item has no subscribable reference.
	ErrSubscribableRequired = errors.New("line item requires a subscribable")

	// ErrQuantityNotPositive is returned when a line item quantity is zero or negative.
	ErrQuantityNotPositive = errors.New("line item quantity must be greater than zero")

	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBuilderNil is returned when an order-line preview is requested
	// without a line item builder.
	ErrBuilderNil = errors.New("line item builder is nil")
)
