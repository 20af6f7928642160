package storefront

import "errors"

var (
	// ErrBaseURLRequired is returned when the client is created without a base URL.
	ErrBaseURLRequired = errors.New("storefront base URL is required")

	// ErrRequestFailed is returned on non-2xx storefront responses.
	ErrRequestFailed = errors.New("storefront request failed")

	// ErrUnexpectedStatus is returned when the storefront reports an unknown order status.
	ErrUnexpectedStatus = errors.New("unexpected order status")
)
