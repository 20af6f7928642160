package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString is returned when the connection URL is invalid.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady is returned when all connection attempts fail.
	ErrRedisNotReady = errors.New("redis server is not ready")

	// ErrHealthcheckFailed is returned when a ping against the server fails.
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
