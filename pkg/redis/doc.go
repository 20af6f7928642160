// Package redis provides connection helpers for the go-redis client:
// a retrying Connect driven by env-tagged Config, and a health check
// closure for liveness probes.
//
// subskit uses Redis as the hand-off transport for installment processing
// tasks (see pkg/queue.RedisStorage); this package only owns connectivity.
package redis
