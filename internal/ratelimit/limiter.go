package ratelimit

import "context"

// RateLimiter bounds call throughput per key, e.g. "trigger:<workflowId>".
type RateLimiter interface {
	// Allow reports whether one more call is permitted right now.
	Allow(ctx context.Context, key string) (bool, error)

	// Wait blocks until a call is permitted or the context ends.
	Wait(ctx context.Context, key string) error
}
