package ports

import (
	"context"
	"time"
)

// CounterStore is the shared counter interface backing rate limiting.
// Increments must be atomic per key; TTL makes windows self-cleaning.
type CounterStore interface {
	// Incr atomically increments key, applying ttl when the key is created,
	// and returns the post-increment value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RecomputeGate is the time-based exclusive marker guarding batch
// recomputation. It only needs to make concurrent runs rare, not
// impossible; recomputation is idempotent full replacement.
type RecomputeGate interface {
	// TryAcquire sets the marker if absent and returns whether this caller
	// won the slot. The marker expires after cooldown.
	TryAcquire(ctx context.Context, key string, cooldown time.Duration) (bool, error)
}
