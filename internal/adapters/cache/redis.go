package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore backs the write rate limiter with per-key atomic
// increments. Keys carry a TTL so minute buckets self-clean.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Incr atomically increments the key and returns the new count. The TTL
// is (re)applied in the same pipeline so a counter never outlives its
// window by more than the expiry slack.
func (s *RedisCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RedisRecomputeGate coordinates batch recomputation across instances with
// a SET NX marker. The marker expires after the cooldown so a crashed run
// never wedges the gate permanently.
type RedisRecomputeGate struct {
	client *redis.Client
}

func NewRedisRecomputeGate(client *redis.Client) *RedisRecomputeGate {
	return &RedisRecomputeGate{client: client}
}

func (g *RedisRecomputeGate) TryAcquire(ctx context.Context, key string, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), cooldown).Result()
}
