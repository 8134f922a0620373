package memory

import (
	"context"
	"sync"
	"time"
)

// CounterStore counts increments per key without TTL expiry. Err forces
// every Incr to fail, which exercises the limiter's fail-open path.
type CounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	Err    error
}

func NewCounterStore() *CounterStore {
	return &CounterStore{counts: map[string]int64{}}
}

func (s *CounterStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.counts[key]++
	return s.counts[key], nil
}

// RecomputeGate grants the slot to the first caller and holds it until the
// cooldown elapses.
type RecomputeGate struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewRecomputeGate() *RecomputeGate {
	return &RecomputeGate{until: map[string]time.Time{}, now: time.Now}
}

func (g *RecomputeGate) TryAcquire(_ context.Context, key string, cooldown time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if held, ok := g.until[key]; ok && held.After(now) {
		return false, nil
	}
	g.until[key] = now.Add(cooldown)
	return true, nil
}

// Release clears the slot so tests can trigger back-to-back runs.
func (g *RecomputeGate) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.until, key)
}

// SpamLabelClient serves labels from a fixed map. Absent DIDs are unlabeled.
type SpamLabelClient struct {
	mu     sync.RWMutex
	labels map[string]bool
	Err    error
}

func NewSpamLabelClient() *SpamLabelClient {
	return &SpamLabelClient{labels: map[string]bool{}}
}

func (c *SpamLabelClient) SetLabel(did string, spam bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels[did] = spam
}

func (c *SpamLabelClient) IsSpamLabeled(_ context.Context, did string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return false, c.Err
	}
	return c.labels[did], nil
}

func (c *SpamLabelClient) BatchIsSpamLabeled(_ context.Context, dids []string) (map[string]bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := make(map[string]bool, len(dids))
	for _, did := range dids {
		if c.labels[did] {
			out[did] = true
		}
	}
	return out, nil
}
