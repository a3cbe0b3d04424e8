package flight

import (
	"context"
	"sync"
)

// Guard grants at most one in-flight execution per key. Acquire returns
// false when another flow already holds the key; the caller rejects the
// request as "already processing" instead of queueing it.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string)
}

// MemoryGuard is the session-scoped implementation: in-process only, no
// cross-instance claims.
type MemoryGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inflight: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return false, nil
	}
	g.inflight[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}
