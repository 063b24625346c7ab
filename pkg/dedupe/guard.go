package dedupe

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Guard absorbs redelivered events and duplicate subscriptions. Two concerns
// share it at different keys: time-windowed event dedupe and ownership claims
// for shared changefeed subscriptions.
//
// All state is process-local and lost on restart. The durable store is the
// system of record, so a replay after restart risks only a duplicate effect,
// never a duplicate row.
type Guard struct {
	seen *cache.Cache

	mu     sync.Mutex
	owners map[string]struct{}
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{
		seen:   cache.New(cache.NoExpiration, 10*time.Minute),
		owners: make(map[string]struct{}),
	}
}

// ShouldDispatch reports whether the effect for key may fire now, and if so
// records the dispatch. A second call within window returns false. The
// underlying Add is atomic, so concurrent callers cannot both pass.
func (g *Guard) ShouldDispatch(key string, window time.Duration) bool {
	return g.seen.Add(key, time.Now(), window) == nil
}

// Claim takes ownership of key. It returns true exactly once until Release
// is called for the same key.
func (g *Guard) Claim(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.owners[key]; ok {
		return false
	}
	g.owners[key] = struct{}{}
	return true
}

// Release gives up ownership of key. Releasing an unclaimed key is a no-op.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.owners, key)
}
