// Package inflight rejects concurrent work on the same key.
package inflight

import (
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// Guard holds one marker per key in progress. Markers never expire: a key
// stays busy until its holder releases it.
type Guard struct {
	mu     sync.Mutex
	held   *cache.Cache
	tokens atomic.Uint64
}

func NewGuard() *Guard {
	return &Guard{held: cache.New(cache.NoExpiration, 0)}
}

// TryAcquire marks key as busy. It returns false if the key is already held.
// The returned release only frees the marker it created, and is safe to call twice.
func (g *Guard) TryAcquire(key string) (release func(), ok bool) {
	token := g.tokens.Add(1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.held.Add(key, token, cache.NoExpiration); err != nil {
		return nil, false
	}

	return func() { g.release(key, token) }, true
}

func (g *Guard) release(key string, token uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if owner, found := g.held.Get(key); found && owner.(uint64) == token {
		g.held.Delete(key)
	}
}

// Held reports whether key is currently in progress.
func (g *Guard) Held(key string) bool {
	_, found := g.held.Get(key)
	return found
}
