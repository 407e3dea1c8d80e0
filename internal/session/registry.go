package session

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Registry keeps one Store per browser session so that concurrent requests of the
// same browser observe the same state. Idle entries are evicted; their snapshot stays
// in Storage and is restored on the next request.
type Registry struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *Store]
	config func(key string) Config
}

// NewRegistry constructs a Registry holding at most size stores, each evicted after
// ttl without use. config builds the Store configuration for a key.
func NewRegistry(size int, ttl time.Duration, config func(key string) Config) *Registry {
	if size <= 0 {
		size = 1024
	}
	return &Registry{
		cache:  expirable.NewLRU[string, *Store](size, nil, ttl),
		config: config,
	}
}

// Acquire returns the store for key, creating it when absent. created reports
// whether the caller must run Restore.
func (r *Registry) Acquire(key string) (store *Store, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if store, ok := r.cache.Get(key); ok {
		// Re-adding refreshes the idle deadline.
		r.cache.Add(key, store)
		return store, false
	}
	cfg := r.config(key)
	cfg.Key = key
	store = NewStore(cfg)
	r.cache.Add(key, store)
	return store, true
}

// Peek returns the store for key without creating one.
func (r *Registry) Peek(key string) (*Store, bool) {
	return r.cache.Peek(key)
}

// Forget drops the store for key; its persisted snapshot is untouched.
func (r *Registry) Forget(key string) {
	r.cache.Remove(key)
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	return r.cache.Len()
}

type storeKey struct{}

// ContextWithStore stores s in ctx.
func ContextWithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the Store attached to ctx, if any.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeKey{}).(*Store)
	return s, ok && s != nil
}
