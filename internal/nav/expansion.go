package nav

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Expansion is the in-memory sidebar state of one browser session: which sections
// are open and whether the sidebar is in its narrow width.
type Expansion struct {
	mu        sync.Mutex
	open      map[string]bool
	collapsed bool
}

// NewExpansion constructs an Expansion with every section closed.
func NewExpansion() *Expansion {
	return &Expansion{open: make(map[string]bool)}
}

// Toggle flips a section and returns whether it is now open.
func (x *Expansion) Toggle(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.open[id] {
		delete(x.open, id)
		return false
	}
	x.open[id] = true
	return true
}

// Expand opens a section.
func (x *Expansion) Expand(id string) {
	x.mu.Lock()
	x.open[id] = true
	x.mu.Unlock()
}

// IsOpen reports whether a section is open.
func (x *Expansion) IsOpen(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.open[id]
}

// Open lists the open section ids in order.
func (x *Expansion) Open() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	ids := make([]string, 0, len(x.open))
	for id := range x.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AutoExpand opens every visible section holding an item that matches current. Open
// sections stay open. It returns the ids it opened.
func (x *Expansion) AutoExpand(visible []Entry, current string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	var opened []string
	for _, e := range visible {
		if !e.IsSection() || e.ID == "" || x.open[e.ID] {
			continue
		}
		if containsMatch(e, current) {
			x.open[e.ID] = true
			opened = append(opened, e.ID)
		}
	}
	return opened
}

// SetCollapsed switches between narrow and wide width.
func (x *Expansion) SetCollapsed(collapsed bool) {
	x.mu.Lock()
	x.collapsed = collapsed
	x.mu.Unlock()
}

// ToggleCollapsed flips the width mode and returns whether it is now narrow.
func (x *Expansion) ToggleCollapsed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.collapsed = !x.collapsed
	return x.collapsed
}

// Collapsed reports whether the sidebar is narrow.
func (x *Expansion) Collapsed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.collapsed
}

// ExpansionRegistry keeps one Expansion per browser session. State lives only in
// memory and is forgotten after the idle ttl.
type ExpansionRegistry struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Expansion]
}

// NewExpansionRegistry constructs a registry of at most size sessions.
func NewExpansionRegistry(size int, ttl time.Duration) *ExpansionRegistry {
	if size <= 0 {
		size = 1024
	}
	return &ExpansionRegistry{cache: expirable.NewLRU[string, *Expansion](size, nil, ttl)}
}

// Get returns the Expansion for key, creating it when absent.
func (r *ExpansionRegistry) Get(key string) *Expansion {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.cache.Get(key); ok {
		r.cache.Add(key, x)
		return x
	}
	x := NewExpansion()
	r.cache.Add(key, x)
	return x
}

// Forget drops the state of key.
func (r *ExpansionRegistry) Forget(key string) {
	r.cache.Remove(key)
}
