package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	domcart "example.com/shoecart/internal/domain/cart"
)

const DefaultKeyPrefix = "@RocketShoes:cart"

var ErrEmptySession = errors.New("session id is required")

type entry struct {
	store    *Store
	lastUsed atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastUsed.Store(now.UnixNano())
}

type RegistryOption func(*Registry)

// WithIdleTTL drops stores that were not opened for d. They are rebuilt from
// their snapshot on the next Open. Zero keeps stores for the process lifetime.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// Registry keeps one Store per shopper session.
type Registry struct {
	prefix  string
	deps    Dependencies
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	stores    map[string]*entry
	nextSweep atomic.Int64
}

func NewRegistry(prefix string, deps Dependencies, opts ...RegistryOption) *Registry {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	r := &Registry{
		prefix: prefix,
		deps:   deps,
		now:    time.Now,
		stores: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) KeyFor(sessionID string) string {
	return r.prefix + ":" + sessionID
}

// Open returns the session's store, restoring it from storage on first use.
// A failed restore is returned and nothing is cached.
func (r *Registry) Open(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	r.sweep()

	if s, ok := r.lookup(sessionID); ok {
		return s, nil
	}

	// Built without the lock: restoring reads storage.
	s, err := NewStore(domcart.WithSession(ctx, sessionID), r.KeyFor(sessionID), r.deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[sessionID]; ok {
		e.touch(r.now())
		return e.store, nil
	}
	e := &entry{store: s}
	e.touch(r.now())
	r.stores[sessionID] = e
	return s, nil
}

func (r *Registry) lookup(sessionID string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stores[sessionID]
	if !ok {
		return nil, false
	}
	e.touch(r.now())
	return e.store, true
}

// sweep evicts idle stores, at most twice per idle TTL.
func (r *Registry) sweep() {
	if r.idleTTL <= 0 {
		return
	}
	now := r.now()
	if now.UnixNano() < r.nextSweep.Load() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSweep.Store(now.Add(r.idleTTL / 2).UnixNano())
	cutoff := now.Add(-r.idleTTL).UnixNano()
	for id, e := range r.stores {
		if e.lastUsed.Load() < cutoff {
			delete(r.stores, id)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}
