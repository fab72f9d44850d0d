package memory

import (
	"context"
	"sync"
	"time"

	"go-healthcare-frontdesk/internal/domain"
)

// CartStore is one session's cart. Items keep append order and are never deduplicated.
type CartStore struct {
	mu    sync.Mutex
	items []domain.CartItem
}

var _ domain.CartStore = (*CartStore)(nil)

func NewCartStore() *CartStore {
	return &CartStore{}
}

// AddItem appends item unconditionally
func (s *CartStore) AddItem(item domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// RemoveItem drops every item whose ID matches. Unknown IDs are a no-op.
func (s *CartStore) RemoveItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	// Clear the tail so removed items can be collected
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = domain.CartItem{}
	}
	s.items = kept
}

// Items returns a copy of the current collection
func (s *CartStore) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// CartRegistry owns the carts of every live session. It is created once at startup
// and injected; restarting the process empties it.
type CartRegistry struct {
	mu       sync.Mutex
	carts    map[string]*cartEntry
	ttl      time.Duration
	onChange func(n int)
	now      func() time.Time
}

type cartEntry struct {
	store    *CartStore
	lastSeen time.Time
}

var _ domain.CartRegistry = (*CartRegistry)(nil)

// NewCartRegistry creates an empty registry. Carts idle for longer than ttl are dropped by
// Cleanup; ttl <= 0 keeps them forever. onChange, if set, receives the session count whenever it changes.
func NewCartRegistry(ttl time.Duration, onChange func(n int)) *CartRegistry {
	return &CartRegistry{
		carts:    make(map[string]*cartEntry),
		ttl:      ttl,
		onChange: onChange,
		now:      time.Now,
	}
}

// Get returns the session's cart, creating an empty one on first use
func (r *CartRegistry) Get(sessionID string) domain.CartStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.carts[sessionID]
	if !ok {
		entry = &cartEntry{store: NewCartStore()}
		r.carts[sessionID] = entry
		r.notify()
	}
	entry.lastSeen = r.now()
	return entry.store
}

// Lookup returns the session's cart only if one already exists
func (r *CartRegistry) Lookup(sessionID string) (domain.CartStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.carts[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.store, true
}

func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Cleanup drops idle carts until ctx is done
func (r *CartRegistry) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

// evictIdle removes carts not touched within ttl and returns how many were dropped
func (r *CartRegistry) evictIdle() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for id, entry := range r.carts {
		if entry.lastSeen.Before(cutoff) {
			delete(r.carts, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.notify()
	}
	return evicted
}

// notify must be called with mu held
func (r *CartRegistry) notify() {
	if r.onChange != nil {
		r.onChange(len(r.carts))
	}
}
