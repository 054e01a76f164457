package cart

import (
	"sync"
	"time"
)

// Store hands out the cart belonging to a browsing session. Carts are
// created lazily on first use and evicted after sitting untouched for the
// configured TTL; eviction happens opportunistically on access.
type Store struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.Mutex
	carts map[string]*entry
}

type entry struct {
	cart    *Cart
	touched time.Time
}

// NewStore constructs a Store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{TTL: ttl, carts: make(map[string]*entry)}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get returns the session's cart, creating it if needed.
func (s *Store) Get(sessionID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	e, ok := s.carts[sessionID]
	if !ok {
		e = &entry{cart: &Cart{}}
		s.carts[sessionID] = e
	}
	e.touched = now
	return e.cart
}

// Drop discards the session's cart entirely (logout).
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}

// Len reports the number of live carts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Store) sweepLocked(now time.Time) {
	if s.TTL <= 0 {
		return
	}
	for id, e := range s.carts {
		if now.Sub(e.touched) > s.TTL {
			delete(s.carts, id)
		}
	}
}
