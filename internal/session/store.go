package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store maps connection identities to live sessions. Synchronization covers
// only creation and lookup; the per-session processing body relies on the
// session's own busy gate.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewStore() *Store {
	// Sessions idle for an hour are purged even if the transport never
	// reported a disconnect
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &Store{
		cache: c,
	}
}

// LoadOrCreate returns the session for id, creating it on first contact.
func (s *Store) LoadOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x, found := s.cache.Get(id); found {
		sess := x.(*Session)
		s.cache.Set(id, sess, cache.DefaultExpiration) // refresh TTL
		return sess
	}
	sess := New(id)
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess
}

func (s *Store) Get(id string) (*Session, bool) {
	if x, found := s.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

// Drop releases the session when its connection terminates.
func (s *Store) Drop(id string) {
	s.cache.Delete(id)
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}
