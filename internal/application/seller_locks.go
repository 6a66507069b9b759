package application

import "sync"

// sellerLocks serializes handler execution per seller within this process.
// Entries are reference counted and removed when unused.
type sellerLocks struct {
	mu    sync.Mutex
	locks map[string]*sellerLock
}

type sellerLock struct {
	mu   sync.Mutex
	refs int
}

func newSellerLocks() *sellerLocks {
	return &sellerLocks{locks: make(map[string]*sellerLock)}
}

// lock blocks until the seller is free and returns the matching unlock.
func (s *sellerLocks) lock(sellerID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sellerID]
	if !ok {
		l = &sellerLock{}
		s.locks[sellerID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sellerID)
		}
		s.mu.Unlock()
	}
}

func (s *sellerLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
