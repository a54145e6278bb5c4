package codes

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a mutex-guarded Store for tests and single-instance
// deployments. Consume removes the entry under the lock, so a replayed
// code loses the race deterministically.
type InMemoryStore struct {
	codes   map[string]*Code
	lock    sync.Mutex
	nowFunc func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		codes:   make(map[string]*Code),
		nowFunc: time.Now,
	}
}

// WithNowFunc overrides the clock (testing).
func (s *InMemoryStore) WithNowFunc(now func() time.Time) *InMemoryStore {
	s.nowFunc = now
	return s
}

func (s *InMemoryStore) Save(_ context.Context, code *Code) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	// Expired entries are garbage-collected opportunistically.
	now := s.nowFunc()
	for key, stored := range s.codes {
		if stored.Expired(now) {
			delete(s.codes, key)
		}
	}

	clone := *code
	s.codes[code.Code] = &clone
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, code string) (*Code, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored, ok := s.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.codes, code)

	if stored.Expired(s.nowFunc()) {
		return nil, ErrNotFound
	}
	return stored, nil
}
