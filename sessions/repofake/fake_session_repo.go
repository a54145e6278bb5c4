// Package repofake provides an in-memory session repository for tests
// and local development.
package repofake

import (
	"context"
	"sync"

	"github.com/nexus-universe/nexus-auth/sessions"
)

// FakeSessionRepo is an in-memory implementation of sessions.Repo.
type FakeSessionRepo struct {
	mu       sync.RWMutex
	sessions []*sessions.Session
}

// NewFakeSessionRepo creates an empty in-memory session repository.
func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

// Append stores a session.
func (r *FakeSessionRepo) Append(_ context.Context, session *sessions.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions = append(r.sessions, &clone)
	return nil
}

// ListByAccount returns the sessions recorded for an account, oldest first.
func (r *FakeSessionRepo) ListByAccount(_ context.Context, accountID string) ([]*sessions.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*sessions.Session
	for _, s := range r.sessions {
		if s.AccountID == accountID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}
