package token

import (
	"sync"
	"time"
)

// DenyList tracks refresh-token nonces that were invalidated by
// rotation. Entries expire with the token they deny.
type DenyList interface {
	Revoke(jti string, ttl time.Duration) error
	IsRevoked(jti string) (bool, error)
}

// InMemoryDenyList is a process-local DenyList, suitable for tests and
// single-instance deployments.
type InMemoryDenyList struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowFunc func() time.Time
}

func NewInMemoryDenyList() *InMemoryDenyList {
	return &InMemoryDenyList{
		revoked: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (d *InMemoryDenyList) Revoke(jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[jti] = d.nowFunc().Add(ttl)
	return nil
}

func (d *InMemoryDenyList) IsRevoked(jti string) (bool, error) {
	d.mu.RLock()
	exp, exists := d.revoked[jti]
	d.mu.RUnlock()
	if !exists {
		return false, nil
	}
	if d.nowFunc().After(exp) {
		d.Cleanup()
		return false, nil
	}
	return true, nil
}

// Cleanup removes expired entries.
func (d *InMemoryDenyList) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.nowFunc()
	for jti, exp := range d.revoked {
		if now.After(exp) {
			delete(d.revoked, jti)
		}
	}
}
