// Package repofake provides an in-memory referral repository for tests
// and local development.
package repofake

import (
	"context"
	"sync"

	"github.com/nexus-universe/nexus-auth/affiliates"
)

// FakeAffiliateRepo is an in-memory implementation of affiliates.Repo.
type FakeAffiliateRepo struct {
	mu        sync.RWMutex
	referrals []*affiliates.Referral
}

// NewFakeAffiliateRepo creates an empty in-memory referral repository.
func NewFakeAffiliateRepo() *FakeAffiliateRepo {
	return &FakeAffiliateRepo{}
}

// CreateReferral stores a referral record.
func (r *FakeAffiliateRepo) CreateReferral(_ context.Context, referral *affiliates.Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *referral
	r.referrals = append(r.referrals, &clone)
	return nil
}

// TeamSize returns the number of accounts referred by referrerID.
func (r *FakeAffiliateRepo) TeamSize(_ context.Context, referrerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, ref := range r.referrals {
		if ref.ReferrerID == referrerID {
			count++
		}
	}
	return count, nil
}

// Referrals returns a snapshot of all stored referrals.
func (r *FakeAffiliateRepo) Referrals() []*affiliates.Referral {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*affiliates.Referral, 0, len(r.referrals))
	for _, ref := range r.referrals {
		clone := *ref
		out = append(out, &clone)
	}
	return out
}
