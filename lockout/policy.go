// Package lockout implements the per-account failed-attempt policy.
// Lock state is evaluated lazily by comparing timestamps; the counter
// mutations themselves are delegated to the identity store, which must
// perform them atomically.
package lockout

import (
	"context"
	"time"

	"github.com/nexus-universe/nexus-auth/accounts"
	"github.com/pkg/errors"
)

const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 30 * time.Minute
)

// Policy decides when repeated failures lock an account.
type Policy struct {
	MaxAttempts  int
	LockDuration time.Duration
	// CountTwoFactorFailures controls whether a failed second-factor
	// attempt counts toward the threshold.
	CountTwoFactorFailures bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		LockDuration: DefaultLockDuration,
	}
}

// Locked reports whether the account is currently locked. Once
// LockedUntil has passed the account is implicitly active again.
func (p Policy) Locked(account *accounts.Account, now time.Time) bool {
	return account.LockedAt(now)
}

// RegisterFailure atomically increments the account's failed-attempt
// counter and, when the post-increment value reaches the threshold,
// transitions the account to Locked. It returns the lock expiry when a
// lock is in effect after this failure, nil otherwise.
func (p Policy) RegisterFailure(ctx context.Context, repo accounts.Repo, accountID string, now time.Time) (*time.Time, error) {
	attempts, err := repo.IncrementFailedAttempts(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "[Policy.RegisterFailure] IncrementFailedAttempts")
	}

	if attempts < p.MaxAttempts {
		return nil, nil
	}

	until := now.Add(p.LockDuration)
	if err := repo.Lock(ctx, accountID, until); err != nil {
		return nil, errors.Wrap(err, "[Policy.RegisterFailure] Lock")
	}
	return &until, nil
}

// Reset clears the failure counter and any lock after a fully
// successful authentication, stamping the login time.
func (p Policy) Reset(ctx context.Context, repo accounts.Repo, accountID string, now time.Time) error {
	if err := repo.ResetLockout(ctx, accountID, now); err != nil {
		return errors.Wrap(err, "[Policy.Reset] ResetLockout")
	}
	return nil
}
