package accounts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repo lookups when no account matches.
var ErrNotFound = errors.New("account not found")

// ProfileUpdate carries the mutable profile fields. Nil pointers leave
// the stored value unchanged.
type ProfileUpdate struct {
	Whatsapp *string
	Telegram *string
	Country  *string
	City     *string
}

// Repo is the identity store contract. Counter mutations
// (IncrementFailedAttempts, AddCredit) must be atomic at the store.
type Repo interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	// GetByIdentifier resolves a username or an email address.
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	GetByAffiliateCode(ctx context.Context, code string) (*Account, error)
	// Exists reports whether any account already uses the username or email.
	Exists(ctx context.Context, username, email string) (bool, error)

	// IncrementFailedAttempts atomically increments the failed-login
	// counter and returns the post-increment value.
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	Lock(ctx context.Context, id string, until time.Time) error
	// ResetLockout zeroes FailedAttempts, clears LockedUntil and stamps
	// LastLoginAt.
	ResetLockout(ctx context.Context, id string, lastLoginAt time.Time) error

	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*Account, error)
	SetTwoFactorSecret(ctx context.Context, id, secret string) error
	// AddCredit atomically adjusts the credit balance.
	AddCredit(ctx context.Context, id string, amount int64) error
}
