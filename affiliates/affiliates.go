// Package affiliates tracks referral relationships between accounts.
package affiliates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// DirectReferralLevel is the network level assigned to a direct signup.
	DirectReferralLevel = 1

	// DirectCommissionRate is the commission rate for a direct referral.
	DirectCommissionRate = 0.10

	// SignupBonusCredits is credited to the referrer for each signup made
	// with their affiliate code.
	SignupBonusCredits = 10
)

// Referral links a newly registered account to the account whose
// affiliate code it signed up with.
type Referral struct {
	ID             string
	AccountID      string // The account that signed up
	ReferrerID     string // The account whose code was used
	Level          int
	CommissionRate float64
	CreatedAt      time.Time
}

// NewReferral creates a direct (level 1) referral record.
func NewReferral(accountID, referrerID string, now time.Time) *Referral {
	return &Referral{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		ReferrerID:     referrerID,
		Level:          DirectReferralLevel,
		CommissionRate: DirectCommissionRate,
		CreatedAt:      now,
	}
}

// Repo persists referral records.
type Repo interface {
	CreateReferral(ctx context.Context, referral *Referral) error
	TeamSize(ctx context.Context, referrerID string) (int, error)
}
