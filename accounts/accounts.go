package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// RoleType represents an account role.
type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAdmin RoleType = "admin"
)

// Contact is a single out-of-band contact channel (whatsapp number,
// telegram username). Verified flips when the channel is confirmed.
type Contact struct {
	Value    string `json:"value,omitempty"`
	Verified bool   `json:"verified"`
}

// Contacts groups the contact channels stored on an account.
type Contacts struct {
	Whatsapp Contact `json:"whatsapp"`
	Telegram Contact `json:"telegram"`
}

type Account struct {
	ID              string     `json:"id,omitempty"`
	Username        string     `json:"username,omitempty"`
	Email           string     `json:"email,omitempty"`
	PasswordHash    string     `json:"-"` // never serialize
	Role            RoleType   `json:"role,omitempty"`
	AffiliateCode   string     `json:"affiliateCode,omitempty"`
	TwoFactorSecret string     `json:"-"` // never serialize
	Contacts        Contacts   `json:"contacts"`
	Country         string     `json:"country,omitempty"`
	City            string     `json:"city,omitempty"`
	CreditBalance   int64      `json:"creditBalance"`
	IsVerified      bool       `json:"isVerified"`
	IsActive        bool       `json:"isActive"`
	FailedAttempts  int        `json:"-"`
	LockedUntil     *time.Time `json:"-"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
}

// TwoFactorEnabled reports whether the account has enrolled a second factor.
func (a *Account) TwoFactorEnabled() bool {
	return a.TwoFactorSecret != ""
}

// LockedAt reports whether the account is locked at the given instant.
// The lock is evaluated lazily: once LockedUntil has passed the account
// is active again without any stored transition.
func (a *Account) LockedAt(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

const affiliateCodeBytes = 4

// NewAffiliateCode generates a short shareable referral code.
func NewAffiliateCode() (string, error) {
	raw := make([]byte, affiliateCodeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "NEX-" + strings.ToUpper(hex.EncodeToString(raw)), nil
}
