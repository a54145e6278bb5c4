// Package codes manages OAuth2 authorization codes: single-use,
// short-lived artifacts exchanged for tokens in the code grant.
package codes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// TTL is the authorization-code lifetime.
const TTL = 10 * time.Minute

// ErrNotFound is returned by Consume when the code does not exist, has
// expired, or was already redeemed. Callers cannot distinguish the
// three; a replayed code looks identical to an unknown one.
var ErrNotFound = errors.New("authorization code not found")

// Code binds a one-time authorization code to a client, an account and
// the granted scopes.
type Code struct {
	Code      string    `json:"code"`
	ClientID  string    `json:"clientId"`
	AccountID string    `json:"accountId"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists authorization codes with a TTL. Consume must be
// atomic: under concurrent redemption of the same code exactly one
// caller receives it.
type Store interface {
	Save(ctx context.Context, code *Code) error
	Consume(ctx context.Context, code string) (*Code, error)
}

const codeBytes = 32

// New mints a code for the given grant with the standard TTL.
func New(clientID, accountID string, scopes []string, now time.Time) (*Code, error) {
	raw := make([]byte, codeBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	return &Code{
		Code:      hex.EncodeToString(raw),
		ClientID:  clientID,
		AccountID: accountID,
		Scopes:    scopes,
		ExpiresAt: now.Add(TTL),
	}, nil
}

// Expired reports whether the code is past its lifetime.
func (c *Code) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
