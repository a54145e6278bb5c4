package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrDuplicateAccount         = errors.New("username or email already registered")
	ErrTwoFactorRequired        = errors.New("two-factor code required")
	ErrInvalidTwoFactor         = errors.New("invalid two-factor code")
	ErrAccountNotFound          = errors.New("account not found")
	ErrInvalidClient            = errors.New("invalid client")
	ErrInvalidRedirectURI       = errors.New("redirect uri not registered for client")
	ErrInvalidScope             = errors.New("requested scope not allowed for client")
	ErrUnsupportedGrantType     = errors.New("unsupported grant type")
	ErrUnsupportedResponseType  = errors.New("unsupported response type")
	ErrInvalidAuthorizationCode = errors.New("invalid or expired authorization code")
	ErrInvalidToken             = errors.New("invalid token")
	ErrTwoFactorAlreadyEnrolled = errors.New("two-factor authentication already enabled")
)

// AccountLockedError is returned when an account is temporarily locked
// after too many failed login attempts.
type AccountLockedError struct {
	LockedUntil time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.LockedUntil.Format(time.RFC3339))
}

// IsAccountLocked reports whether err is an AccountLockedError.
func IsAccountLocked(err error) (*AccountLockedError, bool) {
	var locked *AccountLockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}
