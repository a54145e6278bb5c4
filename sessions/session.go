package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session records an issued token pair for an account. Sessions are
// append-only audit state; token validity is governed by the JWTs
// themselves, not by session lookup.
type Session struct {
	ID           string    // Unique session identifier (UUID)
	AccountID    string    // Account the tokens were issued to
	AccessToken  string    // Access token issued for this session
	RefreshToken string    // Refresh token issued for this session
	ExpiresAt    time.Time // Refresh token expiry
	IP           string    // Client IP at issue time
	UserAgent    string    // Client user agent at issue time
	CreatedAt    time.Time
}

// New creates a session for an issued token pair.
func New(accountID, accessToken, refreshToken string, expiresAt time.Time, ip, userAgent string, now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		IP:           ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
	}
}

// Repo persists sessions.
type Repo interface {
	Append(ctx context.Context, session *Session) error
	ListByAccount(ctx context.Context, accountID string) ([]*Session, error)
}
