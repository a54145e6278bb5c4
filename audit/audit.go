// Package audit records security-relevant account activity.
package audit

import (
	"context"
	"time"
)

// Actions recorded by the authentication flows.
const (
	ActionRegister      = "user.register"
	ActionLogin         = "user.login"
	ActionLoginFailed   = "user.login_failed"
	ActionLocked        = "user.locked"
	ActionProfileUpdate = "user.profile_update"
	ActionTokenRefresh  = "token.refresh"
	ActionCodeIssued    = "oauth.code_issued"
	ActionCodeRedeemed  = "oauth.code_redeemed"
)

// Entry is a single audit record.
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	AccountID  string
	IP         string
	UserAgent  string
	At         time.Time
}

// Log is the sink audit entries are written to.
type Log interface {
	Record(ctx context.Context, entry Entry) error
}

// NoOpLog discards all entries.
type NoOpLog struct{}

// Record implements Log.
func (NoOpLog) Record(context.Context, Entry) error { return nil }
