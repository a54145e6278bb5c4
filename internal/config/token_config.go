package config

import (
	"time"

	"github.com/pkg/errors"
)

const (
	accessSecretVar  = "JWT_SECRET"
	refreshSecretVar = "JWT_REFRESH_SECRET"
)

type TokenConfig interface {
	// GetSigningSecrets loads both signing secrets. It fails when either
	// env var is missing; the server refuses to start without them.
	GetSigningSecrets() (access, refresh []byte, err error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetIssuer() string
	GetAudience() string
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetSigningSecrets() ([]byte, []byte, error) {
	access := GetEnv(accessSecretVar, "")
	if access == "" {
		return nil, nil, errors.Errorf("[config] %s is required", accessSecretVar)
	}
	refresh := GetEnv(refreshSecretVar, "")
	if refresh == "" {
		return nil, nil, errors.Errorf("[config] %s is required", refreshSecretVar)
	}
	return []byte(access), []byte(refresh), nil
}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

func (Tokens) GetRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour
}

func (Tokens) GetIssuer() string {
	return GetEnv("TOKEN_ISSUER", "nexus-universe")
}

func (Tokens) GetAudience() string {
	return GetEnv("TOKEN_AUDIENCE", "nexus-clients")
}
