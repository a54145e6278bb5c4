package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexus-universe/nexus-auth/accounts"
	"github.com/pkg/errors"
)

// Kind selects which signing secret and lifetime a token is bound to.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Reason classifies why a token failed verification. The buckets are
// distinguishable to callers.
type Reason string

const (
	ReasonExpired   Reason = "expired"
	ReasonMalformed Reason = "malformed"
	// ReasonMismatch covers wrong kind, audience or issuer.
	ReasonMismatch Reason = "mismatch"
	ReasonRevoked  Reason = "revoked"
)

// InvalidTokenError is returned by Verify with the failure reason.
type InvalidTokenError struct {
	Reason Reason
}

func (e InvalidTokenError) Error() string {
	return "invalid token: " + string(e.Reason)
}

// Claims is the signed claim set carried by every token.
type Claims struct {
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	AffiliateCode string `json:"affiliate,omitempty"`
	Kind          Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Pair is one access token plus one refresh token, produced per
// successful authentication event.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// Secrets holds the process-wide signing secrets. They are loaded once
// at startup and never mutated.
type Secrets struct {
	Access  []byte
	Refresh []byte
}

// Service issues and verifies signed tokens. Verification is
// synchronous, non-blocking and never retried.
type Service struct {
	secrets    Secrets
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	denyList   DenyList
	nowFunc    func() time.Time
}

type ServiceOption func(*Service)

func WithTokenExpiry(accessTTL, refreshTTL time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTTL = accessTTL
		s.refreshTTL = refreshTTL
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func WithDenyList(denyList DenyList) ServiceOption {
	return func(s *Service) {
		s.denyList = denyList
	}
}

func NewService(secrets Secrets, issuer, audience string, options ...ServiceOption) (*Service, error) {
	if len(secrets.Access) == 0 || len(secrets.Refresh) == 0 {
		return nil, errors.New("[token.NewService] signing secrets are required")
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("[token.NewService] issuer and audience are required")
	}

	s := &Service{
		secrets:    secrets,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		denyList:   NewInMemoryDenyList(),
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// AccessTTL returns the access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// Issue signs a token of the given kind for the account.
func (s *Service) Issue(account *accounts.Account, kind Kind) (string, error) {
	secret, ttl, err := s.kindParams(kind)
	if err != nil {
		return "", err
	}

	now := s.nowFunc()
	claims := Claims{
		Username:      account.Username,
		Email:         account.Email,
		Role:          string(account.Role),
		AffiliateCode: account.AffiliateCode,
		Kind:          kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(), // nonce, one per token
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Issue] SignedString")
	}
	return signed, nil
}

// IssuePair issues one access and one refresh token. Prior tokens for
// the account stay valid; invalidation happens only on refresh rotation.
func (s *Service) IssuePair(account *accounts.Account) (*Pair, error) {
	access, err := s.Issue(account, KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issue(account, KindRefresh)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Verify parses and validates a token of the expected kind. Issuer and
// audience are checked, not merely parsed. A single failed verification
// is terminal for the call.
func (s *Service) Verify(raw string, kind Kind) (*Claims, error) {
	secret, _, err := s.kindParams(kind)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.nowFunc),
	)

	var claims Claims
	parsed, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, s.classify(raw, kind, err)
	}
	if !parsed.Valid {
		return nil, InvalidTokenError{Reason: ReasonMalformed}
	}

	// Secrets differ per kind, so a wrong-kind token normally dies on
	// the signature check above; the claim check closes the gap when
	// both secrets are configured identically.
	if claims.Kind != kind {
		return nil, InvalidTokenError{Reason: ReasonMismatch}
	}

	if kind == KindRefresh && s.denyList != nil && claims.ID != "" {
		revoked, err := s.denyList.IsRevoked(claims.ID)
		if err != nil {
			return nil, errors.Wrap(err, "[Service.Verify] deny list")
		}
		if revoked {
			return nil, InvalidTokenError{Reason: ReasonRevoked}
		}
	}

	return &claims, nil
}

// Revoke puts a refresh token's nonce on the deny list until the token
// would have expired anyway.
func (s *Service) Revoke(claims *Claims) error {
	if s.denyList == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.nowFunc())
	}
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}
	return s.denyList.Revoke(claims.ID, ttl)
}

// classify maps jwt parse errors onto the Reason buckets. A
// signature failure is re-examined unverified: if the embedded kind
// claim disagrees with the expected kind, the caller used the wrong
// token kind rather than a corrupted token.
func (s *Service) classify(raw string, kind Kind, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return InvalidTokenError{Reason: ReasonExpired}
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return InvalidTokenError{Reason: ReasonMismatch}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		var unverified Claims
		if _, _, parseErr := jwt.NewParser().ParseUnverified(raw, &unverified); parseErr == nil && unverified.Kind != kind {
			return InvalidTokenError{Reason: ReasonMismatch}
		}
		return InvalidTokenError{Reason: ReasonMalformed}
	default:
		return InvalidTokenError{Reason: ReasonMalformed}
	}
}

func (s *Service) kindParams(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return s.secrets.Access, s.accessTTL, nil
	case KindRefresh:
		return s.secrets.Refresh, s.refreshTTL, nil
	default:
		return nil, 0, errors.Errorf("[token] unknown token kind %q", kind)
	}
}
