// Package auth implements credential authentication: registration,
// password plus two-factor login, lockout enforcement and bearer token
// authentication for the HTTP layer.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/accounts"
	"github.com/nexus-universe/nexus-auth/affiliates"
	"github.com/nexus-universe/nexus-auth/audit"
	"github.com/nexus-universe/nexus-auth/auth/codes"
	"github.com/nexus-universe/nexus-auth/clients"
	"github.com/nexus-universe/nexus-auth/lockout"
	"github.com/nexus-universe/nexus-auth/password"
	"github.com/nexus-universe/nexus-auth/sessions"
	"github.com/nexus-universe/nexus-auth/token"
	"github.com/nexus-universe/nexus-auth/totp"
)

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Accounts   accounts.Repo   // Identity store
	Clients    clients.Repo    // OAuth2 client registry
	Sessions   sessions.Repo   // Append-only session log
	Affiliates affiliates.Repo // Referral records
}

// RequestMeta carries per-request client details recorded on sessions
// and audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// RegisterInput is the field set accepted when creating an account.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	InviteCode string
	Whatsapp   string
	Telegram   string
	Country    string
	City       string
}

// Credentials is the outcome of a successful registration or login.
type Credentials struct {
	Account *accounts.Account
	Tokens  *token.Pair
}

// Service provides credential registration and authentication.
type Service struct {
	repos   Repos
	hasher  *password.Hasher
	tokens  *token.Service
	totp    *totp.Verifier
	lockout lockout.Policy
	codes   codes.Store
	audit   audit.Log
	scopes  string
	nowTime func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLockoutPolicy overrides the default lockout policy.
func WithLockoutPolicy(policy lockout.Policy) ServiceOption {
	return func(s *Service) {
		s.lockout = policy
	}
}

// WithAuditLog sets the audit sink. Without it entries are discarded.
func WithAuditLog(log audit.Log) ServiceOption {
	return func(s *Service) {
		s.audit = log
	}
}

// WithDefaultScopes overrides the scope set granted when an authorize
// request names none.
func WithDefaultScopes(scopes string) ServiceOption {
	return func(s *Service) {
		if scopes != "" {
			s.scopes = scopes
		}
	}
}

// NewService initializes a new Service with required dependencies.
// Optional configuration can be provided via options.
func NewService(
	repos Repos,
	hasher *password.Hasher,
	tokens *token.Service,
	totpVerifier *totp.Verifier,
	codeStore codes.Store,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Accounts == nil {
		return nil, errors.New("[NewService] Accounts repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewService] Clients repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if repos.Affiliates == nil {
		return nil, errors.New("[NewService] Affiliates repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewService] hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token service is required")
	}
	if totpVerifier == nil {
		return nil, errors.New("[NewService] totp verifier is required")
	}
	if codeStore == nil {
		return nil, errors.New("[NewService] authorization code store is required")
	}

	service := &Service{
		repos:   repos,
		hasher:  hasher,
		tokens:  tokens,
		totp:    totpVerifier,
		lockout: lockout.DefaultPolicy(),
		codes:   codeStore,
		audit:   audit.NoOpLog{},
		scopes:  DefaultScopes,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Register validates the input, creates the account and issues an
// initial token pair. An unknown invite code is ignored; a valid one
// records a referral and credits the referrer.
func (s *Service) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (*Credentials, error) {
	if err := accounts.ValidateRegistration(input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}

	exists, err := s.repos.Accounts.Exists(ctx, input.Username, input.Email)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] Exists")
	}
	if exists {
		return nil, ErrDuplicateAccount
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] Hash")
	}

	affiliateCode, err := accounts.NewAffiliateCode()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] NewAffiliateCode")
	}

	now := s.nowTime()
	account := &accounts.Account{
		ID:            uuid.NewString(),
		Username:      input.Username,
		Email:         input.Email,
		PasswordHash:  hash,
		Role:          accounts.RoleUser,
		AffiliateCode: affiliateCode,
		Contacts: accounts.Contacts{
			Whatsapp: accounts.Contact{Value: input.Whatsapp},
			Telegram: accounts.Contact{Value: input.Telegram},
		},
		Country:   input.Country,
		City:      input.City,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := s.repos.Accounts.Create(ctx, account); err != nil {
		return nil, errors.Wrap(err, "[Service.Register] Create")
	}

	if input.InviteCode != "" {
		if err := s.recordReferral(ctx, account.ID, input.InviteCode, now); err != nil {
			return nil, errors.Wrap(err, "[Service.Register] recordReferral")
		}
	}

	credentials, err := s.issueCredentials(ctx, account, meta, now)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] issueCredentials")
	}

	s.record(ctx, audit.ActionRegister, account.ID, meta, now)
	return credentials, nil
}

// Login authenticates an account by username or email. On a wrong
// password the failed-attempt counter advances; the attempt that reaches
// the limit locks the account. A locked account is rejected without any
// credential check.
func (s *Service) Login(ctx context.Context, identifier, candidate, twoFactorCode string, meta RequestMeta) (*Credentials, error) {
	now := s.nowTime()

	account, err := s.repos.Accounts.GetByIdentifier(ctx, identifier)
	if errors.Is(err, accounts.ErrNotFound) {
		// Burn a hash computation so unknown and known identifiers take
		// comparable time.
		s.hasher.DummyVerify(ctx)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] GetByIdentifier")
	}
	if !account.IsActive {
		return nil, ErrInvalidCredentials
	}

	if s.lockout.Locked(account, now) {
		return nil, &AccountLockedError{LockedUntil: *account.LockedUntil}
	}

	if !s.hasher.Verify(ctx, account.PasswordHash, candidate) {
		return nil, s.failAttempt(ctx, account, meta, now)
	}

	if account.TwoFactorEnabled() {
		if twoFactorCode == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.totp.Verify(account.TwoFactorSecret, twoFactorCode, now) {
			if s.lockout.CountTwoFactorFailures {
				err := s.failAttempt(ctx, account, meta, now)
				var locked *AccountLockedError
				if errors.As(err, &locked) {
					return nil, locked
				}
				if err != nil && !errors.Is(err, ErrInvalidCredentials) {
					return nil, err
				}
			}
			return nil, ErrInvalidTwoFactor
		}
	}

	if err := s.lockout.Reset(ctx, s.repos.Accounts, account.ID, now); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] Reset")
	}
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now

	credentials, err := s.issueCredentials(ctx, account, meta, now)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] issueCredentials")
	}

	s.record(ctx, audit.ActionLogin, account.ID, meta, now)
	return credentials, nil
}

// Authenticate verifies a bearer access token and returns its claims.
func (s *Service) Authenticate(_ context.Context, rawToken string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(rawToken, token.KindAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Profile returns the account for an authenticated subject together
// with the size of its direct referral team.
func (s *Service) Profile(ctx context.Context, accountID string) (*accounts.Account, int, error) {
	account, err := s.repos.Accounts.GetByID(ctx, accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, 0, ErrAccountNotFound
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "[Service.Profile] GetByID")
	}

	teamSize, err := s.repos.Affiliates.TeamSize(ctx, accountID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "[Service.Profile] TeamSize")
	}
	return account, teamSize, nil
}

// UpdateProfile applies a partial profile update and returns the
// updated account.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, update accounts.ProfileUpdate, meta RequestMeta) (*accounts.Account, error) {
	account, err := s.repos.Accounts.UpdateProfile(ctx, accountID, update)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateProfile] UpdateProfile")
	}

	s.record(ctx, audit.ActionProfileUpdate, accountID, meta, s.nowTime())
	return account, nil
}

// TwoFactorEnrolment is the secret and provisioning URI handed to an
// account enrolling a second factor.
type TwoFactorEnrolment struct {
	Secret       string
	ProvisionURI string
}

// EnrollTwoFactor generates and stores a TOTP secret for the account.
// Enrolment is rejected when a secret is already set.
func (s *Service) EnrollTwoFactor(ctx context.Context, accountID string) (*TwoFactorEnrolment, error) {
	account, err := s.repos.Accounts.GetByID(ctx, accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] GetByID")
	}
	if account.TwoFactorEnabled() {
		return nil, ErrTwoFactorAlreadyEnrolled
	}

	secret, err := s.totp.GenerateSecret()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] GenerateSecret")
	}
	if err := s.repos.Accounts.SetTwoFactorSecret(ctx, accountID, secret); err != nil {
		return nil, errors.Wrap(err, "[Service.EnrollTwoFactor] SetTwoFactorSecret")
	}

	return &TwoFactorEnrolment{
		Secret:       secret,
		ProvisionURI: s.totp.ProvisionURI(secret, account.Email),
	}, nil
}

// failAttempt advances the failed-login counter and returns the error
// the caller should surface: AccountLockedError when this attempt
// reached the limit, ErrInvalidCredentials otherwise.
func (s *Service) failAttempt(ctx context.Context, account *accounts.Account, meta RequestMeta, now time.Time) error {
	lockedUntil, err := s.lockout.RegisterFailure(ctx, s.repos.Accounts, account.ID, now)
	if err != nil {
		return errors.Wrap(err, "[Service.failAttempt] RegisterFailure")
	}

	s.record(ctx, audit.ActionLoginFailed, account.ID, meta, now)
	if lockedUntil != nil {
		s.record(ctx, audit.ActionLocked, account.ID, meta, now)
		return &AccountLockedError{LockedUntil: *lockedUntil}
	}
	return ErrInvalidCredentials
}

func (s *Service) recordReferral(ctx context.Context, accountID, inviteCode string, now time.Time) error {
	referrer, err := s.repos.Accounts.GetByAffiliateCode(ctx, inviteCode)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil // unknown invite codes are ignored
	}
	if err != nil {
		return errors.Wrap(err, "GetByAffiliateCode")
	}

	if err := s.repos.Affiliates.CreateReferral(ctx, affiliates.NewReferral(accountID, referrer.ID, now)); err != nil {
		return errors.Wrap(err, "CreateReferral")
	}
	if err := s.repos.Accounts.AddCredit(ctx, referrer.ID, affiliates.SignupBonusCredits); err != nil {
		return errors.Wrap(err, "AddCredit")
	}
	return nil
}

func (s *Service) issueCredentials(ctx context.Context, account *accounts.Account, meta RequestMeta, now time.Time) (*Credentials, error) {
	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		return nil, errors.Wrap(err, "IssuePair")
	}

	session := sessions.New(account.ID, pair.AccessToken, pair.RefreshToken, now.Add(s.tokens.RefreshTTL()), meta.IP, meta.UserAgent, now)
	if err := s.repos.Sessions.Append(ctx, session); err != nil {
		return nil, errors.Wrap(err, "Sessions.Append")
	}

	return &Credentials{Account: account, Tokens: pair}, nil
}

func (s *Service) record(ctx context.Context, action, accountID string, meta RequestMeta, at time.Time) {
	_ = s.audit.Record(ctx, audit.Entry{
		Action:     action,
		EntityType: "account",
		EntityID:   accountID,
		AccountID:  accountID,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		At:         at,
	})
}
