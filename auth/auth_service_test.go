package auth_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-universe/nexus-auth/accounts"
	accountfake "github.com/nexus-universe/nexus-auth/accounts/repofake"
	affiliatefake "github.com/nexus-universe/nexus-auth/affiliates/repofake"
	"github.com/nexus-universe/nexus-auth/auth"
	"github.com/nexus-universe/nexus-auth/auth/codes"
	"github.com/nexus-universe/nexus-auth/clients"
	clientfake "github.com/nexus-universe/nexus-auth/clients/repofake"
	"github.com/nexus-universe/nexus-auth/lockout"
	"github.com/nexus-universe/nexus-auth/password"
	sessionfake "github.com/nexus-universe/nexus-auth/sessions/repofake"
	"github.com/nexus-universe/nexus-auth/token"
	"github.com/nexus-universe/nexus-auth/totp"
)

type testFixture struct {
	service    *auth.Service
	accounts   *accountfake.FakeAccountRepo
	clients    *clientfake.FakeClientRepo
	sessions   *sessionfake.FakeSessionRepo
	affiliates *affiliatefake.FakeAffiliateRepo
	codeStore  *codes.InMemoryStore
	tokens     *token.Service
	hasher     *password.Hasher
	now        time.Time
}

func newTestFixture(t *testing.T, options ...auth.ServiceOption) *testFixture {
	t.Helper()

	fx := &testFixture{
		accounts:   accountfake.NewFakeAccountRepo(),
		clients:    clientfake.NewFakeClientRepo(),
		sessions:   sessionfake.NewFakeSessionRepo(),
		affiliates: affiliatefake.NewFakeAffiliateRepo(),
		now:        time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return fx.now }

	fx.codeStore = codes.NewInMemoryStore().WithNowFunc(clock)

	hasher, err := password.NewHasher(password.Config{
		MemoryKB:    8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)
	fx.hasher = hasher

	fx.tokens, err = token.NewService(token.Secrets{
		Access:  []byte("test-access-secret"),
		Refresh: []byte("test-refresh-secret"),
	}, "nexus-universe", "nexus-clients", token.WithNowFunc(clock))
	require.NoError(t, err)

	fx.service = fx.newService(t, auth.Repos{
		Accounts:   fx.accounts,
		Clients:    fx.clients,
		Sessions:   fx.sessions,
		Affiliates: fx.affiliates,
	}, options...)
	return fx
}

// newService builds an additional service over the fixture's clock and
// stores, letting a test swap in a misbehaving repo.
func (fx *testFixture) newService(t *testing.T, repos auth.Repos, options ...auth.ServiceOption) *auth.Service {
	t.Helper()
	clock := func() time.Time { return fx.now }
	options = append([]auth.ServiceOption{auth.WithNowTime(clock)}, options...)
	service, err := auth.NewService(
		repos,
		fx.hasher,
		fx.tokens,
		totp.NewVerifier("Nexus Universe"),
		fx.codeStore,
		options...,
	)
	require.NoError(t, err)
	return service
}

func (fx *testFixture) register(t *testing.T, username string) *auth.Credentials {
	t.Helper()
	creds, err := fx.service.Register(context.Background(), auth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Sup3r-Secret!",
	}, auth.RequestMeta{IP: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)
	return creds
}

func (fx *testFixture) registerClient(clientID, secret string, redirectURIs, scopes []string) {
	fx.clients.Upsert(&clients.Client{
		ClientID:      clientID,
		ClientSecret:  secret,
		Name:          "Test App",
		RedirectURIs:  redirectURIs,
		AllowedScopes: scopes,
		IsActive:      true,
	})
}

func TestRegisterIssuesCredentials(t *testing.T) {
	fx := newTestFixture(t)

	creds := fx.register(t, "commander")

	assert.Equal(t, "commander", creds.Account.Username)
	assert.Regexp(t, `^NEX-[0-9A-F]{8}$`, creds.Account.AffiliateCode)
	assert.NotEmpty(t, creds.Tokens.AccessToken)
	assert.NotEmpty(t, creds.Tokens.RefreshToken)
	assert.Equal(t, "Bearer", creds.Tokens.TokenType)

	claims, err := fx.service.Authenticate(context.Background(), creds.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, creds.Account.ID, claims.Subject)

	recorded, err := fx.sessions.ListByAccount(context.Background(), creds.Account.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "10.0.0.1", recorded[0].IP)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	fx := newTestFixture(t)
	fx.register(t, "commander")

	_, err := fx.service.Register(context.Background(), auth.RegisterInput{
		Username: "commander",
		Email:    "other@example.com",
		Password: "Sup3r-Secret!",
	}, auth.RequestMeta{})
	assert.ErrorIs(t, err, auth.ErrDuplicateAccount)
}

func TestRegisterValidatesInput(t *testing.T) {
	fx := newTestFixture(t)

	_, err := fx.service.Register(context.Background(), auth.RegisterInput{
		Username: "commander",
		Email:    "commander@example.com",
		Password: "short",
	}, auth.RequestMeta{})

	var validation accounts.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, "password", validation.Field)
}

func TestRegisterWithInviteCode(t *testing.T) {
	fx := newTestFixture(t)
	referrer := fx.register(t, "referrer")

	creds, err := fx.service.Register(context.Background(), auth.RegisterInput{
		Username:   "invitee",
		Email:      "invitee@example.com",
		Password:   "Sup3r-Secret!",
		InviteCode: referrer.Account.AffiliateCode,
	}, auth.RequestMeta{})
	require.NoError(t, err)

	referrals := fx.affiliates.Referrals()
	require.Len(t, referrals, 1)
	assert.Equal(t, creds.Account.ID, referrals[0].AccountID)
	assert.Equal(t, referrer.Account.ID, referrals[0].ReferrerID)
	assert.Equal(t, 1, referrals[0].Level)
	assert.InDelta(t, 0.10, referrals[0].CommissionRate, 1e-9)

	updated, err := fx.accounts.GetByID(context.Background(), referrer.Account.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, updated.CreditBalance)
}

func TestRegisterIgnoresUnknownInviteCode(t *testing.T) {
	fx := newTestFixture(t)

	_, err := fx.service.Register(context.Background(), auth.RegisterInput{
		Username:   "invitee",
		Email:      "invitee@example.com",
		Password:   "Sup3r-Secret!",
		InviteCode: "NEX-DEADBEEF",
	}, auth.RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, fx.affiliates.Referrals())
}

func TestLoginSucceedsWithEmailOrUsername(t *testing.T) {
	fx := newTestFixture(t)
	fx.register(t, "commander")

	for _, identifier := range []string{"commander", "commander@example.com"} {
		creds, err := fx.service.Login(context.Background(), identifier, "Sup3r-Secret!", "", auth.RequestMeta{})
		require.NoError(t, err, identifier)
		assert.NotEmpty(t, creds.Tokens.AccessToken)
		require.NotNil(t, creds.Account.LastLoginAt)
	}
}

func TestLoginUnknownIdentifier(t *testing.T) {
	fx := newTestFixture(t)

	_, err := fx.service.Login(context.Background(), "ghost", "Sup3r-Secret!", "", auth.RequestMeta{})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	fx := newTestFixture(t)
	fx.register(t, "commander")

	for i := 0; i < 4; i++ {
		_, err := fx.service.Login(context.Background(), "commander", "wrong-password", "", auth.RequestMeta{})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials, "attempt %d", i+1)
	}

	_, err := fx.service.Login(context.Background(), "commander", "wrong-password", "", auth.RequestMeta{})
	locked, ok := auth.IsAccountLocked(err)
	require.True(t, ok)
	assert.Equal(t, fx.now.Add(30*time.Minute), locked.LockedUntil)

	// Right password is irrelevant while the lock holds.
	_, err = fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "", auth.RequestMeta{})
	_, ok = auth.IsAccountLocked(err)
	assert.True(t, ok)

	// The lock expires lazily.
	fx.now = fx.now.Add(31 * time.Minute)
	_, err = fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "", auth.RequestMeta{})
	assert.NoError(t, err)
}

func TestLoginSuccessResetsFailureCount(t *testing.T) {
	fx := newTestFixture(t)
	fx.register(t, "commander")

	for i := 0; i < 4; i++ {
		_, err := fx.service.Login(context.Background(), "commander", "wrong-password", "", auth.RequestMeta{})
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	_, err := fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "", auth.RequestMeta{})
	require.NoError(t, err)

	// The counter restarted, so four more failures stay below the limit.
	for i := 0; i < 4; i++ {
		_, err := fx.service.Login(context.Background(), "commander", "wrong-password", "", auth.RequestMeta{})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
}

func TestLoginTwoFactor(t *testing.T) {
	fx := newTestFixture(t)
	creds := fx.register(t, "commander")

	enrolment, err := fx.service.EnrollTwoFactor(context.Background(), creds.Account.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrolment.Secret)
	assert.Contains(t, enrolment.ProvisionURI, "otpauth://totp/")
	assert.Contains(t, enrolment.ProvisionURI, url.QueryEscape(enrolment.Secret))

	_, err = fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "", auth.RequestMeta{})
	assert.ErrorIs(t, err, auth.ErrTwoFactorRequired)

	_, err = fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "000000", auth.RequestMeta{})
	assert.ErrorIs(t, err, auth.ErrInvalidTwoFactor)

	code := totpCodeAt(t, enrolment.Secret, fx.now)
	loggedIn, err := fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", code, auth.RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, loggedIn.Tokens.AccessToken)
}

func TestTwoFactorFailuresDoNotCountByDefault(t *testing.T) {
	fx := newTestFixture(t)
	creds := fx.register(t, "commander")
	_, err := fx.service.EnrollTwoFactor(context.Background(), creds.Account.ID)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "000000", auth.RequestMeta{})
		assert.ErrorIs(t, err, auth.ErrInvalidTwoFactor, "attempt %d", i+1)
	}
}

func TestTwoFactorFailuresCountWhenConfigured(t *testing.T) {
	policy := lockout.DefaultPolicy()
	policy.CountTwoFactorFailures = true
	fx := newTestFixture(t, auth.WithLockoutPolicy(policy))

	creds := fx.register(t, "commander")
	_, err := fx.service.EnrollTwoFactor(context.Background(), creds.Account.ID)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "000000", auth.RequestMeta{})
		require.ErrorIs(t, err, auth.ErrInvalidTwoFactor)
	}
	_, err = fx.service.Login(context.Background(), "commander", "Sup3r-Secret!", "000000", auth.RequestMeta{})
	_, ok := auth.IsAccountLocked(err)
	assert.True(t, ok)
}

// failingAttemptRepo breaks the failed-attempt counter while leaving
// every other accounts operation intact.
type failingAttemptRepo struct {
	*accountfake.FakeAccountRepo
	err error
}

func (r *failingAttemptRepo) IncrementFailedAttempts(context.Context, string) (int, error) {
	return 0, r.err
}

func TestTwoFactorFailureSurfacesCounterStoreError(t *testing.T) {
	policy := lockout.DefaultPolicy()
	policy.CountTwoFactorFailures = true
	fx := newTestFixture(t, auth.WithLockoutPolicy(policy))

	creds := fx.register(t, "commander")
	_, err := fx.service.EnrollTwoFactor(context.Background(), creds.Account.ID)
	require.NoError(t, err)

	storeErr := errors.New("accounts store unavailable")
	service := fx.newService(t, auth.Repos{
		Accounts:   &failingAttemptRepo{FakeAccountRepo: fx.accounts, err: storeErr},
		Clients:    fx.clients,
		Sessions:   fx.sessions,
		Affiliates: fx.affiliates,
	}, auth.WithLockoutPolicy(policy))

	_, err = service.Login(context.Background(), "commander", "Sup3r-Secret!", "000000", auth.RequestMeta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, auth.ErrInvalidTwoFactor)
}

func TestEnrollTwoFactorRejectsSecondEnrolment(t *testing.T) {
	fx := newTestFixture(t)
	creds := fx.register(t, "commander")

	_, err := fx.service.EnrollTwoFactor(context.Background(), creds.Account.ID)
	require.NoError(t, err)
	_, err = fx.service.EnrollTwoFactor(context.Background(), creds.Account.ID)
	assert.ErrorIs(t, err, auth.ErrTwoFactorAlreadyEnrolled)
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	fx := newTestFixture(t)
	creds := fx.register(t, "commander")

	_, err := fx.service.Authenticate(context.Background(), creds.Tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestProfileIncludesTeamSize(t *testing.T) {
	fx := newTestFixture(t)
	referrer := fx.register(t, "referrer")

	for _, name := range []string{"alpha", "beta"} {
		_, err := fx.service.Register(context.Background(), auth.RegisterInput{
			Username:   name,
			Email:      name + "@example.com",
			Password:   "Sup3r-Secret!",
			InviteCode: referrer.Account.AffiliateCode,
		}, auth.RequestMeta{})
		require.NoError(t, err)
	}

	account, teamSize, err := fx.service.Profile(context.Background(), referrer.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "referrer", account.Username)
	assert.Equal(t, 2, teamSize)
}

func TestProfileUnknownAccount(t *testing.T) {
	fx := newTestFixture(t)

	_, _, err := fx.service.Profile(context.Background(), "nope")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestUpdateProfile(t *testing.T) {
	fx := newTestFixture(t)
	creds := fx.register(t, "commander")

	whatsapp := "+5511999990000"
	country := "Brazil"
	updated, err := fx.service.UpdateProfile(context.Background(), creds.Account.ID, accounts.ProfileUpdate{
		Whatsapp: &whatsapp,
		Country:  &country,
	}, auth.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, whatsapp, updated.Contacts.Whatsapp.Value)
	assert.Equal(t, country, updated.Country)
	assert.Equal(t, "commander", updated.Username)
}

// totpCodeAt derives the RFC 6238 code for a shared secret, mirroring
// what an authenticator app would display.
func totpCodeAt(t *testing.T, secretBase32 string, now time.Time) string {
	t.Helper()
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secretBase32))
	require.NoError(t, err)

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(now.Unix()/30))

	mac := hmac.New(sha1.New, secret)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", value%1000000)
}
