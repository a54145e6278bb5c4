package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexus-universe/nexus-auth/accounts"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory identity store for tests.
type FakeAccountRepo struct {
	accounts map[string]*accounts.Account
	lock     sync.Mutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{accounts: make(map[string]*accounts.Account)}
}

func (r *FakeAccountRepo) Create(_ context.Context, account *accounts.Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *FakeAccountRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	clone := *acct
	return &clone, nil
}

func (r *FakeAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*accounts.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, acct := range r.accounts {
		if acct.Username == identifier || strings.EqualFold(acct.Email, identifier) {
			clone := *acct
			return &clone, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (r *FakeAccountRepo) GetByAffiliateCode(_ context.Context, code string) (*accounts.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, acct := range r.accounts {
		if acct.AffiliateCode == code {
			clone := *acct
			return &clone, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (r *FakeAccountRepo) Exists(_ context.Context, username, email string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, acct := range r.accounts {
		if acct.Username == username || strings.EqualFold(acct.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *FakeAccountRepo) IncrementFailedAttempts(_ context.Context, id string) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return 0, accounts.ErrNotFound
	}
	acct.FailedAttempts++
	return acct.FailedAttempts, nil
}

func (r *FakeAccountRepo) Lock(_ context.Context, id string, until time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	acct.LockedUntil = &until
	return nil
}

func (r *FakeAccountRepo) ResetLockout(_ context.Context, id string, lastLoginAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	acct.FailedAttempts = 0
	acct.LockedUntil = nil
	acct.LastLoginAt = &lastLoginAt
	return nil
}

func (r *FakeAccountRepo) UpdateProfile(_ context.Context, id string, update accounts.ProfileUpdate) (*accounts.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	if update.Whatsapp != nil {
		acct.Contacts.Whatsapp = accounts.Contact{Value: *update.Whatsapp}
	}
	if update.Telegram != nil {
		acct.Contacts.Telegram = accounts.Contact{Value: *update.Telegram}
	}
	if update.Country != nil {
		acct.Country = *update.Country
	}
	if update.City != nil {
		acct.City = *update.City
	}
	clone := *acct
	return &clone, nil
}

func (r *FakeAccountRepo) SetTwoFactorSecret(_ context.Context, id, secret string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	acct.TwoFactorSecret = secret
	return nil
}

func (r *FakeAccountRepo) AddCredit(_ context.Context, id string, amount int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	acct, ok := r.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	acct.CreditBalance += amount
	return nil
}
