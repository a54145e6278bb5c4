package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/accounts"
)

const accountColumns = `
	id, username, email, password_hash, role, affiliate_code, two_factor_secret,
	whatsapp, whatsapp_verified, telegram, telegram_verified, country, city,
	credit_balance, is_verified, is_active, failed_attempts, locked_until,
	last_login_at, created_at`

// AccountRepo implements accounts.Repo on the users table. Counter
// mutations run as single UPDATE statements so they stay atomic under
// concurrent logins.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Create(ctx context.Context, account *accounts.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, role, affiliate_code, two_factor_secret,
			whatsapp, whatsapp_verified, telegram, telegram_verified, country, city,
			credit_balance, is_verified, is_active, failed_attempts, locked_until,
			last_login_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		account.ID, account.Username, account.Email, account.PasswordHash,
		string(account.Role), account.AffiliateCode, account.TwoFactorSecret,
		account.Contacts.Whatsapp.Value, account.Contacts.Whatsapp.Verified,
		account.Contacts.Telegram.Value, account.Contacts.Telegram.Verified,
		account.Country, account.City, account.CreditBalance,
		account.IsVerified, account.IsActive, account.FailedAttempts,
		account.LockedUntil, account.LastLoginAt, account.CreatedAt,
	)
	return errors.Wrap(err, "[AccountRepo.Create] insert")
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*accounts.Account, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
}

func (r *AccountRepo) GetByIdentifier(ctx context.Context, identifier string) (*accounts.Account, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE username = $1 OR email = $1`, identifier))
}

func (r *AccountRepo) GetByAffiliateCode(ctx context.Context, code string) (*accounts.Account, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE affiliate_code = $1`, code))
}

func (r *AccountRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`, username, email,
	).Scan(&exists)
	return exists, errors.Wrap(err, "[AccountRepo.Exists] query")
}

func (r *AccountRepo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET failed_attempts = failed_attempts + 1
		WHERE id = $1
		RETURNING failed_attempts
	`, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, accounts.ErrNotFound
	}
	return attempts, errors.Wrap(err, "[AccountRepo.IncrementFailedAttempts] update")
}

func (r *AccountRepo) Lock(ctx context.Context, id string, until time.Time) error {
	return r.execOnAccount(ctx, "[AccountRepo.Lock]",
		`UPDATE users SET locked_until = $2 WHERE id = $1`, id, until)
}

func (r *AccountRepo) ResetLockout(ctx context.Context, id string, lastLoginAt time.Time) error {
	return r.execOnAccount(ctx, "[AccountRepo.ResetLockout]", `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, last_login_at = $2
		WHERE id = $1
	`, id, lastLoginAt)
}

func (r *AccountRepo) UpdateProfile(ctx context.Context, id string, update accounts.ProfileUpdate) (*accounts.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			whatsapp = COALESCE($2, whatsapp),
			telegram = COALESCE($3, telegram),
			country  = COALESCE($4, country),
			city     = COALESCE($5, city)
		WHERE id = $1
		RETURNING `+accountColumns,
		id, update.Whatsapp, update.Telegram, update.Country, update.City)
	return r.scanOne(row)
}

func (r *AccountRepo) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	return r.execOnAccount(ctx, "[AccountRepo.SetTwoFactorSecret]",
		`UPDATE users SET two_factor_secret = $2 WHERE id = $1`, id, secret)
}

func (r *AccountRepo) AddCredit(ctx context.Context, id string, amount int64) error {
	return r.execOnAccount(ctx, "[AccountRepo.AddCredit]",
		`UPDATE users SET credit_balance = credit_balance + $2 WHERE id = $1`, id, amount)
}

func (r *AccountRepo) execOnAccount(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, op+" exec")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op+" rows affected")
	}
	if affected == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) scanOne(row *sql.Row) (*accounts.Account, error) {
	var (
		account     accounts.Account
		role        string
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&role, &account.AffiliateCode, &account.TwoFactorSecret,
		&account.Contacts.Whatsapp.Value, &account.Contacts.Whatsapp.Verified,
		&account.Contacts.Telegram.Value, &account.Contacts.Telegram.Verified,
		&account.Country, &account.City, &account.CreditBalance,
		&account.IsVerified, &account.IsActive, &account.FailedAttempts,
		&lockedUntil, &lastLoginAt, &account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[AccountRepo] scan")
	}

	account.Role = accounts.RoleType(role)
	if lockedUntil.Valid {
		value := lockedUntil.Time
		account.LockedUntil = &value
	}
	if lastLoginAt.Valid {
		value := lastLoginAt.Time
		account.LastLoginAt = &value
	}
	return &account, nil
}
