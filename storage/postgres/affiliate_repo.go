package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/affiliates"
)

// AffiliateRepo implements affiliates.Repo on the affiliate_network
// table.
type AffiliateRepo struct {
	db *sql.DB
}

func NewAffiliateRepo(db *sql.DB) *AffiliateRepo {
	return &AffiliateRepo{db: db}
}

func (r *AffiliateRepo) CreateReferral(ctx context.Context, referral *affiliates.Referral) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO affiliate_network (id, user_id, referrer_id, level, commission_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		referral.ID, referral.AccountID, referral.ReferrerID,
		referral.Level, referral.CommissionRate, referral.CreatedAt,
	)
	return errors.Wrap(err, "[AffiliateRepo.CreateReferral] insert")
}

func (r *AffiliateRepo) TeamSize(ctx context.Context, referrerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM affiliate_network WHERE referrer_id = $1`, referrerID,
	).Scan(&count)
	return count, errors.Wrap(err, "[AffiliateRepo.TeamSize] query")
}
