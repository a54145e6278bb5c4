package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/sessions"
)

// SessionRepo implements sessions.Repo on the sessions table.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Append(ctx context.Context, session *sessions.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, access_token, refresh_token, expires_at, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID, session.AccountID, session.AccessToken, session.RefreshToken,
		session.ExpiresAt, session.IP, session.UserAgent, session.CreatedAt,
	)
	return errors.Wrap(err, "[SessionRepo.Append] insert")
}

func (r *SessionRepo) ListByAccount(ctx context.Context, accountID string) ([]*sessions.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, access_token, refresh_token, expires_at, ip, user_agent, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "[SessionRepo.ListByAccount] query")
	}
	defer rows.Close()

	var out []*sessions.Session
	for rows.Next() {
		var session sessions.Session
		if err := rows.Scan(
			&session.ID, &session.AccountID, &session.AccessToken, &session.RefreshToken,
			&session.ExpiresAt, &session.IP, &session.UserAgent, &session.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "[SessionRepo.ListByAccount] scan")
		}
		out = append(out, &session)
	}
	return out, errors.Wrap(rows.Err(), "[SessionRepo.ListByAccount] rows")
}
