package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/nexus-universe/nexus-auth/clients"
)

// ClientRepo implements clients.Repo on the applications table.
// Redirect URIs and scopes are stored space-separated.
type ClientRepo struct {
	db *sql.DB
}

func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) Get(ctx context.Context, clientID string) (*clients.Client, error) {
	var (
		client        clients.Client
		redirectURIs  string
		allowedScopes string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT client_id, client_secret, name, redirect_uris, allowed_scopes, is_active
		FROM applications
		WHERE client_id = $1
	`, clientID).Scan(
		&client.ClientID, &client.ClientSecret, &client.Name,
		&redirectURIs, &allowedScopes, &client.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clients.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[ClientRepo.Get] scan")
	}

	client.RedirectURIs = strings.Fields(redirectURIs)
	client.AllowedScopes = strings.Fields(allowedScopes)
	return &client, nil
}

// Upsert registers or updates an application. Used by provisioning, not
// by the request path.
func (r *ClientRepo) Upsert(ctx context.Context, client *clients.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (client_id, client_secret, name, redirect_uris, allowed_scopes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (client_id) DO UPDATE SET
			client_secret = EXCLUDED.client_secret,
			name = EXCLUDED.name,
			redirect_uris = EXCLUDED.redirect_uris,
			allowed_scopes = EXCLUDED.allowed_scopes,
			is_active = EXCLUDED.is_active
	`,
		client.ClientID, client.ClientSecret, client.Name,
		strings.Join(client.RedirectURIs, " "),
		strings.Join(client.AllowedScopes, " "),
		client.IsActive,
	)
	return errors.Wrap(err, "[ClientRepo.Upsert] exec")
}
