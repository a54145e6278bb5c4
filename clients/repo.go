package clients

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no client matches the given client ID.
var ErrNotFound = errors.New("client not found")

// Repo is the OAuth client registry contract. The core only reads it;
// clients are registered out-of-band.
type Repo interface {
	Get(ctx context.Context, clientID string) (*Client, error)
}
