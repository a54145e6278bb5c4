package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const denyKeyPrefix = "tokendeny:"

// DenyList implements token.DenyList on redis. Revoked nonces expire
// with the key TTL, which the token service sets to the remaining token
// lifetime.
type DenyList struct {
	redis *redis.Client
}

func NewDenyList(client *redis.Client) *DenyList {
	return &DenyList{redis: client}
}

func (d *DenyList) Revoke(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(
		d.redis.Set(context.Background(), denyKeyPrefix+jti, "1", ttl).Err(),
		"[DenyList.Revoke] set",
	)
}

func (d *DenyList) IsRevoked(jti string) (bool, error) {
	count, err := d.redis.Exists(context.Background(), denyKeyPrefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, "[DenyList.IsRevoked] exists")
	}
	return count > 0, nil
}
