package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/nexus-universe/nexus-auth/auth/codes"
)

const codeKeyPrefix = "authcode:"

// CodeStore implements codes.Store on redis. Expiry rides on the key
// TTL and Consume is a single GETDEL, so a code can be redeemed exactly
// once no matter how many callers race for it.
type CodeStore struct {
	redis   *redis.Client
	nowFunc func() time.Time
}

func NewCodeStore(client *redis.Client) *CodeStore {
	return &CodeStore{
		redis:   client,
		nowFunc: time.Now,
	}
}

// WithNowFunc overrides the clock used to derive key TTLs.
func (s *CodeStore) WithNowFunc(now func() time.Time) *CodeStore {
	s.nowFunc = now
	return s
}

func (s *CodeStore) Save(ctx context.Context, code *codes.Code) error {
	ttl := code.ExpiresAt.Sub(s.nowFunc())
	if ttl <= 0 {
		return errors.New("[CodeStore.Save] code already expired")
	}

	encoded, err := json.Marshal(code)
	if err != nil {
		return errors.Wrap(err, "[CodeStore.Save] marshal")
	}
	return errors.Wrap(
		s.redis.Set(ctx, codeKeyPrefix+code.Code, encoded, ttl).Err(),
		"[CodeStore.Save] set",
	)
}

func (s *CodeStore) Consume(ctx context.Context, code string) (*codes.Code, error) {
	data, err := s.redis.GetDel(ctx, codeKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, codes.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[CodeStore.Consume] getdel")
	}

	var stored codes.Code
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "[CodeStore.Consume] unmarshal")
	}
	return &stored, nil
}
