package sessions

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
)

const keyPrefix = "session:"

// redisStore keeps sessions in redis so sign-ins survive restarts and
// are shared across instances. Expiry is redis's own TTL.
type redisStore struct {
	client *redis.Client
}

var _ account.SessionStore = (*redisStore)(nil) // interface compliance check

func NewRedisStore(conf *core.Config) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) PutSession(ctx context.Context, sessionID, accountID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+sessionID, accountID, ttl).Err(); err != nil {
		return errors.Wrap(err, "storing session")
	}
	return nil
}

func (s *redisStore) GetSession(ctx context.Context, sessionID string) (string, error) {
	accountID, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", account.ErrNoSession
		}
		return "", errors.Wrap(err, "fetching session")
	}
	return accountID, nil
}

func (s *redisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

func (s *redisStore) Close() error { return s.client.Close() }
