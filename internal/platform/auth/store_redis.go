package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore persists the token under two keys: <key> holds the bearer
// value and <key>_expiry the expiry as epoch milliseconds. Both keys carry
// a TTL equal to the token's remaining lifetime.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key, now: time.Now}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) expiryKey() string {
	return s.key + "_expiry"
}

func (s *RedisStore) Load(ctx context.Context) (Token, bool, error) {
	vals, err := s.client.MGet(ctx, s.key, s.expiryKey()).Result()
	if err != nil {
		return Token{}, false, fmt.Errorf("load token: %w", err)
	}
	value, ok1 := vals[0].(string)
	rawExpiry, ok2 := vals[1].(string)
	if !ok1 || !ok2 || value == "" {
		return Token{}, false, nil
	}
	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return Token{}, false, fmt.Errorf("load token: malformed expiry %q: %w", rawExpiry, err)
	}
	return Token{Value: value, ExpiresAt: time.UnixMilli(ms)}, true, nil
}

func (s *RedisStore) Save(ctx context.Context, tok Token) error {
	ttl := tok.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Clear(ctx)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, tok.Value, ttl)
		pipe.Set(ctx, s.expiryKey(), strconv.FormatInt(tok.ExpiresAt.UnixMilli(), 10), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key, s.expiryKey()).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
