package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quarrydirect/portal/internal/common/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on Redis hashes, so attempt counters and
// rate-limit windows hold across concurrently running server instances.
type RedisStore struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// incrAttemptsScript bumps the attempt counter only if the challenge still
// exists, so a consumed challenge never leaves a stray hash behind.
var incrAttemptsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// NewRedisStore creates a new Redis-based OTP store
func NewRedisStore(logger *zap.Logger, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{
		logger: logger.Named("otp.store.redis"),
		client: client,
		prefix: prefix,
	}, nil
}

// NewRedisStoreWithClient wraps an existing client; used by tests.
func NewRedisStoreWithClient(logger *zap.Logger, client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{
		logger: logger.Named("otp.store.redis"),
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) challengeKey(phone string) string {
	return s.prefix + ":ch:" + phone
}

func (s *RedisStore) windowKey(phone string) string {
	return s.prefix + ":send:" + phone
}

// PutChallenge implements Store.PutChallenge
func (s *RedisStore) PutChallenge(ctx context.Context, ch *Challenge) error {
	key := s.challengeKey(ch.Phone)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"code_hash":  ch.CodeHash,
		"created_at": ch.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at": ch.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"attempts":   ch.Attempts,
	})
	// Keep the hash a little beyond its logical expiry so exhausted and
	// expired challenges still answer with the right error code.
	pipe.Expire(ctx, key, time.Until(ch.ExpiresAt)+time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetChallenge implements Store.GetChallenge
func (s *RedisStore) GetChallenge(ctx context.Context, phone string) (*Challenge, error) {
	fields, err := s.client.HGetAll(ctx, s.challengeKey(phone)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoChallenge
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge for %s: %w", phone, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge for %s: %w", phone, err)
	}
	attempts, _ := strconv.Atoi(fields["attempts"])

	return &Challenge{
		Phone:     phone,
		CodeHash:  fields["code_hash"],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		Attempts:  attempts,
	}, nil
}

// IncrementAttempts implements Store.IncrementAttempts
func (s *RedisStore) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	n, err := incrAttemptsScript.Run(ctx, s.client, []string{s.challengeKey(phone)}).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNoChallenge
	}
	return n, nil
}

// DeleteChallenge implements Store.DeleteChallenge
func (s *RedisStore) DeleteChallenge(ctx context.Context, phone string) error {
	return s.client.Del(ctx, s.challengeKey(phone)).Err()
}

// IncrSendWindow implements Store.IncrSendWindow
func (s *RedisStore) IncrSendWindow(ctx context.Context, phone string, window time.Duration) (int64, error) {
	key := s.windowKey(phone)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}
