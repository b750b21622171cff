package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarrydirect/portal/internal/common/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store using Redis, so session state is shared across
// concurrently running server instances.
type RedisStore struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// putScript swaps the identity's current token and returns the displaced one,
// so revoke-on-reissue is atomic per identity even under concurrent issues.
var putScript = redis.NewScript(`
local prev = redis.call('GETSET', KEYS[1], ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return prev
`)

// NewRedisStore creates a new Redis-based session store
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
		prefix = "session"
	}
	return &RedisStore{
		logger: logger.Named("session.store.redis"),
		client: client,
		prefix: prefix,
	}, nil
}

// NewRedisStoreWithClient wraps an existing client; used by tests.
func NewRedisStoreWithClient(logger *zap.Logger, client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{
		logger: logger.Named("session.store.redis"),
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) tokenKey(token string) string {
	return s.prefix + ":tok:" + token
}

func (s *RedisStore) identityKey(ident Identity) string {
	return fmt.Sprintf("%s:ident:%s:%d", s.prefix, ident.UserType, ident.UserID)
}

// Put implements Store.Put
func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := s.client.Set(ctx, s.tokenKey(rec.Token), data, ttl).Err(); err != nil {
		return err
	}

	prev, err := putScript.Run(ctx, s.client,
		[]string{s.identityKey(rec.Identity())},
		rec.Token, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}

	if prevToken, ok := prev.(string); ok && prevToken != "" && prevToken != rec.Token {
		if err := s.Revoke(ctx, prevToken); err != nil {
			s.logger.Warn("failed to revoke displaced session", zap.Error(err))
		}
	}
	return nil
}

// Get implements Store.Get
func (s *RedisStore) Get(ctx context.Context, token string) (*Record, error) {
	data, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Revoke implements Store.Revoke
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	key := s.tokenKey(token)
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.Revoked {
		return nil
	}
	rec.Revoked = true

	updated, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	// Keep the revoked record around until its natural expiry so repeated
	// revocations and validations stay consistent.
	return s.client.Set(ctx, key, updated, redis.KeepTTL).Err()
}
