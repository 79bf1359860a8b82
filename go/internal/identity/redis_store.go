package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding every remembered name.
const DefaultRedisKey = "pp:session-users"

// RedisStore keeps the session-to-name map in a single Redis hash, so several
// terminals on one machine share what they remember.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		key:    DefaultRedisKey,
	}
}

func (s *RedisStore) Get(ctx context.Context, sessionID uuid.UUID) (string, error) {
	name, err := s.client.HGet(ctx, s.key, sessionID.String()).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup remembered name: %w", err)
	}
	return name, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID uuid.UUID, name string) error {
	if err := s.client.HSet(ctx, s.key, sessionID.String(), name).Err(); err != nil {
		return fmt.Errorf("remember name: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.client.HDel(ctx, s.key, sessionID.String()).Err(); err != nil {
		return fmt.Errorf("forget name: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
