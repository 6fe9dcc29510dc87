package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"gemnet/internal/registration/models"
)

const (
	// Redis key for the onboarding session record.
	sessionKeyPrefix = "onboarding:session:"

	// defaultProfile names the record when no profile is given. Profiles let
	// one Redis instance hold progress for several concurrent enrollments.
	defaultProfile = "default"
)

// RedisStore persists the session record in Redis, letting a seller resume
// onboarding from another device pointed at the same instance.
type RedisStore struct {
	client  *redis.Client
	profile string
	logger  *slog.Logger
}

// RedisStoreOption configures a RedisStore instance.
type RedisStoreOption func(*RedisStore)

// WithRedisProfile scopes the record to a named enrollment profile.
func WithRedisProfile(profile string) RedisStoreOption {
	return func(s *RedisStore) {
		if profile != "" {
			s.profile = profile
		}
	}
}

// WithRedisLogger sets the logger for corrupt-record warnings.
func WithRedisLogger(logger *slog.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedis constructs a Redis-backed progress store.
func NewRedis(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		profile: defaultProfile,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key() string {
	return sessionKeyPrefix + s.profile
}

func (s *RedisStore) Load(ctx context.Context) (models.Session, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.EmptySession(), nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session record: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session record", "key", s.key(), "error", err)
		return models.EmptySession(), nil
	}
	return session, nil
}

func (s *RedisStore) Save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}
