//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"gemnet/internal/registration/models"
	"gemnet/internal/registration/store"
	"gemnet/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())

	session := models.Session{
		CurrentStep:           models.StepFaceVerification,
		PersonalInfoCompleted: true,
		UserID:                "user-redis-1",
	}
	s.Require().NoError(s.store.Save(ctx, session))

	loaded, err = s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(session, loaded)

	s.Require().NoError(s.store.Clear(ctx))
	loaded, err = s.store.Load(ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())
}

func (s *RedisStoreSuite) TestProfilesAreIsolated() {
	ctx := context.Background()

	first := store.NewRedis(s.redis.Client, store.WithRedisProfile("first"))
	second := store.NewRedis(s.redis.Client, store.WithRedisProfile("second"))

	s.Require().NoError(first.Save(ctx, models.Session{
		CurrentStep:           models.StepFaceVerification,
		PersonalInfoCompleted: true,
		UserID:                "user-a",
	}))

	loaded, err := second.Load(ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())
}

func (s *RedisStoreSuite) TestCorruptRecordReadsAsEmpty() {
	ctx := context.Background()

	s.Require().NoError(s.redis.Client.Set(ctx, "onboarding:session:default", "{not json", 0).Err())

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())
}
