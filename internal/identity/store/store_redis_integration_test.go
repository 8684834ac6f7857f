//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givebridge/internal/identity/models"
	"givebridge/internal/identity/store"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	"givebridge/pkg/testutil/containers"
)

type RedisSessionStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionStoreSuite))
}

func (s *RedisSessionStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisSessionStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func newSession(ttl time.Duration) *models.Session {
	now := time.Now().UTC()
	return &models.Session{
		ID:        id.NewSessionID(),
		UserID:    id.NewUserID(),
		Role:      id.RoleDonor,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *RedisSessionStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	session := newSession(time.Hour)
	s.Require().NoError(s.store.Create(ctx, session))

	found, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.UserID, found.UserID)
	s.Equal(session.Role, found.Role)
	s.Nil(found.RevokedAt)
}

func (s *RedisSessionStoreSuite) TestMissingSession() {
	_, err := s.store.FindByID(context.Background(), id.NewSessionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSessionStoreSuite) TestRevoke() {
	ctx := context.Background()
	session := newSession(time.Hour)
	s.Require().NoError(s.store.Create(ctx, session))

	s.Require().NoError(s.store.Revoke(ctx, session.ID, time.Now().UTC()))
	// Idempotent.
	s.Require().NoError(s.store.Revoke(ctx, session.ID, time.Now().UTC()))

	found, err := s.store.FindByID(ctx, session.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.RevokedAt)
	s.False(found.Active(time.Now().UTC()))
}

func (s *RedisSessionStoreSuite) TestExpiredSessionRejected() {
	err := s.store.Create(context.Background(), newSession(-time.Minute))
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}
