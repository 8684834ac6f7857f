package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"givebridge/internal/identity/store"
	"givebridge/internal/identity/token"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
)

type IdentityServiceSuite struct {
	suite.Suite
	ctx      context.Context
	sessions *store.InMemory
	service  *Service
}

func (s *IdentityServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.sessions = store.NewInMemory()
	jwtService := token.NewJWTService("test-signing-key", "givebridge", "givebridge")
	s.service = NewService(jwtService, s.sessions)
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) TestIssueToken() {
	s.Run("issues a token that resolves back to the caller", func() {
		userID := id.NewUserID()
		signed, session, err := s.service.IssueToken(s.ctx, userID, id.RoleDonor)
		s.Require().NoError(err)
		s.Require().NotEmpty(signed)

		caller, err := s.service.Resolve(s.ctx, signed)
		s.Require().NoError(err)
		s.Equal(userID, caller.UserID)
		s.Equal(id.RoleDonor, caller.Role)
		s.Equal(session.ID, caller.SessionID)
	})

	s.Run("rejects a nil user id", func() {
		_, _, err := s.service.IssueToken(s.ctx, id.UserID{}, id.RoleDonor)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects an unknown role", func() {
		_, _, err := s.service.IssueToken(s.ctx, id.NewUserID(), id.Role("admin"))
		s.Error(err)
	})
}

func (s *IdentityServiceSuite) TestResolve() {
	s.Run("rejects garbage tokens", func() {
		_, err := s.service.Resolve(s.ctx, "not-a-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects a token whose session is gone", func() {
		jwtService := token.NewJWTService("test-signing-key", "givebridge", "givebridge")
		signed, err := jwtService.GenerateAccessToken(id.NewUserID(), id.NewSessionID(), id.RoleRecipient, defaultTokenTTL)
		s.Require().NoError(err)

		_, err = s.service.Resolve(s.ctx, signed)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects a token after its session is revoked", func() {
		userID := id.NewUserID()
		signed, session, err := s.service.IssueToken(s.ctx, userID, id.RoleRecipient)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Revoke(s.ctx, session.ID))

		_, err = s.service.Resolve(s.ctx, signed)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *IdentityServiceSuite) TestRevoke() {
	s.Run("revoking twice stays successful", func() {
		_, session, err := s.service.IssueToken(s.ctx, id.NewUserID(), id.RoleDonor)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Revoke(s.ctx, session.ID))
		s.Require().NoError(s.service.Revoke(s.ctx, session.ID))
	})

	s.Run("revoking an unknown session is not found", func() {
		err := s.service.Revoke(s.ctx, id.NewSessionID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
