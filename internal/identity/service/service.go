package service

import (
	"context"
	"errors"
	"time"

	"givebridge/internal/identity/models"
	"givebridge/internal/identity/token"
	"givebridge/internal/platform/middleware"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/sentinel"
)

const defaultTokenTTL = 24 * time.Hour

// SessionStore persists the revocable sessions behind issued tokens.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Revoke(ctx context.Context, sessionID id.SessionID, at time.Time) error
}

// Service issues tokens and resolves bearer tokens back to callers. It
// implements middleware.CallerResolver.
type Service struct {
	jwt      *token.JWTService
	sessions SessionStore
	tokenTTL time.Duration
}

func NewService(jwtService *token.JWTService, sessions SessionStore) *Service {
	return &Service{
		jwt:      jwtService,
		sessions: sessions,
		tokenTTL: defaultTokenTTL,
	}
}

// IssueToken creates a session and signs an access token for it.
func (s *Service) IssueToken(ctx context.Context, userID id.UserID, role id.Role) (string, *models.Session, error) {
	if userID.IsNil() {
		return "", nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if _, err := id.ParseRole(string(role)); err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        id.NewSessionID(),
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	signed, err := s.jwt.GenerateAccessToken(userID, session.ID, role, s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, session, nil
}

// Resolve validates the token and checks its session is still live. A token
// is only as good as the session behind it.
func (s *Service) Resolve(ctx context.Context, tokenString string) (middleware.Caller, error) {
	claims, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return middleware.Caller{}, err
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return middleware.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return middleware.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return middleware.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return middleware.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "session not found")
		}
		return middleware.Caller{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if !session.Active(time.Now().UTC()) {
		return middleware.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "session revoked or expired")
	}
	if session.UserID != userID {
		return middleware.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "session does not match token")
	}

	return middleware.Caller{UserID: userID, Role: role, SessionID: sessionID}, nil
}

// Revoke invalidates the session; outstanding tokens for it stop resolving.
func (s *Service) Revoke(ctx context.Context, sessionID id.SessionID) error {
	err := s.sessions.Revoke(ctx, sessionID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}
	return nil
}
