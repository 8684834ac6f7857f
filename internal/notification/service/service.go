package service

import (
	"context"
	"errors"
	"time"

	"givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	dErrors "givebridge/pkg/domain-errors"
	"givebridge/pkg/platform/sentinel"
)

type Store interface {
	Append(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID, userID id.UserID) error
}

// Service appends and reads notifications. Emit is called from inside
// lifecycle transactions; it must not start its own.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Emit appends a notification for the recipient. Callers pass validated user
// ids; a nil recipient is a programming error surfaced as NotFound.
func (s *Service) Emit(ctx context.Context, recipientID id.UserID, message string) error {
	if recipientID.IsNil() {
		return dErrors.New(dErrors.CodeNotFound, "notification recipient unknown")
	}
	notification := &models.Notification{
		ID:          id.NewNotificationID(),
		RecipientID: recipientID,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Append(ctx, notification); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append notification")
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flips the read flag. Re-marking is a no-op success.
func (s *Service) MarkRead(ctx context.Context, notificationID id.NotificationID, userID id.UserID) error {
	if err := s.store.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}
