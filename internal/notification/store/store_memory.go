package store

import (
	"context"
	"sort"
	"sync"

	"givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

type InMemory struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[id.NotificationID]*models.Notification)}
}

func (s *InMemory) Append(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *notification
	s.notifications[notification.ID] = &copied
	return nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Notification
	for _, notification := range s.notifications {
		if notification.RecipientID == userID {
			copied := *notification
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// MarkRead flips the read flag to true. Idempotent; ErrNotFound when the
// notification does not exist or belongs to someone else.
func (s *InMemory) MarkRead(_ context.Context, notificationID id.NotificationID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[notificationID]
	if !ok || notification.RecipientID != userID {
		return sentinel.ErrNotFound
	}
	notification.Read = true
	return nil
}
