package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"givebridge/internal/notification/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

// Postgres persists notifications. Append joins the transaction carried in
// the context so a lifecycle transition and its notification commit together.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, notification *models.Notification) error {
	q := txcontext.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(notification.ID),
		uuid.UUID(notification.RecipientID),
		notification.Message,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error) {
	q := txcontext.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, recipient_id, message, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var (
			notification models.Notification
			rawID        uuid.UUID
			rawRecipient uuid.UUID
			createdAt    time.Time
		)
		if err := rows.Scan(&rawID, &rawRecipient, &notification.Message, &notification.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notification.ID = id.NotificationID(rawID)
		notification.RecipientID = id.UserID(rawRecipient)
		notification.CreatedAt = createdAt
		notifications = append(notifications, &notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *Postgres) MarkRead(ctx context.Context, notificationID id.NotificationID, userID id.UserID) error {
	q := txcontext.Executor(ctx, s.db)
	result, err := q.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND recipient_id = $2`,
		uuid.UUID(notificationID), uuid.UUID(userID),
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		// Setting an already-read notification matches the WHERE clause, so
		// zero rows means the notification is absent or not the caller's.
		return sentinel.ErrNotFound
	}
	return nil
}
