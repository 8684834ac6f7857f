package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "givebridge/pkg/platform/audit"
	txcontext "givebridge/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// lifecycle change and published to Kafka by the outbox worker.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON structure published to Kafka.
type payload struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	Timestamp  string `json:"timestamp"`
	ActorID    string `json:"actor_id,omitempty"`
	DonationID string `json:"donation_id,omitempty"`
	MatchID    string `json:"match_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Append writes an event to the outbox. It joins the transaction carried in
// the context, so the event commits or rolls back with the transition.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	body := payload{
		ID:         eventID.String(),
		Action:     string(event.Action),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		DonationID: event.DonationID,
		MatchID:    event.MatchID,
		Detail:     event.Detail,
		RequestID:  event.RequestID,
	}
	if !event.ActorID.IsNil() {
		body.ActorID = event.ActorID.String()
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Partition key: keep one donation's events ordered.
	topicKey := event.DonationID
	if topicKey == "" {
		topicKey = eventID.String()
	}

	q := txcontext.Executor(ctx, s.db)
	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, topic_key, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		eventID, topicKey, bodyBytes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// OutboxRecord is one unpublished event awaiting delivery.
type OutboxRecord struct {
	ID      uuid.UUID
	Key     string
	Payload []byte
}

// FetchUnpublished returns up to limit pending outbox rows, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic_key, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var record OutboxRecord
		if err := rows.Scan(&record.ID, &record.Key, &record.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	return records, nil
}

// MarkPublished stamps the given outbox rows as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2
		WHERE id = ANY($1)`,
		pq.Array(ids), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
