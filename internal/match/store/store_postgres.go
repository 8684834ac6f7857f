package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"givebridge/internal/match/models"
	"givebridge/internal/platform/postgres"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

// Postgres persists matches. The partial unique index
// matches_one_active_per_donation is what makes CreateIfUnclaimed safe under
// concurrent claims; the store only translates its violation into ErrConflict.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const matchColumns = `id, donation_id, donor_id, recipient_id, status, donor_completed, recipient_completed, created_at, updated_at`

const activeMatchConstraint = "matches_one_active_per_donation"

func (s *Postgres) CreateIfUnclaimed(ctx context.Context, match *models.Match) error {
	q := txcontext.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(match.ID),
		uuid.UUID(match.DonationID),
		uuid.UUID(match.DonorID),
		uuid.UUID(match.RecipientID),
		string(match.Status),
		match.DonorCompleted,
		match.RecipientCompleted,
		match.CreatedAt,
		match.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeMatchConstraint) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, matchID id.MatchID) (*models.Match, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE id = $1`,
		uuid.UUID(matchID),
	)
	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find match by id: %w", err)
	}
	return match, nil
}

func (s *Postgres) FindActiveByDonation(ctx context.Context, donationID id.DonationID) (*models.Match, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE donation_id = $1 AND status IN ('pending', 'accepted')`,
		uuid.UUID(donationID),
	)
	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active match: %w", err)
	}
	return match, nil
}

func (s *Postgres) Transition(ctx context.Context, matchID id.MatchID, from, to models.Status) (*models.Match, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		UPDATE matches
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+matchColumns,
		uuid.UUID(matchID), string(from), string(to),
	)
	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMiss(ctx, matchID)
		}
		return nil, fmt.Errorf("transition match: %w", err)
	}
	return match, nil
}

func (s *Postgres) Confirm(ctx context.Context, matchID id.MatchID, party id.Role) (*models.Match, error) {
	// One statement sets the flag and, when the counterpart already
	// confirmed, completes the match. The check constraint
	// matches_completed_consistent holds at every commit.
	var query string
	if party == id.RoleDonor {
		query = `
			UPDATE matches
			SET donor_completed = TRUE,
			    status = CASE WHEN recipient_completed THEN 'completed' ELSE status END,
			    updated_at = now()
			WHERE id = $1 AND status = 'accepted'
			RETURNING ` + matchColumns
	} else {
		query = `
			UPDATE matches
			SET recipient_completed = TRUE,
			    status = CASE WHEN donor_completed THEN 'completed' ELSE status END,
			    updated_at = now()
			WHERE id = $1 AND status = 'accepted'
			RETURNING ` + matchColumns
	}

	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, query, uuid.UUID(matchID))
	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMiss(ctx, matchID)
		}
		return nil, fmt.Errorf("confirm match: %w", err)
	}
	return match, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID, role id.Role) ([]*models.Match, error) {
	column := "recipient_id"
	if role == id.RoleDonor {
		column = "donor_id"
	}
	q := txcontext.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE `+column+` = $1
		ORDER BY created_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// classifyMiss distinguishes a conditional update that matched no row:
// missing match vs. wrong state.
func (s *Postgres) classifyMiss(ctx context.Context, matchID id.MatchID) error {
	if _, err := s.FindByID(ctx, matchID); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (*models.Match, error) {
	var (
		match        models.Match
		rawID        uuid.UUID
		rawDonation  uuid.UUID
		rawDonor     uuid.UUID
		rawRecipient uuid.UUID
		status       string
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(&rawID, &rawDonation, &rawDonor, &rawRecipient, &status,
		&match.DonorCompleted, &match.RecipientCompleted, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	match.ID = id.MatchID(rawID)
	match.DonationID = id.DonationID(rawDonation)
	match.DonorID = id.UserID(rawDonor)
	match.RecipientID = id.UserID(rawRecipient)
	match.Status = models.Status(status)
	match.CreatedAt = createdAt
	match.UpdatedAt = updatedAt
	return &match, nil
}
