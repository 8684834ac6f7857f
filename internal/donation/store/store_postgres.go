package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"givebridge/internal/donation/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

// Postgres persists donations. All writes go through the transaction carried
// in the context when one is in flight.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const donationColumns = `id, donor_id, category, description, status, claimant_id, review, media_ref, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, donation *models.Donation) error {
	q := txcontext.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO donations (`+donationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(donation.ID),
		uuid.UUID(donation.DonorID),
		donation.Category,
		donation.Description,
		string(donation.Status),
		claimantValue(donation.ClaimantID),
		nullString(donation.Review),
		nullString(donation.MediaRef),
		donation.CreatedAt,
		donation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+donationColumns+` FROM donations WHERE id = $1`,
		uuid.UUID(donationID),
	)
	donation, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donation by id: %w", err)
	}
	return donation, nil
}

func (s *Postgres) ListAvailable(ctx context.Context) ([]*models.Donation, error) {
	return s.list(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE status = 'available'
		ORDER BY created_at DESC`)
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Donation, error) {
	return s.list(ctx, `
		SELECT `+donationColumns+` FROM donations
		WHERE donor_id = $1
		ORDER BY created_at DESC`,
		uuid.UUID(ownerID))
}

func (s *Postgres) MarkRequested(ctx context.Context, donationID id.DonationID, claimantID id.UserID) error {
	return s.conditionalUpdate(ctx, donationID, `
		UPDATE donations
		SET status = 'requested', claimant_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'available'`,
		uuid.UUID(donationID), uuid.UUID(claimantID))
}

func (s *Postgres) MarkDonated(ctx context.Context, donationID id.DonationID) error {
	return s.conditionalUpdate(ctx, donationID, `
		UPDATE donations
		SET status = 'donated', updated_at = now()
		WHERE id = $1 AND status = 'requested'`,
		uuid.UUID(donationID))
}

func (s *Postgres) SetReview(ctx context.Context, donationID id.DonationID, review string) error {
	q := txcontext.Executor(ctx, s.db)
	result, err := q.ExecContext(ctx, `
		UPDATE donations
		SET review = $2, updated_at = now()
		WHERE id = $1 AND status = 'donated' AND review IS NULL`,
		uuid.UUID(donationID), review)
	if err != nil {
		return fmt.Errorf("set donation review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set donation review: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish the failure: missing row, wrong state, or review taken.
	donation, findErr := s.FindByID(ctx, donationID)
	if findErr != nil {
		return findErr
	}
	if donation.Status != models.StatusDonated {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrConflict
}

func (s *Postgres) conditionalUpdate(ctx context.Context, donationID id.DonationID, query string, args ...any) error {
	q := txcontext.Executor(ctx, s.db)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, donationID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	q := txcontext.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		donations = append(donations, donation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDonation(row scanner) (*models.Donation, error) {
	var (
		donation  models.Donation
		rawID     uuid.UUID
		rawDonor  uuid.UUID
		status    string
		claimant  uuid.NullUUID
		review    sql.NullString
		mediaRef  sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&rawID, &rawDonor, &donation.Category, &donation.Description,
		&status, &claimant, &review, &mediaRef, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	donation.ID = id.DonationID(rawID)
	donation.DonorID = id.UserID(rawDonor)
	donation.Status = models.Status(status)
	if claimant.Valid {
		claimantID := id.UserID(claimant.UUID)
		donation.ClaimantID = &claimantID
	}
	if review.Valid {
		donation.Review = &review.String
	}
	if mediaRef.Valid {
		donation.MediaRef = &mediaRef.String
	}
	donation.CreatedAt = createdAt
	donation.UpdatedAt = updatedAt
	return &donation, nil
}

func claimantValue(claimantID *id.UserID) any {
	if claimantID == nil {
		return nil
	}
	return uuid.UUID(*claimantID)
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
