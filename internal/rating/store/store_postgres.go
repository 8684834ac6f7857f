package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"givebridge/internal/platform/postgres"
	"givebridge/internal/rating/models"
	id "givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
	txcontext "givebridge/pkg/platform/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Create relies on the ratings_once_per_rater constraint to reject a second
// rating by the same rater for the same match.
func (s *Postgres) Create(ctx context.Context, rating models.Rating) error {
	q := txcontext.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO ratings (id, match_id, rater_id, rated_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(rating.ID),
		uuid.UUID(rating.MatchID),
		uuid.UUID(rating.RaterID),
		uuid.UUID(rating.RateeID),
		rating.Score,
		nullString(rating.Comment),
		rating.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "ratings_once_per_rater") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (s *Postgres) AverageFor(ctx context.Context, userID id.UserID) (float64, int, error) {
	q := txcontext.Executor(ctx, s.db)
	var (
		average sql.NullFloat64
		count   int
	)
	err := q.QueryRowContext(ctx, `
		SELECT AVG(score), COUNT(*) FROM ratings WHERE rated_id = $1`,
		uuid.UUID(userID),
	).Scan(&average, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return average.Float64, count, nil
}

func (s *Postgres) ListForRatee(ctx context.Context, userID id.UserID, limit int) ([]models.Rating, error) {
	q := txcontext.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, match_id, rater_id, rated_id, score, comment, created_at
		FROM ratings WHERE rated_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		uuid.UUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.Rating
	for rows.Next() {
		var (
			rating   models.Rating
			rawID    uuid.UUID
			rawMatch uuid.UUID
			rawRater uuid.UUID
			rawRatee uuid.UUID
			comment  sql.NullString
		)
		if err := rows.Scan(&rawID, &rawMatch, &rawRater, &rawRatee,
			&rating.Score, &comment, &rating.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		rating.ID = id.RatingID(rawID)
		rating.MatchID = id.MatchID(rawMatch)
		rating.RaterID = id.UserID(rawRater)
		rating.RateeID = id.UserID(rawRatee)
		if comment.Valid {
			rating.Comment = &comment.String
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
