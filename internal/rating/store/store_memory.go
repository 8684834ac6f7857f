package store

import (
	"context"
	"sort"
	"sync"

	"givebridge/internal/rating/models"
	"givebridge/pkg/domain"
	"givebridge/pkg/platform/sentinel"
)

type ratingKey struct {
	matchID domain.MatchID
	raterID domain.UserID
}

type InMemory struct {
	mu      sync.Mutex
	byID    map[domain.RatingID]models.Rating
	byMatch map[ratingKey]domain.RatingID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[domain.RatingID]models.Rating),
		byMatch: make(map[ratingKey]domain.RatingID),
	}
}

// Create rejects a second rating by the same rater for the same match.
func (s *InMemory) Create(_ context.Context, rating models.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ratingKey{matchID: rating.MatchID, raterID: rating.RaterID}
	if _, exists := s.byMatch[key]; exists {
		return sentinel.ErrConflict
	}
	s.byID[rating.ID] = rating
	s.byMatch[key] = rating.ID
	return nil
}

func (s *InMemory) AverageFor(_ context.Context, userID domain.UserID) (float64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum, count int
	for _, rating := range s.byID {
		if rating.RateeID == userID {
			sum += rating.Score
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

func (s *InMemory) ListForRatee(_ context.Context, userID domain.UserID, limit int) ([]models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Rating
	for _, rating := range s.byID {
		if rating.RateeID == userID {
			out = append(out, rating)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
